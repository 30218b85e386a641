package postgres

import "dataclean/internal/storage"

func init() {
	storage.Register("postgres", New)
}
