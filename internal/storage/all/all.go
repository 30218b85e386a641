// Package all registers every storage backend and the database/sql drivers
// they need. Import it for side effects from main packages.
package all

import (
	_ "github.com/microsoft/go-mssqldb"

	_ "dataclean/internal/storage/mssql"
	_ "dataclean/internal/storage/postgres"
	_ "dataclean/internal/storage/sqlite"
)
