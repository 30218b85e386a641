// Command dataclean cleans tabular datasets as described by a job file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	// Database backends (sqlite, postgres, mssql) register their drivers on import.
	_ "dataclean/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dataclean: %v\n", err)
		stop()
		os.Exit(1)
	}
}
