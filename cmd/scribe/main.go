// Command scribe manages the writing preset and generation history store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/roach88/scribe/internal/cli"
)

func main() {
	// SCRIBE_* settings may come from a local .env; real environment wins.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load .env: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	os.Exit(cli.Execute(context.Background()))
}
