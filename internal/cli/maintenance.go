package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/scribe/internal/repo"
	"github.com/roach88/scribe/internal/seed"
	"github.com/roach88/scribe/internal/store"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the built-in presets into an empty database",
		Long: `Install the built-in writing presets if the presets table is empty.
A table that already holds presets is left untouched.

This runs even when seed.enabled is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			st, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer st.Close()

			formatter := opts.formatter(cmd)
			n, err := seed.Install(ctx, repo.NewPresets(st, opts.Clock), opts.Clock, opts.IDs)
			if err != nil {
				return operationError("seed presets", err)
			}
			formatter.VerboseLog("Seed installed %d preset(s) into %s", n, st.Path())
			return formatter.Render(map[string]int{"installed": n}, func(w io.Writer) {
				if n == 0 {
					fmt.Fprintln(w, "Presets already present; nothing installed.")
					return
				}
				fmt.Fprintf(w, "Installed %d preset(s).\n", n)
			})
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all presets and history, then compact the file",
		Long: `Delete every preset and generated text in one transaction, then
checkpoint the write-ahead log and vacuum the database file.

Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to delete all data without --yes")
			}

			ctx := commandContext(cmd)
			st, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer st.Close()

			opts.formatter(cmd).VerboseLog("Clearing all tables in %s", st.Path())
			if err := st.ClearAllTables(ctx); err != nil {
				return operationError("clear tables", err)
			}
			return opts.formatter(cmd).Render(map[string]bool{"reset": true}, func(w io.Writer) {
				fmt.Fprintln(w, "All presets and history deleted.")
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion of all data")
	return cmd
}

// SchemaReport is the output of the schema command.
type SchemaReport struct {
	Fingerprint string            `json:"fingerprint"`
	Tables      []store.TableInfo `json:"tables"`
	Checked     string            `json:"checked,omitempty"` // database path when --check was given
	Valid       bool              `json:"valid"`
	Diff        []string          `json:"diff,omitempty"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(opts *RootOptions) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the expected schema and optionally check a database",
		Long: `Print the expected table layout and its identity fingerprint.

With --check, validate the configured database read-only; the file is never
modified. A database that does not match, including a file with none of the
scribe tables, exits with code 3 and prints the differences.

Exit codes:
  0 - Schema printed (and database valid, with --check)
  2 - Command error (database not found, etc.)
  3 - Database schema does not match`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := SchemaReport{
				Fingerprint: store.Fingerprint(),
				Tables:      store.ExpectedTables(),
				Valid:       true,
			}

			formatter := opts.formatter(cmd)
			var checkErr error
			if check {
				path := opts.cfg.Database.Path
				if _, err := os.Stat(path); err != nil {
					return WrapExitError(ExitCommandError, "database not found", err)
				}
				report.Checked = path

				formatter.VerboseLog("Checking %s read-only (driver %s)", path, opts.cfg.Database.Driver)
				if err := store.Check(commandContext(cmd), path, opts.cfg.StoreOptions()...); err != nil {
					report.Valid = false
					var mismatch *store.SchemaMismatchError
					if errors.As(err, &mismatch) {
						report.Diff = mismatch.Diff
					} else {
						report.Diff = []string{err.Error()}
					}
					checkErr = storeOpenError(err)
				}
			}

			// In JSON mode a failed check is reported once, as the error envelope.
			if checkErr != nil && formatter.Format == "json" {
				return checkErr
			}
			if err := formatter.Render(report, func(w io.Writer) {
				writeSchemaReport(w, report)
			}); err != nil {
				return err
			}
			return checkErr
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "validate the configured database")
	return cmd
}

func writeSchemaReport(w io.Writer, r SchemaReport) {
	fmt.Fprintf(w, "Fingerprint: %s\n", r.Fingerprint)
	for _, t := range r.Tables {
		fmt.Fprintf(w, "\n%s\n", t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	if r.Checked == "" {
		return
	}
	if r.Valid {
		fmt.Fprintf(w, "\n%s: OK\n", r.Checked)
		return
	}
	fmt.Fprintf(w, "\n%s: MISMATCH\n", r.Checked)
	for _, d := range r.Diff {
		fmt.Fprintf(w, "  - %s\n", d)
	}
}
