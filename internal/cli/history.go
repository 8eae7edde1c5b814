package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scribe/internal/repo"
)

// HistoryOptions holds flags for the history commands.
type HistoryOptions struct {
	*RootOptions
	Limit int

	// record flags
	Input    string
	PresetID string
	Versions []string
	Labels   []string
	Provider string
}

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage generated texts",
		Long: `Browse and manage generated texts, newest first.

Examples:
  scribe history list --limit 5
  scribe history show <id>
  scribe history record --preset <id> --input "..." --version a --version b --version c`,
	}

	cmd.AddCommand(newHistoryListCommand(rootOpts))
	cmd.AddCommand(newHistoryShowCommand(rootOpts))
	cmd.AddCommand(newHistoryRecordCommand(rootOpts))
	cmd.AddCommand(newHistoryDeleteCommand(rootOpts))
	cmd.AddCommand(newHistoryClearCommand(rootOpts))
	cmd.AddCommand(newHistoryCountCommand(rootOpts))
	return cmd
}

func newHistoryListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent generated texts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := opts.Limit
			if !cmd.Flags().Changed("limit") {
				limit = opts.cfg.History.RecentLimit
			}
			if limit <= 0 {
				return NewExitError(ExitCommandError, "--limit must be positive")
			}

			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			texts, err := s.texts.GetRecent(ctx, limit)
			if err != nil {
				return operationError("list history", err)
			}
			return opts.formatter(cmd).Render(texts, func(w io.Writer) {
				writeTextList(w, texts)
			})
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", repo.DefaultRecentLimit, "maximum number of texts (default from history.recent_limit)")
	return cmd
}

func newHistoryShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one generated text with all three versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			g, found, err := s.texts.GetByID(ctx, args[0])
			if err != nil {
				return operationError("read text", err)
			}
			if !found {
				return NewExitError(ExitFailure, "text not found")
			}
			return opts.formatter(cmd).Render(g, func(w io.Writer) {
				writeText(w, g)
			})
		},
	}
}

func newHistoryRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a generation result",
		Long: `Record a generation result against a preset.

Exactly three --version values are required. --label may be given up to three
times; missing labels are left empty. The preset's current name is copied into
the record so history stays readable after the preset changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.Versions) != 3 {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("exactly 3 --version values required, got %d", len(opts.Versions)))
			}
			if len(opts.Labels) > 3 {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("at most 3 --label values allowed, got %d", len(opts.Labels)))
			}

			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			p, found, err := s.presets.GetByID(ctx, opts.PresetID)
			if err != nil {
				return operationError("read preset", err)
			}
			if !found {
				return NewExitError(ExitFailure, "preset not found")
			}

			n := repo.NewText{
				Input:         opts.Input,
				PresetID:      p.ID,
				PresetName:    p.Name,
				ModelProvider: opts.Provider,
			}
			copy(n.Versions[:], opts.Versions)
			copy(n.Labels[:], opts.Labels)

			g, err := s.texts.Record(ctx, n)
			if err != nil {
				return operationError("record text", err)
			}
			return opts.formatter(cmd).Render(g, func(w io.Writer) {
				fmt.Fprintf(w, "Recorded %s\n", g.ID)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Input, "input", "", "original user input (required)")
	cmd.Flags().StringVar(&opts.PresetID, "preset", "", "preset id used for generation (required)")
	cmd.Flags().StringArrayVar(&opts.Versions, "version", nil, "generated version (repeat 3 times)")
	cmd.Flags().StringArrayVar(&opts.Labels, "label", nil, "style label for the version at the same position")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "model provider identifier")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("preset")
	return cmd
}

func newHistoryDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a generated text (no-op if it does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.texts.DeleteByID(ctx, args[0]); err != nil {
				return operationError("delete text", err)
			}
			return opts.formatter(cmd).Render(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted text %s\n", args[0])
			})
		},
	}
}

func newHistoryClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every generated text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.texts.DeleteAll(ctx); err != nil {
				return operationError("clear history", err)
			}
			return opts.formatter(cmd).Render(map[string]bool{"cleared": true}, func(w io.Writer) {
				fmt.Fprintln(w, "History cleared.")
			})
		},
	}
}

func newHistoryCountCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of generated texts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.texts.Count(ctx)
			if err != nil {
				return operationError("count history", err)
			}
			return opts.formatter(cmd).Render(map[string]int{"count": n}, func(w io.Writer) {
				fmt.Fprintln(w, n)
			})
		},
	}
}
