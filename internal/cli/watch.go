package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/scribe/internal/live"
	"github.com/roach88/scribe/internal/model"
)

// WatchOptions holds flags for the watch commands.
type WatchOptions struct {
	*RootOptions
	Max   int // stop after this many emissions; 0 = until interrupted
	Limit int // page size for the recent stream
}

// emission is one printed result from a live query.
type emission struct {
	Stream     string `json:"stream"`
	Generation int64  `json:"generation"`
	Data       any    `json:"data"`
	Error      string `json:"error,omitempty"`

	text func(w io.Writer)
}

// watcher starts one live query and forwards its results to out until ctx ends.
type watcher func(ctx context.Context, s *session, out chan<- emission) error

// NewWatchCommand creates the watch command group.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print live query results as the database changes",
		Long: `Print the current result of a query, then print it again after every
committed change to the tables it reads. Runs until interrupted or until
--max results have been printed.

Bursts of commits may be reported as a single result showing the latest state.

In JSON mode each result is one line:
  {"stream":"presets","generation":3,"data":[...]}

Examples:
  scribe watch presets
  scribe watch recent --limit 5
  scribe watch all --format json`,
	}
	cmd.PersistentFlags().IntVar(&opts.Max, "max", 0, "stop after this many results (0 = run until interrupted)")

	cmd.AddCommand(&cobra.Command{
		Use:   "presets",
		Short: "Watch the preset list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, watchPresets)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Watch the default preset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, watchDefault)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "preset <id>",
		Short: "Watch one preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, watchPreset(args[0]))
		},
	})

	recent := &cobra.Command{
		Use:   "recent",
		Short: "Watch the most recent generated texts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, watchRecent(opts.recentLimit(cmd)))
		},
	}
	recent.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "number of texts (default from history.recent_limit)")
	cmd.AddCommand(recent)

	all := &cobra.Command{
		Use:   "all",
		Short: "Watch presets, the default preset and recent texts together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, watchPresets, watchDefault, watchRecent(opts.recentLimit(cmd)))
		},
	}
	all.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "number of texts (default from history.recent_limit)")
	cmd.AddCommand(all)

	return cmd
}

func (o *WatchOptions) recentLimit(cmd *cobra.Command) int {
	if cmd.Flags().Changed("limit") && o.Limit > 0 {
		return o.Limit
	}
	return o.cfg.History.RecentLimit
}

// runWatch fans every watcher into one printer. The first watcher error
// cancels the rest.
func runWatch(cmd *cobra.Command, opts *WatchOptions, watchers ...watcher) error {
	if opts.Max < 0 {
		return NewExitError(ExitCommandError, "--max must not be negative")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	out := make(chan emission)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range watchers {
		g.Go(func() error {
			return w(gctx, s, out)
		})
	}

	printed := 0
	enc := json.NewEncoder(cmd.OutOrStdout())
loop:
	for {
		select {
		case e := <-out:
			if err := printEmission(cmd.OutOrStdout(), enc, opts.Format, e); err != nil {
				cancel()
				_ = g.Wait()
				return WrapExitError(ExitFailure, "failed to write output", err)
			}
			printed++
			if opts.Max > 0 && printed >= opts.Max {
				cancel()
				break loop
			}
		case <-gctx.Done():
			break loop
		}
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "watch failed", err)
	}
	return nil
}

func printEmission(w io.Writer, enc *json.Encoder, format string, e emission) error {
	if format == "json" {
		return enc.Encode(e)
	}
	fmt.Fprintf(w, "== %s (generation %d) ==\n", e.Stream, e.Generation)
	if e.Error != "" {
		fmt.Fprintf(w, "error: %s\n", e.Error)
		return nil
	}
	e.text(w)
	return nil
}

// forward drains sub into out until ctx ends.
func forward[T any](ctx context.Context, name string, sub *live.Subscription[T], out chan<- emission, text func(io.Writer, T)) error {
	defer sub.Cancel()
	for {
		r, ok := sub.Next(ctx)
		if !ok {
			return nil
		}
		e := emission{Stream: name, Generation: r.Generation, Data: r.Value}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		value := r.Value
		e.text = func(w io.Writer) { text(w, value) }

		select {
		case out <- e:
		case <-ctx.Done():
			return nil
		}
	}
}

func watchPresets(ctx context.Context, s *session, out chan<- emission) error {
	sub, err := s.presets.ObserveAll(ctx)
	if err != nil {
		return err
	}
	return forward(ctx, "presets", sub, out, writePresetList)
}

func watchDefault(ctx context.Context, s *session, out chan<- emission) error {
	sub, err := s.presets.ObserveDefault(ctx)
	if err != nil {
		return err
	}
	return forward(ctx, "default", sub, out, writeOptionalPreset)
}

func watchPreset(id string) watcher {
	return func(ctx context.Context, s *session, out chan<- emission) error {
		sub, err := s.presets.ObserveByID(ctx, id)
		if err != nil {
			return err
		}
		return forward(ctx, "preset "+id, sub, out, writeOptionalPreset)
	}
}

func watchRecent(limit int) watcher {
	return func(ctx context.Context, s *session, out chan<- emission) error {
		sub, err := s.texts.ObserveRecent(ctx, limit)
		if err != nil {
			return err
		}
		return forward(ctx, "recent", sub, out, writeTextList)
	}
}

func writeOptionalPreset(w io.Writer, p *model.WritingPreset) {
	if p == nil {
		fmt.Fprintln(w, "(none)")
		return
	}
	writePreset(w, *p)
}
