package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scribe/internal/model"
)

// PresetOptions holds flags for the preset add/update commands.
type PresetOptions struct {
	*RootOptions
	Name         string
	Description  string
	SystemPrompt string
	Default      bool
}

// NewPresetCommand creates the preset command group.
func NewPresetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage writing presets",
		Long: `Manage writing presets.

At most one preset is the default at any time. The default is listed first
and marked with "*".

Examples:
  scribe preset list
  scribe preset add --name "Cover letter" --prompt "You write cover letters."
  scribe preset set-default <id>`,
	}

	cmd.AddCommand(newPresetListCommand(rootOpts))
	cmd.AddCommand(newPresetShowCommand(rootOpts))
	cmd.AddCommand(newPresetAddCommand(rootOpts))
	cmd.AddCommand(newPresetUpdateCommand(rootOpts))
	cmd.AddCommand(newPresetDeleteCommand(rootOpts))
	cmd.AddCommand(newPresetSetDefaultCommand(rootOpts))
	cmd.AddCommand(newPresetClearDefaultCommand(rootOpts))
	return cmd
}

func newPresetListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List presets, default first, then most recently updated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			presets, err := s.presets.GetAll(ctx)
			if err != nil {
				return operationError("list presets", err)
			}
			return opts.formatter(cmd).Render(presets, func(w io.Writer) {
				writePresetList(w, presets)
			})
		},
	}
}

func newPresetShowCommand(opts *RootOptions) *cobra.Command {
	var showDefault bool
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one preset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if showDefault == (len(args) == 1) {
				return NewExitError(ExitCommandError, "give either a preset id or --default")
			}

			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				p     model.WritingPreset
				found bool
			)
			if showDefault {
				p, found, err = s.presets.GetDefault(ctx)
			} else {
				p, found, err = s.presets.GetByID(ctx, args[0])
			}
			if err != nil {
				return operationError("read preset", err)
			}
			if !found {
				return NewExitError(ExitFailure, "preset not found")
			}
			return opts.formatter(cmd).Render(p, func(w io.Writer) {
				writePreset(w, p)
			})
		},
	}
	cmd.Flags().BoolVar(&showDefault, "default", false, "show the default preset")
	return cmd
}

func newPresetAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PresetOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a preset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			now := opts.clock().NowMillis()
			p := model.WritingPreset{
				ID:           opts.ids().NewID(),
				Name:         opts.Name,
				Description:  opts.Description,
				SystemPrompt: opts.SystemPrompt,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			insert := s.presets.InsertOrReplace
			if opts.Default {
				insert = s.presets.InsertAsDefault
			}
			if err := insert(ctx, p); err != nil {
				return operationError("add preset", err)
			}

			stored, _, err := s.presets.GetByID(ctx, p.ID)
			if err != nil {
				return operationError("read preset", err)
			}
			return opts.formatter(cmd).Render(stored, func(w io.Writer) {
				fmt.Fprintf(w, "Added preset %s (%s)\n", stored.Name, stored.ID)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "preset name (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "short description")
	cmd.Flags().StringVar(&opts.SystemPrompt, "prompt", "", "system prompt (required)")
	cmd.Flags().BoolVar(&opts.Default, "default", false, "make this the default preset")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newPresetUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PresetOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a preset's name, description or prompt",
		Long: `Change fields of an existing preset. Only flags given are changed.
The preset's updated time is set to now. Use set-default to change the default.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			p, found, err := s.presets.GetByID(ctx, args[0])
			if err != nil {
				return operationError("read preset", err)
			}
			if !found {
				return NewExitError(ExitFailure, "preset not found")
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				p.Name = opts.Name
			}
			if flags.Changed("description") {
				p.Description = opts.Description
			}
			if flags.Changed("prompt") {
				p.SystemPrompt = opts.SystemPrompt
			}

			updated, err := s.presets.Update(ctx, p)
			if err != nil {
				return operationError("update preset", err)
			}
			return opts.formatter(cmd).Render(updated, func(w io.Writer) {
				fmt.Fprintf(w, "Updated preset %s (%s)\n", updated.Name, updated.ID)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "new name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "new description")
	cmd.Flags().StringVar(&opts.SystemPrompt, "prompt", "", "new system prompt")
	return cmd
}

func newPresetDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a preset (no-op if it does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.presets.DeleteByID(ctx, args[0]); err != nil {
				return operationError("delete preset", err)
			}
			return opts.formatter(cmd).Render(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted preset %s\n", args[0])
			})
		},
	}
}

func newPresetSetDefaultCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <id>",
		Short: "Make a preset the only default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			found, err := s.presets.SetDefault(ctx, args[0])
			if err != nil {
				return operationError("set default preset", err)
			}
			if !found {
				return NewExitError(ExitFailure, "preset not found; default unchanged")
			}
			return opts.formatter(cmd).Render(map[string]string{"default": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Default preset is now %s\n", args[0])
			})
		},
	}
}

func newPresetClearDefaultCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-default",
		Short: "Unmark the default preset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.presets.ClearDefaultFlags(ctx); err != nil {
				return operationError("clear default flags", err)
			}
			return opts.formatter(cmd).Render(map[string]bool{"cleared": true}, func(w io.Writer) {
				fmt.Fprintln(w, "No preset is the default.")
			})
		},
	}
}
