package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/devwatch/internal/config"
	"github.com/hupe1980/devwatch/internal/logging"
	"github.com/hupe1980/devwatch/internal/watch"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the rebuild action once and exit",
		Long: `Run executes the active profile's rebuild action a single time,
exactly as watch would after a change, and exits. The exit code is 1
when the action fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			p, err := newPlan(cfg, nil)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			opts := watch.DefaultOptions()
			opts.Dir = p.Dir
			opts.Patterns = p.Patterns
			opts.Action = p.Action
			opts.Profile = p.Settings.Profile
			opts.Logger = logging.Component(ctx, "reactor")
			opts.Out = cmd.ErrOrStderr()

			r, err := watch.NewReactor(opts)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			if err := r.Once(ctx, "manual"); err != nil {
				// The reactor already reported the failure.
				return &ExitError{Code: 1}
			}

			return nil
		},
	}

	registerProfileFlags(cmd)
	registerTimeoutFlag(cmd)

	return cmd
}
