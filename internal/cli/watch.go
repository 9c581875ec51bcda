package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/devwatch/internal/config"
	"github.com/hupe1980/devwatch/internal/logging"
	"github.com/hupe1980/devwatch/internal/watch"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [pattern...]",
		Short: "Watch sources and rebuild on every change",
		Long: `Watch monitors the files selected by the active profile and runs
its rebuild action once per change.

Patterns are globs relative to --dir. "**" matches any number of
directories, including none, and braces select alternatives, so
"src/main/resources/**/*.{fxml,css}" matches every FXML and CSS file
below src/main/resources. Positional patterns replace the profile's.

Every change is printed with a timestamp before its rebuild starts.
Rebuilds never block the watcher: with --concurrency 1 they queue
and run one after another. Press Ctrl+C to stop.`,
		Example: `  # Touch the application class whenever a view or stylesheet changes
  devwatch watch --profile touch

  # Compile on every Java, FXML or CSS change
  devwatch watch --profile build --build-command "mvn -q compile"

  # Watch custom patterns
  devwatch watch 'web/**/*.html' --action build --build-command make`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args)
		},
	}

	registerProfileFlags(cmd)
	registerReactorFlags(cmd)
	cmd.Flags().Bool("initial", false, "run the action once before the first change")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, patterns []string) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	p, err := newPlan(cfg, patterns)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	logger.Debug("starting watcher",
		slog.String("dir", p.Dir),
		slog.String("profile", p.Settings.Profile),
		slog.String("action", p.Action.Name()),
		slog.Any("patterns", p.Patterns.Include()),
		slog.Any("ignore", p.Patterns.Ignore()),
	)

	opts := watch.DefaultOptions()
	opts.Dir = p.Dir
	opts.Patterns = p.Patterns
	opts.Action = p.Action
	opts.Profile = p.Settings.Profile
	opts.Debounce = cfg.Debounce
	opts.Concurrency = cfg.Concurrency
	opts.Initial = cfg.Initial
	opts.Logger = logging.Component(ctx, "reactor")
	opts.Out = cmd.ErrOrStderr()

	return watch.Run(ctx, opts)
}
