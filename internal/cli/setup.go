package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/devwatch/internal/action"
	"github.com/hupe1980/devwatch/internal/config"
	"github.com/hupe1980/devwatch/internal/pattern"
	"github.com/hupe1980/devwatch/internal/profile"
)

// registerProfileFlags adds the flags that select and override a profile.
func registerProfileFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("profile", "p", profile.DefaultProfile, "watch profile: "+strings.Join(profile.BuiltinNames(), ", ")+" or a custom profile")
	f.String("action", "", "rebuild action: "+strings.Join(action.Kinds(), ", ")+" (default: from profile)")
	f.StringArray("ignore", nil, "glob of files that never trigger a rebuild (repeatable)")
	f.String("target", "", "file touched by touch actions (default: from profile)")
	f.String("build-command", "", "shell command run by build actions (default: from profile)")
	f.StringP("dir", "C", ".", "project root that patterns are relative to")
}

// registerReactorFlags adds the flags that tune how rebuilds are run.
func registerReactorFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Duration("debounce", 0, "coalesce changes arriving within this interval (0 disables)")
	f.Int("concurrency", 1, "maximum number of rebuilds running at once")
	registerTimeoutFlag(cmd)
}

// registerTimeoutFlag adds the flag that bounds each build command.
func registerTimeoutFlag(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "abort a build command after this long (0 means no limit)")
}

// plan is everything needed to watch and rebuild one project.
type plan struct {
	Dir      string
	Settings *profile.Settings
	Patterns *pattern.Set
	Action   action.Action
}

// newPlan resolves cfg into a plan. Positional patterns replace the
// configured ones.
func newPlan(cfg *config.Config, patterns []string) (*plan, error) {
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project root %q: %w", cfg.Dir, err)
	}

	resolved := *cfg
	if len(patterns) > 0 {
		resolved.Patterns = patterns
	}

	resolved.Dir = dir

	settings, err := resolved.Settings()
	if err != nil {
		return nil, err
	}

	set, err := pattern.Compile(settings.Patterns, settings.Ignore)
	if err != nil {
		return nil, err
	}

	act, err := action.New(settings.Action, action.Options{
		Dir:          dir,
		Target:       settings.Target,
		BuildCommand: settings.BuildCommand,
		Runner:       &action.ExecRunner{Dir: dir, Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, err
	}

	return &plan{
		Dir:      dir,
		Settings: settings,
		Patterns: set,
		Action:   act,
	}, nil
}
