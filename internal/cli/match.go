package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/devwatch/internal/config"
	"github.com/hupe1980/devwatch/internal/pattern"
)

// Match verdicts printed by the match command.
const (
	verdictWatched    = "watched"
	verdictIgnored    = "ignored"
	verdictNotMatched = "not matched"
)

func newMatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <path>...",
		Short: "Report whether paths would trigger a rebuild",
		Long: `Match evaluates each path against the active profile's patterns and
prints one verdict per path: watched, ignored (matched by an ignore
pattern) or not matched. Paths may be relative to --dir or absolute.

The exit code is 1 when any path is not watched.`,
		Example: `  devwatch match src/main/resources/fxml/main.fxml
  devwatch match --profile touch src/main/java/com/example/App.java`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())

			p, err := newPlan(cfg, nil)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			w := cmd.OutOrStdout()
			missed := 0

			for _, arg := range args {
				v := verdict(p.Patterns, pattern.Relative(p.Dir, arg))
				if v != verdictWatched {
					missed++
				}

				_, _ = fmt.Fprintf(w, "%-12s %s\n", v, arg)
			}

			if missed > 0 {
				return &ExitError{Code: 1}
			}

			return nil
		},
	}

	registerProfileFlags(cmd)

	return cmd
}

func verdict(set *pattern.Set, rel string) string {
	switch {
	case set.Match(rel):
		return verdictWatched
	case set.Ignored(rel):
		return verdictIgnored
	default:
		return verdictNotMatched
	}
}
