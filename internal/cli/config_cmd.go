package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/devwatch/internal/config"
)

// ANSI escape codes for colored diff output.
const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect devwatch configuration",
	}

	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var diff bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Show prints the configuration devwatch runs with after merging the
config file, DEVWATCH_* environment variables and flags. The output
is valid input for .devwatch.yaml.

Use --diff to print only what differs from the built-in defaults, as a
unified diff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			w := cmd.OutOrStdout()

			effective, err := marshalConfig(cfg)
			if err != nil {
				return err
			}

			if diff {
				defaults, err := marshalConfig(config.Default())
				if err != nil {
					return err
				}

				return writeConfigDiff(w, defaults, effective, !cfg.NoColor)
			}

			if cfg.ConfigFile != "" {
				_, _ = fmt.Fprintf(w, "# loaded from %s\n", cfg.ConfigFile)
			}

			_, err = io.WriteString(w, effective)

			return err
		},
	}

	cmd.Flags().BoolVar(&diff, "diff", false, "show only the differences from the defaults")

	return cmd
}

func marshalConfig(cfg *config.Config) (string, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	return string(out), nil
}

// writeConfigDiff writes a unified diff from defaults to effective. Nothing
// is written when they are equal.
func writeConfigDiff(w io.Writer, defaults, effective string, color bool) error {
	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        strings.SplitAfter(defaults, "\n"),
		B:        strings.SplitAfter(effective, "\n"),
		FromFile: "defaults",
		ToFile:   "effective",
		Context:  1,
	})
	if err != nil {
		return fmt.Errorf("computing diff: %w", err)
	}

	for _, line := range strings.Split(strings.TrimSuffix(unified, "\n"), "\n") {
		if line == "" {
			continue
		}

		switch {
		case !color, strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			_, _ = fmt.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			_, _ = fmt.Fprintf(w, "%s%s%s\n", colorRed, line, colorReset)
		case strings.HasPrefix(line, "+"):
			_, _ = fmt.Fprintf(w, "%s%s%s\n", colorGreen, line, colorReset)
		default:
			_, _ = fmt.Fprintln(w, line)
		}
	}

	return nil
}
