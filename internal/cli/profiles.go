package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/devwatch/internal/action"
	"github.com/hupe1980/devwatch/internal/config"
	"github.com/hupe1980/devwatch/internal/profile"
)

func newProfilesCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the available watch profiles",
		Long: `Profiles lists the built-in watch profiles followed by any custom
profiles defined under "profiles" in the config file. Use --verbose to
include each profile's patterns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			return printProfiles(cmd.OutOrStdout(), cfg, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show patterns and ignore globs")

	return cmd
}

func printProfiles(w io.Writer, cfg *config.Config, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tACTION\tSOURCE\tDESCRIPTION")

	type row struct {
		name   string
		source string
		p      profile.Profile
	}

	var rows []row

	for _, name := range profile.BuiltinNames() {
		p, _ := profile.Builtin(name)
		rows = append(rows, row{name: name, source: "built-in", p: p})
	}

	custom := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		if _, ok := profile.Builtin(name); ok {
			continue
		}

		custom = append(custom, name)
	}

	sort.Strings(custom)

	for _, name := range custom {
		p, err := profile.Lookup(name, cfg.Profiles)
		if err != nil {
			return err
		}

		rows = append(rows, row{name: name, source: "config", p: p})
	}

	for _, r := range rows {
		name := r.name
		if name == cfg.Profile {
			name += " *"
		}

		act := r.p.Action
		if act == "" {
			act = action.KindBuild
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, act, r.source, r.p.Description)

		if verbose {
			_, _ = fmt.Fprintf(tw, "\tpatterns: %s\t\t\n", strings.Join(r.p.Patterns, ", "))

			if len(r.p.Ignore) > 0 {
				_, _ = fmt.Fprintf(tw, "\tignore: %s\t\t\n", strings.Join(r.p.Ignore, ", "))
			}
		}
	}

	return tw.Flush()
}
