package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/riskibarqy/propboard/internal/domain/team"
	"github.com/spf13/cobra"
)

func newTeamsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Inspect the canonical team table",
	}
	cmd.AddCommand(newTeamsResolveCommand(rt))
	cmd.AddCommand(newTeamsListCommand(rt))
	return cmd
}

func newTeamsResolveCommand(rt *runtime) *cobra.Command {
	var (
		sport    string
		provider string
		byName   bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <value>",
		Short: "Map a provider abbreviation or team name to its canonical id",
		Example: "  propsctl teams resolve --sport nba --provider espn NY\n" +
			"  propsctl teams resolve --sport nhl --name \"St. Louis Blues\"",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(sport) == "" {
				return fmt.Errorf("--sport is required")
			}
			if !byName && strings.TrimSpace(provider) == "" {
				return fmt.Errorf("--provider is required unless --name is set")
			}

			resolver, err := rt.teams()
			if err != nil {
				return err
			}

			var id team.ID
			switch {
			case byName && provider != "":
				id, err = resolver.CanonicalizeFor(provider, args[0], sport)
			case byName:
				id, err = resolver.Canonicalize(args[0], sport)
			default:
				id, err = resolver.Resolve(provider, args[0], sport)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	cmd.Flags().StringVar(&sport, "sport", "", "Sport code such as nba")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider id whose abbreviation is given")
	cmd.Flags().BoolVar(&byName, "name", false, "Treat the value as a team name")
	return cmd
}

func newTeamsListCommand(rt *runtime) *cobra.Command {
	var sport string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List canonical teams for a sport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, err := rt.teams()
			if err != nil {
				return err
			}
			if !resolver.Supports(sport) {
				return fmt.Errorf("unknown sport %q (known: %s)", sport, strings.Join(resolver.Sports(), ", "))
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tALIASES")
			for _, t := range resolver.Teams(sport) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, strings.Join(t.Aliases, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&sport, "sport", "", "Sport code such as nba")
	_ = cmd.MarkFlagRequired("sport")
	return cmd
}
