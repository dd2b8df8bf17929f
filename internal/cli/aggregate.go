package cli

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/propboard/internal/interfaces/httpapi"
	"github.com/spf13/cobra"
)

func newAggregateCommand(rt *runtime) *cobra.Command {
	var (
		sports  []string
		compact bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Run one aggregation per sport and print the tiered result as JSON",
		Example: "  propsctl aggregate --sport nba\n" +
			"  propsctl aggregate --sport nba --sport nhl --compact",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(sports) == 0 {
				return fmt.Errorf("--sport is required")
			}

			agg, err := rt.aggregatorFor(cmd.Context())
			if err != nil {
				return err
			}
			results, err := agg.AggregateSports(cmd.Context(), sports)
			if err != nil {
				return err
			}

			doc := httpapi.AggregateDocument(results)
			var out []byte
			if compact {
				out, err = sonic.ConfigStd.Marshal(doc)
			} else {
				out, err = sonic.ConfigStd.MarshalIndent(doc, "", "  ")
			}
			if err != nil {
				return fmt.Errorf("encode aggregate: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringSliceVar(&sports, "sport", nil, "Sport to aggregate (repeatable)")
	cmd.Flags().BoolVar(&compact, "compact", false, "Print single-line JSON")
	return cmd
}
