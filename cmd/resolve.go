package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medscope/litsearch/internal/intent"
)

var (
	resolveJSON    bool
	resolveCount   bool
	resolveNoCache bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <request>",
	Short: "Resolve a free-text research request into a PubMed query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var extra []intent.Option
		if resolveNoCache {
			extra = append(extra, intent.WithCache(nil))
		}

		env, err := initAnalyzer(ctx, extra...)
		if err != nil {
			return err
		}
		defer env.Close()

		input := strings.Join(args, " ")
		criteria := env.Analyzer.Resolve(ctx, input)
		query := intent.CompileQuery(criteria)

		var count *int
		if resolveCount {
			n, err := env.PubMed.Count(ctx, query)
			if err != nil {
				zap.L().Warn("pubmed count failed", zap.Error(err))
			} else {
				count = &n
			}
		}

		if resolveJSON {
			out := map[string]any{
				"criteria": criteria,
				"query":    query,
			}
			if count != nil {
				out["result_count"] = *count
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		fmt.Println(query)
		if criteria.HasYearRange() || criteria.HasImpactFactorRange() || len(criteria.CASZones) > 0 || len(criteria.JCRQuartiles) > 0 {
			fmt.Println()
			printFilters(criteria)
		}
		if count != nil {
			fmt.Printf("\n%d PubMed records match\n", *count)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output criteria and query as JSON")
	resolveCmd.Flags().BoolVar(&resolveCount, "count", false, "report the PubMed result count for the compiled query")
	resolveCmd.Flags().BoolVar(&resolveNoCache, "no-cache", false, "bypass the resolution cache")
	rootCmd.AddCommand(resolveCmd)
}
