package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics from recorded resolution history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initAnalyzer(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Store == nil {
			return eris.New("history disabled: set LITSEARCH_STORE_PATH to enable it")
		}

		sum, err := env.Store.Summarize(ctx)
		if err != nil {
			return err
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		}

		fmt.Printf("total resolutions: %d\n", sum.Total)
		fmt.Printf("  from backend:    %d\n", sum.FromBackend)
		fmt.Printf("  from cache:      %d\n", sum.FromCache)
		fmt.Printf("  from fallback:   %d\n", sum.FromFallback)
		fmt.Printf("avg latency:       %.1f ms\n", sum.AvgLatencyMS)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}
