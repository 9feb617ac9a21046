package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medscope/litsearch/internal/intent"
	"github.com/medscope/litsearch/internal/model"
)

var batchJSON bool

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Resolve a file of research requests, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		inputs, err := readInputs(args[0])
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return eris.Errorf("no requests found in %s", args[0])
		}

		env, err := initAnalyzer(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("resolving batch", zap.Int("requests", len(inputs)))
		results := env.Analyzer.ResolveBatch(ctx, inputs)

		if batchJSON {
			type row struct {
				Input    string               `json:"input"`
				Criteria model.SearchCriteria `json:"criteria"`
				Query    string               `json:"query"`
			}
			rows := make([]row, len(results))
			for i, criteria := range results {
				rows[i] = row{
					Input:    inputs[i],
					Criteria: criteria,
					Query:    intent.CompileQuery(criteria),
				}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		for i, criteria := range results {
			fmt.Printf("%d. %s\n   %s\n", i+1, inputs[i], intent.CompileQuery(criteria))
		}

		stats := env.Analyzer.PerfStats()
		fmt.Printf("\n%d resolved, %d cache hits, %d errors\n", stats.Analyses, stats.CacheHits, stats.Errors)
		return nil
	},
}

// readInputs loads one request per line, skipping blanks and # comments.
func readInputs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var inputs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	return inputs, eris.Wrapf(scanner.Err(), "read %s", path)
}

func init() {
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(batchCmd)
}
