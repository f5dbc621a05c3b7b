package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/contractdex/internal/domain/search/mode"
	"github.com/kailas-cloud/contractdex/internal/domain/search/request"
)

// Flags for search
var (
	searchMode     string
	searchLimit    int
	searchMinScore float64
	searchRefine   bool
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search deployment records",
	Long: `Search records by meaning (vector), by enrichment text (text) or by
verified source code (source).`,
	Example: `  contractdex search "upgradeable erc-20 with permit"
  contractdex search --mode source "delegatecall"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchMode, "mode", string(mode.Vector), "Search mode (vector, text, source)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", -1, "Similarity threshold for vector mode (default from config)")
	searchCmd.Flags().BoolVar(&searchRefine, "refine", false, "Rewrite the query with the LLM before searching")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	m := mode.Mode(searchMode)
	limit := pick(searchLimit, s.cfg.Search.DefaultLimit)
	minScore := searchMinScore
	if minScore < 0 {
		minScore = 0
		if m == mode.Vector {
			minScore = s.cfg.Search.DefaultMinScore
		}
	}
	refine := searchRefine || (s.cfg.Search.Refine && !cmd.Flags().Changed("refine"))

	req, err := request.New(args[0], m, limit, minScore, refine)
	if err != nil {
		return err
	}
	resp, err := s.app.Search.Search(s.ctx, req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	views := make([]record, 0, len(resp.Results))
	for i := range resp.Results {
		rec := resp.Results[i].Record()
		v := recordView(&rec)
		v.Score = resp.Results[i].Score()
		v.Facts.SourceCode = ""
		views = append(views, v)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		return printJSON(out, map[string]any{
			"query":   resp.Query,
			"results": views,
			"skipped": resp.Skipped,
		})
	}

	if resp.Refinement != nil && resp.Query != args[0] {
		fmt.Fprintf(out, "Refined query: %s\n\n", resp.Query)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tID\tCONTRACT\tNAME\tDESCRIPTION")
	for _, v := range views {
		score := "-"
		if v.Score != nil {
			score = fmt.Sprintf("%.3f", *v.Score)
		}
		desc := ""
		if v.Enrichment != nil {
			desc = truncate(v.Enrichment.Description, 60)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", score, truncate(v.ID, 18), v.Facts.Address, v.Name, desc)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if resp.Skipped > 0 {
		fmt.Fprintf(out, "\n%d hits skipped (unreadable embedding)\n", resp.Skipped)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
