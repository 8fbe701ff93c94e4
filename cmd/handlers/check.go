package handlers

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"notedup/internal/config"
	"notedup/internal/history"
	"notedup/internal/similarity"
)

// NewCheckCmd creates the candidate duplicate-check command.
func NewCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Check a candidate article file against the history",
		Long: `Run the quick similarity scan of a candidate draft against every article in
the history, then the full five-metric analysis against the closest match.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			if !cmd.Flags().Changed("threshold") {
				threshold = config.Get().Similarity.Threshold
			}
			runWithStore(func(store *history.Store) error {
				return runCheck(store, args[0], threshold)
			})
		},
	}
	checkCmd.Flags().Float64("threshold", 0.6, "Similarity threshold in [0,1]")
	return checkCmd
}

func runCheck(store *history.Store, path string, threshold float64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read candidate file: %w", err)
	}
	candidate := string(data)

	fmt.Printf("🔍 Checking %s against %d historical articles (threshold %.2f)\n",
		path, store.Statistics().TotalArticles, threshold)

	hasSimilar, matches := store.CheckSimilarity(candidate, threshold)
	if !hasSimilar {
		fmt.Println("No similar articles found.")
		return nil
	}

	fmt.Printf("\nFound %d similar article(s):\n", len(matches))
	for _, m := range matches {
		fmt.Printf("  [%d] %s  similarity %.2f  (%s)\n",
			m.ID, m.Title, m.Similarity, m.CreatedAt.Format("2006-01-02"))
	}

	best, ok := store.Article(matches[0].ID)
	if !ok {
		return nil
	}

	analyzer, err := similarity.NewAnalyzerWithWeights(config.Get().Similarity.Weights)
	if err != nil {
		return fmt.Errorf("build analyzer: %w", err)
	}

	scores := analyzer.AnalyzeSimilarity(candidate, best.Content)
	verdict, reason := analyzer.IsSimilar(scores, threshold)

	fmt.Printf("\nFull analysis against best match [%d] %s:\n", best.ID, best.Title)
	metrics := scores.Metrics()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-22s %.3f\n", name, metrics[name])
	}
	fmt.Printf("  %-22s %.3f\n", "overall", scores.Overall)
	fmt.Printf("\nVerdict: duplicate=%v (%s)\n", verdict, reason)
	return nil
}
