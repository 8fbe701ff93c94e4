package handlers

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notedup/internal/config"
	"notedup/internal/history"
	"notedup/internal/logger"
)

// NewHistoryCmd creates the article-history inspection command.
func NewHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the published-article history",
		Long:  `List recent articles, filter by category, and show aggregate statistics for the published-article history.`,
	}

	historyCmd.AddCommand(newHistoryRecentCmd())
	historyCmd.AddCommand(newHistoryStatsCmd())
	historyCmd.AddCommand(newHistoryByCategoryCmd())

	return historyCmd
}

func newHistoryRecentCmd() *cobra.Command {
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently published articles",
		Run: func(cmd *cobra.Command, args []string) {
			limit, _ := cmd.Flags().GetInt("limit")
			runWithStore(func(store *history.Store) error {
				return runHistoryRecent(store, limit)
			})
		},
	}
	recentCmd.Flags().Int("limit", 10, "Maximum number of articles to list")
	return recentCmd
}

func newHistoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate history statistics",
		Run: func(cmd *cobra.Command, args []string) {
			runWithStore(runHistoryStats)
		},
	}
}

func newHistoryByCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "by-category <category>",
		Short: "List articles in a category (case-insensitive)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runWithStore(func(store *history.Store) error {
				return runHistoryByCategory(store, args[0])
			})
		},
	}
}

func runHistoryRecent(store *history.Store, limit int) error {
	articles := store.RecentArticles(limit)
	if len(articles) == 0 {
		fmt.Println("No articles in history.")
		return nil
	}

	fmt.Printf("📚 Recent Articles (%d)\n", len(articles))
	fmt.Println("========================")
	for _, article := range articles {
		fmt.Printf("[%d] %s\n", article.ID, article.Title)
		fmt.Printf("    published: %s  category: %s  type: %s  length: %d\n",
			article.CreatedAt.Format(time.RFC3339), valueOrDash(article.Category),
			valueOrDash(article.ArticleType), article.ContentLength)
		if article.NoteURL != "" {
			fmt.Printf("    url: %s\n", article.NoteURL)
		}
		if len(article.Keywords) > 0 {
			fmt.Printf("    keywords: %s\n", strings.Join(article.Keywords, ", "))
		}
	}
	return nil
}

func runHistoryStats(store *history.Store) error {
	stats := store.Statistics()

	fmt.Println("📊 History Statistics")
	fmt.Println("=====================")
	fmt.Printf("Total articles:         %d\n", stats.TotalArticles)
	fmt.Printf("Average content length: %.0f\n", stats.AverageContentLength)
	if stats.LastUpdated != nil {
		fmt.Printf("Last updated:           %s\n", stats.LastUpdated.Format(time.RFC3339))
	}

	printDistribution("By category", stats.CategoryDistribution)
	printDistribution("By article type", stats.TypeDistribution)
	return nil
}

func runHistoryByCategory(store *history.Store, category string) error {
	articles := store.ArticlesByCategory(category)
	if len(articles) == 0 {
		fmt.Printf("No articles in category %q.\n", category)
		return nil
	}

	fmt.Printf("📚 Articles in %q (%d)\n", category, len(articles))
	fmt.Println("========================")
	for _, article := range articles {
		fmt.Printf("[%d] %s (%s)\n", article.ID, article.Title, article.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func printDistribution(label string, distribution map[string]int) {
	if len(distribution) == 0 {
		return
	}
	keys := make([]string, 0, len(distribution))
	for k := range distribution {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\n%s:\n", label)
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, distribution[k])
	}
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// runWithStore opens the configured history store, runs fn, and reports any
// failure to the user.
func runWithStore(fn func(*history.Store) error) {
	store, closeStore, err := openStore()
	if err != nil {
		logger.Get().Error().Err(err).Msg("failed to open history store")
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer closeStore()

	if err := fn(store); err != nil {
		logger.Get().Error().Err(err).Msg("history command failed")
		fmt.Printf("Error: %v\n", err)
	}
}

// openStore builds the history store from configuration, selecting the JSON
// or SQLite backend.
func openStore() (*history.Store, func(), error) {
	cfg := config.Get()

	if cfg.History.Backend == "sqlite" {
		persister, err := history.NewSQLitePersister(cfg.App.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite history: %w", err)
		}
		closeStore := func() {
			if err := persister.Close(); err != nil {
				logger.Get().Warn().Err(err).Msg("failed to close history database")
			}
		}
		return history.NewStoreWithPersister(persister), closeStore, nil
	}

	return history.NewStore(cfg.App.DataDir), func() {}, nil
}
