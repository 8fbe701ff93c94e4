package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"notedup/cmd/handlers"
	"notedup/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notedup",
	Short: "notedup inspects the article history and checks candidates for duplicate content",
	Long: `notedup is the operator tool for the article duplicate-detection subsystem.

It reads the published-article history and answers two questions:
what has been published (history recent/stats/by-category), and how close
a candidate draft is to it (check).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.notedup.yaml)")

	rootCmd.AddCommand(handlers.NewHistoryCmd())
	rootCmd.AddCommand(handlers.NewCheckCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}
