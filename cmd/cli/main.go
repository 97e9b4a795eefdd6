package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	flagURL     string
	flagToken   string
	flagJSON    bool
	flagDebug   bool
	flagTimeout int
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagectl",
		Short: "CLI for the page agent backend",
		Long:  "A command-line interface for analysing pages, driving browser automation, managing chat agents and API tokens, and talking to a widget.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "API server URL (env: PAGEAGENT_URL)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "API key or token (env: PAGEAGENT_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 0, "Request timeout in seconds (env: PAGEAGENT_TIMEOUT)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pagectl %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newAgentsCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newScreenshotCmd())
	rootCmd.AddCommand(newAutomateCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newTokensCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
