package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// global flags
	clientID    string
	redirectURI string
	lrclibURL   string
	quoteSource string
	logFile     string
)

var rootCmd = &cobra.Command{
	Use:   "ambientdeck",
	Short: "terminal ambient dashboard with synced now-playing lyrics",
	Long: `ambientdeck is a terminal dashboard for an always-on display.
it shows a big clock, local weather, a daily quote, and the track currently
playing on spotify with time-synced lyrics highlighted as the song plays.

when run without a subcommand, it starts the interactive dashboard.`,
	Version: "1.0.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		// default behavior: run the dashboard
		return runDashboard(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&clientID, "client-id", "c", "", "spotify application client id")
	rootCmd.PersistentFlags().StringVar(&redirectURI, "redirect-uri", "", "oauth redirect uri (must match the app registration)")
	rootCmd.PersistentFlags().StringVar(&lrclibURL, "lrclib-url", "", "custom lrclib search api url")
	rootCmd.PersistentFlags().StringVar(&quoteSource, "quote-source", "", "daily quote json file path or url")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of discarding them")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
