package main

import (
	"fmt"
	"os"
	"spyosint/internal/config"

	"github.com/spf13/cobra"
)

var (
	fixtureMode bool
	// flagKeys override the environment and key file
	flagKeys config.KeyFile
)

var rootCmd = &cobra.Command{
	Use:   "spyosint",
	Short: "OSINT lookups, correlation and reporting",
	Long: `SpyOSINT queries threat-intelligence and reconnaissance providers
(VirusTotal, Shodan, WHOIS, Wayback Machine, Common Crawl, social platforms),
normalizes their answers and correlates the results into a risk report.

Run "spyosint serve" to start the dashboard API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&fixtureMode, "fixtures", false, "answer with canned provider data instead of calling the network")
	rootCmd.PersistentFlags().StringVar(&flagKeys.VirusTotalAPIKey, "virustotal-key", "", "VirusTotal API key")
	rootCmd.PersistentFlags().StringVar(&flagKeys.ShodanAPIKey, "shodan-key", "", "Shodan API key")
	rootCmd.PersistentFlags().StringVar(&flagKeys.OpenRouterAPIKey, "openrouter-key", "", "OpenRouter API key")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(keysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		os.Exit(1)
	}
}
