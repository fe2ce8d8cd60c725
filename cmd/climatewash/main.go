// Package main provides the climatewash command line interface and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "climatewash",
	Short: "Greenwashing risk diagnosis for marketing content",
	Long: `ClimateWash evaluates text, images, PDF documents, web pages and video narration against
EU environmental claims rules and reports a 0-100 score, a risk level, detected violations
and suggested rewrites.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to climatewash.yaml (defaults to ./climatewash.yaml or ./config/climatewash.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print progress and detailed information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
