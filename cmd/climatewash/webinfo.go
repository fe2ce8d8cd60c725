package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jonathan/climatewash/internal/observability"
	"github.com/jonathan/climatewash/internal/pipeline"
)

var webinfoJSON bool

var webinfoCmd = &cobra.Command{
	Use:   "webinfo URL",
	Short: "Show the title, meta tags, text length and image count of a web page",
	Long:  `Fetch a web page and print basic metadata without diagnosing it. No evaluation backend is needed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		crit, err := loadCriteria(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		d := pipeline.New(nil, crit, nil, pipeline.WithFetcher(pageFetcher(cfg)), pipeline.WithLogger(logger))
		info, err := d.WebInfo(ctx, args[0])
		if err != nil {
			return err
		}

		if webinfoJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintPageInfo(info)
		return nil
	},
}

func init() {
	webinfoCmd.Flags().BoolVar(&webinfoJSON, "json", false, "Print the page info as JSON")
	rootCmd.AddCommand(webinfoCmd)
}
