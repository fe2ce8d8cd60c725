package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonathan/climatewash/internal/pipeline"
)

var diagnoseWebCmd = &cobra.Command{
	Use:   "web URL",
	Short: "Diagnose a web page",
	Long: `Fetch a web page and diagnose its visible text together with its color impression.
When the text has no findings the first content image is diagnosed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnosis(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (*pipeline.Diagnosis, error) {
			return a.diagnoser.DiagnoseWebPage(ctx, args[0], opts)
		})
	},
}

func init() {
	diagnoseCmd.AddCommand(diagnoseWebCmd)
}
