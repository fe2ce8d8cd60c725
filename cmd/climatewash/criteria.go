package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jonathan/climatewash/internal/observability"
)

var criteriaJSON bool

var criteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "Show the diagnosis criteria versions, directives and risk levels",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		crit, err := loadCriteria(cfg)
		if err != nil {
			return err
		}

		if criteriaJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(crit)
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintCriteria(crit)
		return nil
	},
}

func init() {
	criteriaCmd.Flags().BoolVar(&criteriaJSON, "json", false, "Print the criteria as JSON")
	rootCmd.AddCommand(criteriaCmd)
}
