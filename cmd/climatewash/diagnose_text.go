package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/climatewash/internal/pipeline"
)

var diagTextFile string

var diagnoseTextCmd = &cobra.Command{
	Use:   "text [TEXT...]",
	Short: "Diagnose marketing copy",
	Long:  `Diagnose text given as arguments, read from --file, or from stdin with --file -.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readTextInput(args, diagTextFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := pipeline.ValidateText(text); err != nil {
			return err
		}
		return runDiagnosis(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (*pipeline.Diagnosis, error) {
			return a.diagnoser.DiagnoseText(ctx, text, opts)
		})
	},
}

func init() {
	diagnoseTextCmd.Flags().StringVarP(&diagTextFile, "file", "f", "", "Read the text from a file (- for stdin)")
	diagnoseCmd.AddCommand(diagnoseTextCmd)
}

// readTextInput returns the text from args, or from path when set
func readTextInput(args []string, path string, stdin io.Reader) (string, error) {
	switch {
	case path != "" && len(args) > 0:
		return "", fmt.Errorf("pass the text as arguments or with --file, not both")
	case path == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	default:
		return strings.Join(args, " "), nil
	}
}
