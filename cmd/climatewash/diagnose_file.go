package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/climatewash/internal/media"
	"github.com/jonathan/climatewash/internal/observability"
	"github.com/jonathan/climatewash/internal/pipeline"
)

var diagnoseImageCmd = &cobra.Command{
	Use:   "image PATH",
	Short: "Diagnose an image (PNG, JPEG, GIF or WebP)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, data, err := readUpload(args[0])
		if err != nil {
			return err
		}
		if verbose {
			if info, err := media.ImageInfo(data); err == nil {
				observability.NewPrinter(cmd.OutOrStdout()).PrintMediaInfo(name, info)
			}
		}
		return runDiagnosis(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (*pipeline.Diagnosis, error) {
			return a.diagnoser.DiagnoseImage(ctx, name, data, opts)
		})
	},
}

var diagnoseDocumentCmd = &cobra.Command{
	Use:     "document PATH",
	Aliases: []string{"pdf"},
	Short:   "Diagnose a PDF document",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, data, err := readUpload(args[0])
		if err != nil {
			return err
		}
		if verbose {
			if info, err := media.PDFInfo(data); err == nil {
				observability.NewPrinter(cmd.OutOrStdout()).PrintMediaInfo(name, info)
			}
		}
		return runDiagnosis(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (*pipeline.Diagnosis, error) {
			return a.diagnoser.DiagnoseDocument(ctx, name, data, opts)
		})
	},
}

func init() {
	diagnoseCmd.AddCommand(diagnoseImageCmd, diagnoseDocumentCmd)
}

// readUpload reads a local file as if it were uploaded under its base name
func readUpload(path string) (string, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return filepath.Base(path), data, nil
}
