package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/climatewash/internal/observability"
	"github.com/jonathan/climatewash/internal/pipeline"
	"github.com/jonathan/climatewash/internal/report"
)

var (
	diagVersion         string
	diagEmpowermentOnly bool
	diagExport          bool
	diagJSONOut         string
	diagReportOut       string
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Diagnose one piece of content for greenwashing risk",
	Long: `Diagnose text, an image, a PDF document, a web page or a video.

The result is printed as a summary box. Use --json-out and --report-out to save the
JSON result and the Markdown report; --json-out - writes the JSON to stdout instead of the summary.`,
}

func init() {
	flags := diagnoseCmd.PersistentFlags()
	flags.StringVar(&diagVersion, "criteria-version", "", "Criteria version (defaults to criteria.version or the criteria file default)")
	flags.BoolVar(&diagEmpowermentOnly, "empowerment-only", false, "Evaluate against the Empowering Consumers Directive only (defaults to the inverse of criteria.green_claims)")
	flags.BoolVar(&diagExport, "export", false, "Append the result to the configured spreadsheet")
	flags.StringVar(&diagJSONOut, "json-out", "", "Write the JSON result to this path (- for stdout)")
	flags.StringVar(&diagReportOut, "report-out", "", "Write the Markdown report to this path")
	rootCmd.AddCommand(diagnoseCmd)
}

// diagnosisOptions builds the per-diagnosis options from the flags and configuration
func (a *app) diagnosisOptions(cmd *cobra.Command) pipeline.Options {
	opts := pipeline.Options{
		Version:         diagVersion,
		EmpowermentOnly: !a.cfg.Criteria.GreenClaims,
		Export:          diagExport,
	}
	if cmd.Flags().Changed("empowerment-only") {
		opts.EmpowermentOnly = diagEmpowermentOnly
	}
	if verbose {
		opts.OnProgress = func(event pipeline.ProgressEvent) {
			a.logger.WithField("step", event.Step).Info(event.Message)
		}
	}
	return opts
}

// runDiagnosis builds the app, runs diagnose and writes the outputs
func runDiagnosis(cmd *cobra.Command, diagnose func(ctx context.Context, a *app, opts pipeline.Options) (*pipeline.Diagnosis, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	diag, err := diagnose(ctx, a, a.diagnosisOptions(cmd))
	if err != nil {
		return err
	}
	return writeDiagnosis(cmd.OutOrStdout(), a.logger, diag, outputPaths{JSON: diagJSONOut, Report: diagReportOut})
}

// outputPaths names the optional files a diagnosis is saved to
type outputPaths struct {
	JSON   string
	Report string
}

// writeDiagnosis prints the result and saves the requested outputs.
// A failed diagnosis is reported as an error after the outputs are written.
func writeDiagnosis(out io.Writer, logger logrus.FieldLogger, diag *pipeline.Diagnosis, paths outputPaths) error {
	printer := observability.NewPrinter(out)
	result := diag.Result

	if diag.Transcript != nil && verbose {
		printer.PrintTranscript(diag.Transcript.Source, diag.Transcript.Outcome)
	}

	if paths.JSON != "" {
		data, err := report.JSON(result)
		if err != nil {
			return err
		}
		if paths.JSON == "-" {
			if _, err := out.Write(append(data, '\n')); err != nil {
				return err
			}
		} else if err := os.WriteFile(paths.JSON, data, 0644); err != nil {
			return fmt.Errorf("failed to write JSON result: %w", err)
		}
	}
	if paths.JSON != "-" {
		printer.PrintResult(result)
	}

	if paths.Report != "" {
		md, err := report.Markdown(result, diag.Timestamp)
		if err != nil {
			return err
		}
		if err := os.WriteFile(paths.Report, []byte(md), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	log := logger.WithField("diagnosis_id", diag.ID.String())
	if diag.Exported {
		log.Info("result exported")
	}
	if diag.ExportError != "" {
		log.WithField("error", diag.ExportError).Warn("export failed")
	}

	if !result.Success {
		return fmt.Errorf("diagnosis failed: %s", result.Error)
	}
	return nil
}
