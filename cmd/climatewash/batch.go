package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/climatewash/internal/observability"
	"github.com/jonathan/climatewash/internal/pipeline"
	"github.com/jonathan/climatewash/internal/report"
)

var (
	batchConcurrency int
	batchOutDir      string
)

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Diagnose every item of a YAML batch file",
	Long: `Diagnose a list of items concurrently. The batch file looks like:

  items:
    - type: text
      value: "Our packaging is 100% eco friendly."
    - type: web
      value: https://example.com/sustainability
      version: v2
    - type: image
      value: ./ads/banner.png
    - type: video
      value: https://www.youtube.com/watch?v=...
    - type: transcript
      value: ./narration.txt
      source: "YouTube: https://www.youtube.com/watch?v=..."

Failed items are reported and do not stop the batch. The --export flag of diagnose applies per item.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 4, "Maximum diagnoses running at once")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "Write one JSON result per item to this directory")
	batchCmd.Flags().BoolVar(&diagExport, "export", false, "Append every result to the configured spreadsheet")
	rootCmd.AddCommand(batchCmd)
}

// batchItem is one entry of a batch file. value is text, a file path or a URL depending on type.
type batchItem struct {
	Type            string `yaml:"type"`
	Value           string `yaml:"value"`
	Source          string `yaml:"source"`
	Version         string `yaml:"version"`
	EmpowermentOnly *bool  `yaml:"empowerment_only"`
}

type batchFile struct {
	Items []batchItem `yaml:"items"`
}

var batchTypes = map[string]bool{"text": true, "image": true, "document": true, "web": true, "video": true, "media": true, "transcript": true}

// loadBatch parses and checks a batch file
func loadBatch(path string) ([]batchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid batch file: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("batch file %s has no items", path)
	}
	for i, item := range f.Items {
		if !batchTypes[item.Type] {
			return nil, fmt.Errorf("item %d: unknown type %q", i+1, item.Type)
		}
		if item.Value == "" {
			return nil, fmt.Errorf("item %d: value is required", i+1)
		}
	}
	return f.Items, nil
}

// batchOutcome is the diagnosis of one item, or the error that prevented it
type batchOutcome struct {
	Item      batchItem
	Diagnosis *pipeline.Diagnosis
	Err       error
}

// diagnoseItem dispatches one batch item to the Diagnoser
func diagnoseItem(ctx context.Context, d *pipeline.Diagnoser, item batchItem, opts pipeline.Options) (*pipeline.Diagnosis, error) {
	if item.Version != "" {
		opts.Version = item.Version
	}
	if item.EmpowermentOnly != nil {
		opts.EmpowermentOnly = *item.EmpowermentOnly
	}

	switch item.Type {
	case "text":
		return d.DiagnoseText(ctx, item.Value, opts)
	case "web":
		return d.DiagnoseWebPage(ctx, item.Value, opts)
	case "video":
		return d.DiagnoseVideo(ctx, item.Value, opts)
	case "transcript":
		text, err := os.ReadFile(item.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", item.Value, err)
		}
		return d.DiagnoseTranscript(ctx, string(text), item.Source, opts)
	}

	name, data, err := readUpload(item.Value)
	if err != nil {
		return nil, err
	}
	switch item.Type {
	case "image":
		return d.DiagnoseImage(ctx, name, data, opts)
	case "document":
		return d.DiagnoseDocument(ctx, name, data, opts)
	default:
		return d.DiagnoseMedia(ctx, name, data, opts)
	}
}

// diagnoseBatch runs every item with at most concurrency diagnoses in flight.
// Outcomes keep the order of items.
func diagnoseBatch(ctx context.Context, d *pipeline.Diagnoser, items []batchItem, opts pipeline.Options, concurrency int) []batchOutcome {
	outcomes := make([]batchOutcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i, item := range items {
		g.Go(func() error {
			diag, err := diagnoseItem(gctx, d, item, opts)
			outcomes[i] = batchOutcome{Item: item, Diagnosis: diag, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func runBatch(cmd *cobra.Command, args []string) error {
	items, err := loadBatch(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.diagnosisOptions(cmd)
	opts.OnProgress = nil
	outcomes := diagnoseBatch(ctx, a.diagnoser, items, opts, batchConcurrency)

	if batchOutDir != "" {
		if err := writeBatchResults(batchOutDir, outcomes); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	failed := printBatchSummary(out, outcomes)
	highRisk := a.criteria.Table().HighestRisk().Label
	observability.NewPrinter(out).PrintStats(a.diagnoser.History().Stats(highRisk))

	if failed > 0 {
		return fmt.Errorf("%d of %d items failed", failed, len(items))
	}
	return nil
}

// printBatchSummary prints one line per item and returns the number of failed items
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func printBatchSummary(out io.Writer, outcomes []batchOutcome) int {
	failed := 0
	for i, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
			fmt.Fprintf(out, "%3d  %-10s  ERROR  %v\n", i+1, o.Item.Type, o.Err)
		case !o.Diagnosis.Result.Success:
			failed++
			fmt.Fprintf(out, "%3d  %-10s  ERROR  %s\n", i+1, o.Item.Type, o.Diagnosis.Result.Error)
		default:
			r := o.Diagnosis.Result
			fmt.Fprintf(out, "%3d  %-10s  %5d  %s\n", i+1, o.Item.Type, r.Score, r.OverallRisk)
		}
	}
	return failed
}

// writeBatchResults writes the JSON result of every diagnosed item, prefixed with its position.
// A result that cannot be written does not stop the others.
func writeBatchResults(dir string, outcomes []batchOutcome) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	var errs []error
	for i, o := range outcomes {
		if o.Diagnosis == nil {
			continue
		}
		name := fmt.Sprintf("%03d_%s", i+1, report.JSONFilename(o.Diagnosis.Timestamp))
		data, err := report.JSON(o.Diagnosis.Result)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", i+1, err))
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
