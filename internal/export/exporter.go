// Package export appends diagnosis results to a spreadsheet and verifies the write.
package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/climatewash/internal/types"
)

// Defaults for new exporters and sheets
const (
	DefaultSettleDelay = time.Second
	DefaultSheetRows   = 1000
	NoErrorInformation = "no error information"
)

// Store opens spreadsheets by identifier
type Store interface {
	Open(ctx context.Context, id string) (Workbook, error)
}

// Workbook is one spreadsheet. Sheet returns ErrNotFound for a missing sheet.
type Workbook interface {
	Sheet(ctx context.Context, title string) (Sheet, error)
	AddSheet(ctx context.Context, title string, rows, cols int) (Sheet, error)
}

// Sheet is one tab. Rows and columns are 1-based.
type Sheet interface {
	Values(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, values []string) error
	UpdateCell(ctx context.Context, row, col int, value string) error
}

// Clock supplies the write timestamp
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Observer is notified of every export outcome
type Observer interface {
	ObserveExport(outcome, stage string)
}

// Target identifies the spreadsheet and sheet to write to
type Target struct {
	SpreadsheetID string `json:"spreadsheet_id" validate:"required"`
	SheetName     string `json:"sheet_name" validate:"required"`
}

// Exporter runs the export state machine.
// Calls are serialized so concurrent exports cannot compute the same row index.
type Exporter struct {
	store    Store
	clock    Clock
	settle   time.Duration
	sleep    func(context.Context, time.Duration) error
	logger   logrus.FieldLogger
	observer Observer

	mu      sync.Mutex
	lastErr string
}

// Option configures an Exporter
type Option func(*Exporter)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(e *Exporter) { e.clock = c }
}

// WithSettleDelay sets the wait between writing and verifying
func WithSettleDelay(d time.Duration) Option {
	return func(e *Exporter) { e.settle = d }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithObserver registers an outcome observer
func WithObserver(o Observer) Option {
	return func(e *Exporter) { e.observer = o }
}

// NewExporter creates an exporter writing to store
func NewExporter(store Store, opts ...Option) *Exporter {
	e := &Exporter{
		store:  store,
		clock:  SystemClock{},
		settle: DefaultSettleDelay,
		sleep:  sleepContext,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LastError returns the diagnostic of the most recent failed export
func (e *Exporter) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastErr == "" {
		return NoErrorInformation
	}
	return e.lastErr
}

// Export appends result as one row of target and verifies it was written.
// A nil return means the row was observed after the settle delay.
// No stage is retried; calling Export again may produce a duplicate row.
func (e *Exporter) Export(ctx context.Context, target Target, result types.EvaluationResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.WithFields(logrus.Fields{
		"spreadsheet_id": target.SpreadsheetID,
		"sheet":          target.SheetName,
	})

	err := e.export(ctx, target, result, log)
	if err != nil {
		e.lastErr = err.Error()
		stage := ""
		var exportErr *Error
		if errors.As(err, &exportErr) {
			stage = string(exportErr.Stage)
		}
		e.observe("failure", stage)
		log.WithError(err).Warn("export failed")
		return err
	}
	e.observe("success", "")
	log.Info("export verified")
	return nil
}

func (e *Exporter) export(ctx context.Context, target Target, result types.EvaluationResult, log logrus.FieldLogger) error {
	workbook, err := e.openTarget(ctx, target.SpreadsheetID)
	if err != nil {
		return err
	}

	sheet, err := e.ensureDestination(ctx, workbook, target.SheetName, log)
	if err != nil {
		return err
	}

	written := e.clock.Now()
	row := BuildRow(result, written)
	index, err := e.appendRow(ctx, sheet, row)
	if err != nil {
		return err
	}
	log.WithField("row", index).Debug("row written, verifying")

	return e.verifyWrite(ctx, sheet, index, written, row[0])
}

func (e *Exporter) openTarget(ctx context.Context, id string) (Workbook, error) {
	workbook, err := e.store.Open(ctx, id)
	if err == nil {
		return workbook, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, &Error{Stage: StageOpenTarget, Message: fmt.Sprintf("spreadsheet not found: ID=%s", id), Cause: err}
	}
	return nil, &Error{Stage: StageOpenTarget, Message: "spreadsheet API error", Cause: err}
}

func (e *Exporter) ensureDestination(ctx context.Context, workbook Workbook, name string, log logrus.FieldLogger) (Sheet, error) {
	sheet, err := workbook.Sheet(ctx, name)
	switch {
	case err == nil:
		values, err := sheet.Values(ctx)
		if err != nil {
			return nil, &Error{Stage: StageEnsureDestination, Message: "failed to read sheet " + name, Cause: err}
		}
		if len(values) > 0 {
			return sheet, nil
		}
	case errors.Is(err, ErrNotFound):
		log.Info("creating sheet")
		sheet, err = workbook.AddSheet(ctx, name, DefaultSheetRows, len(Header))
		if err != nil {
			return nil, &Error{Stage: StageEnsureDestination, Message: "failed to create sheet " + name, Cause: err}
		}
	default:
		return nil, &Error{Stage: StageEnsureDestination, Message: "failed to open sheet " + name, Cause: err}
	}

	if err := sheet.AppendRow(ctx, Header); err != nil {
		return nil, &Error{Stage: StageEnsureDestination, Message: "failed to write header row", Cause: err}
	}
	return sheet, nil
}

// appendRow writes each cell of the next free row individually and returns its index
func (e *Exporter) appendRow(ctx context.Context, sheet Sheet, row []string) (int, error) {
	values, err := sheet.Values(ctx)
	if err != nil {
		return 0, &Error{Stage: StageAppendRow, Message: "failed to read current rows", Cause: err}
	}
	index := len(values) + 1

	for col, value := range row {
		if err := sheet.UpdateCell(ctx, index, col+1, value); err != nil {
			return 0, &Error{
				Stage:   StageAppendRow,
				Message: fmt.Sprintf("failed to write row %d column %d", index, col+1),
				Cause:   err,
			}
		}
	}
	return index, nil
}

func (e *Exporter) verifyWrite(ctx context.Context, sheet Sheet, index int, written time.Time, expected string) error {
	if err := e.sleep(ctx, e.settle); err != nil {
		return &Error{Stage: StageVerifyWrite, Message: "interrupted while waiting to verify", Cause: err}
	}

	values, err := sheet.Values(ctx)
	if err != nil {
		return &Error{Stage: StageVerifyWrite, Message: "failed to re-read rows", Cause: err}
	}
	if len(values) < index {
		return &Error{
			Stage:   StageVerifyWrite,
			Message: fmt.Sprintf("row count too low after append (expected at least %d, observed %d)", index, len(values)),
		}
	}

	observed := ""
	if last := values[index-1]; len(last) > 0 {
		observed = last[0]
	}
	if !TimestampMatches(written, observed) {
		return &Error{
			Stage:   StageVerifyWrite,
			Message: fmt.Sprintf("row was not written as expected (expected: %s, observed: %s)", expected, observed),
		}
	}
	return nil
}

func (e *Exporter) observe(outcome, stage string) {
	if e.observer != nil {
		e.observer.ObserveExport(outcome, stage)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
