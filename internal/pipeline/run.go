// Package pipeline orchestrates a diagnosis: acquire, normalize, evaluate, score, record and export.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/climatewash/internal/criteria"
	"github.com/jonathan/climatewash/internal/export"
	"github.com/jonathan/climatewash/internal/fetch"
	"github.com/jonathan/climatewash/internal/history"
	"github.com/jonathan/climatewash/internal/normalize"
	"github.com/jonathan/climatewash/internal/scoring"
	"github.com/jonathan/climatewash/internal/transcript"
	"github.com/jonathan/climatewash/internal/types"
)

// MinTextLength is the minimum number of characters accepted for text diagnoses
const MinTextLength = 10

// Progress steps, in the order they are emitted
const (
	StepAcquire  = "acquire"
	StepEvaluate = "evaluate"
	StepScore    = "score"
	StepRecord   = "record"
	StepExport   = "export"
)

// ProgressEvent represents a progress update during a diagnosis
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when diagnosis progress occurs
type ProgressCallback func(event ProgressEvent)

// Observer is notified of every finished diagnosis
type Observer interface {
	ObserveDiagnosis(result types.EvaluationResult)
}

// Options holds the per-diagnosis choices
type Options struct {
	// Version is the criteria version; empty selects the configured default
	Version string
	// EmpowermentOnly leaves the green claims sections out of the criteria
	EmpowermentOnly bool
	// Export writes the result to the configured spreadsheet
	Export     bool
	OnProgress ProgressCallback
}

// TranscriptResult is an acquired or transcribed video narration
type TranscriptResult struct {
	VideoID  string             `json:"video_id,omitempty"`
	EmbedURL string             `json:"embed_url,omitempty"`
	Source   string             `json:"source"`
	Outcome  transcript.Outcome `json:"outcome"`
}

// Diagnosis is a recorded result
type Diagnosis struct {
	ID          uuid.UUID              `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Result      types.EvaluationResult `json:"result"`
	Transcript  *TranscriptResult      `json:"transcript,omitempty"`
	Exported    bool                   `json:"exported"`
	ExportError string                 `json:"export_error,omitempty"`
}

// Diagnoser runs diagnoses against one criteria set and records them in a caller-owned history
type Diagnoser struct {
	normalizer    *normalize.Normalizer
	criteria      *criteria.Criteria
	history       *history.Log
	fetcher       normalize.PageFetcher
	cascade       *transcript.Cascade
	transcription *transcript.Transcription
	exporter      *export.Exporter
	target        export.Target
	observer      Observer
	logger        logrus.FieldLogger
}

// Option configures a Diagnoser
type Option func(*Diagnoser)

// WithCascade enables caption acquisition for YouTube videos
func WithCascade(c *transcript.Cascade) Option {
	return func(d *Diagnoser) { d.cascade = c }
}

// WithTranscription sets the transcription path for uploaded media
func WithTranscription(t *transcript.Transcription) Option {
	return func(d *Diagnoser) { d.transcription = t }
}

// WithExporter enables spreadsheet export to target
func WithExporter(e *export.Exporter, target export.Target) Option {
	return func(d *Diagnoser) {
		d.exporter = e
		d.target = target
	}
}

// WithFetcher sets the fetcher used for page information lookups
func WithFetcher(f normalize.PageFetcher) Option {
	return func(d *Diagnoser) { d.fetcher = f }
}

// WithObserver registers a diagnosis observer
func WithObserver(o Observer) Option {
	return func(d *Diagnoser) { d.observer = o }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Diagnoser) { d.logger = l }
}

// New creates a Diagnoser. Without WithTranscription, media transcription reports itself unavailable.
func New(normalizer *normalize.Normalizer, crit *criteria.Criteria, log *history.Log, opts ...Option) *Diagnoser {
	d := &Diagnoser{
		normalizer: normalizer,
		criteria:   crit,
		history:    log,
		fetcher:    normalize.NewHTTPFetcher(),
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.transcription == nil {
		d.transcription = transcript.NewTranscription(nil, nil)
	}
	if d.history == nil {
		d.history = history.NewLog()
	}
	return d
}

// History returns the log diagnoses are recorded in
func (d *Diagnoser) History() *history.Log {
	return d.history
}

// Criteria returns the criteria diagnoses are evaluated against
func (d *Diagnoser) Criteria() *criteria.Criteria {
	return d.criteria
}

// ExportConfigured reports whether results can be exported
func (d *Diagnoser) ExportConfigured() bool {
	return d.exporter != nil
}

// TranscriptionAvailable reports whether uploaded media can be transcribed
func (d *Diagnoser) TranscriptionAvailable() bool {
	return d.transcription.Available()
}

// ValidateText rejects text shorter than MinTextLength characters
func ValidateText(text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextLength {
		return &InputError{Field: "text", Message: fmt.Sprintf("at least %d characters are required", MinTextLength)}
	}
	return nil
}

// DiagnoseText evaluates plain text
func (d *Diagnoser) DiagnoseText(ctx context.Context, text string, opts Options) (*Diagnosis, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	return d.run(ctx, types.ContentText, types.SampleText(text), "", opts, func(sections []string) types.RawFindings {
		return d.normalizer.Text(ctx, text, sections)
	})
}

// DiagnoseImage evaluates an uploaded image
func (d *Diagnoser) DiagnoseImage(ctx context.Context, filename string, data []byte, opts Options) (*Diagnosis, error) {
	if len(data) == 0 {
		return nil, &InputError{Field: "file", Message: "image is empty"}
	}
	return d.run(ctx, types.ContentImage, "Image file: "+filename, "", opts, func(sections []string) types.RawFindings {
		return d.normalizer.Image(ctx, data, sections)
	})
}

// DiagnoseDocument evaluates an uploaded PDF
func (d *Diagnoser) DiagnoseDocument(ctx context.Context, filename string, data []byte, opts Options) (*Diagnosis, error) {
	if len(data) == 0 {
		return nil, &InputError{Field: "file", Message: "document is empty"}
	}
	return d.run(ctx, types.ContentDocument, "PDF file: "+filename, "", opts, func(sections []string) types.RawFindings {
		return d.normalizer.Document(ctx, filename, data, sections)
	})
}

// DiagnoseWebPage fetches and evaluates a web page
func (d *Diagnoser) DiagnoseWebPage(ctx context.Context, pageURL string, opts Options) (*Diagnosis, error) {
	if _, err := fetch.ValidateURL(pageURL); err != nil {
		return nil, &InputError{Field: "url", Message: "must start with http:// or https://", Cause: err}
	}
	return d.run(ctx, types.ContentWebPage, pageURL, "", opts, func(sections []string) types.RawFindings {
		return d.normalizer.WebPage(ctx, pageURL, sections)
	})
}

// DiagnoseTranscript evaluates video narration text. source labels its origin and may be empty.
func (d *Diagnoser) DiagnoseTranscript(ctx context.Context, text, source string, opts Options) (*Diagnosis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &InputError{Field: "text", Message: "transcript text is required"}
	}
	return d.run(ctx, types.ContentTranscript, types.SampleText(text), source, opts, func(sections []string) types.RawFindings {
		return d.normalizer.Transcript(ctx, text, source, sections)
	})
}

// DiagnoseVideo acquires the captions of a YouTube video and evaluates them.
// When no transcript can be acquired the diagnosis is recorded as an error result.
func (d *Diagnoser) DiagnoseVideo(ctx context.Context, videoURL string, opts Options) (*Diagnosis, error) {
	tr, err := d.AcquireYouTube(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	emit(opts, StepAcquire, fmt.Sprintf("caption acquisition finished after %d attempts", len(tr.Outcome.Attempts)), tr.Outcome)
	return d.diagnoseAcquired(ctx, tr, opts)
}

// DiagnoseMedia transcribes an uploaded media file and evaluates the narration
func (d *Diagnoser) DiagnoseMedia(ctx context.Context, filename string, data []byte, opts Options) (*Diagnosis, error) {
	tr, err := d.TranscribeMedia(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	emit(opts, StepAcquire, "transcription finished", tr.Outcome)
	return d.diagnoseAcquired(ctx, tr, opts)
}

func (d *Diagnoser) diagnoseAcquired(ctx context.Context, tr *TranscriptResult, opts Options) (*Diagnosis, error) {
	text := tr.Outcome.Text
	diag, err := d.run(ctx, types.ContentTranscript, types.SampleText(text), tr.Source, opts, func(sections []string) types.RawFindings {
		if !tr.Outcome.OK {
			return types.ErrorFindings(tr.Outcome.Reason, attemptSummary(tr.Outcome.Attempts))
		}
		return d.normalizer.Transcript(ctx, text, tr.Source, sections)
	})
	if err != nil {
		return nil, err
	}
	diag.Transcript = tr
	return diag, nil
}

// AcquireYouTube runs the caption cascade for a YouTube URL.
// Only a malformed URL or a missing caption provider produce an error.
func (d *Diagnoser) AcquireYouTube(ctx context.Context, videoURL string) (*TranscriptResult, error) {
	if d.cascade == nil {
		return nil, ErrCaptionsNotConfigured
	}
	id, err := transcript.VideoID(videoURL)
	if err != nil {
		return nil, &InputError{Field: "url", Message: "not a YouTube video URL", Cause: err}
	}
	return &TranscriptResult{
		VideoID:  id,
		EmbedURL: transcript.EmbedURL(id),
		Source:   YouTubeSource(videoURL),
		Outcome:  d.cascade.Acquire(ctx, id),
	}, nil
}

// TranscribeMedia transcribes an uploaded media file
func (d *Diagnoser) TranscribeMedia(ctx context.Context, filename string, data []byte) (*TranscriptResult, error) {
	if len(data) == 0 {
		return nil, &InputError{Field: "file", Message: "media file is empty"}
	}
	return &TranscriptResult{
		Source:  MediaSource(filename),
		Outcome: d.transcription.Transcribe(ctx, data, filename),
	}, nil
}

// ExportEntry exports a recorded diagnosis
func (d *Diagnoser) ExportEntry(ctx context.Context, id uuid.UUID) error {
	entry, err := d.history.Get(id)
	if err != nil {
		return err
	}
	return d.export(ctx, entry.Result)
}

// YouTubeSource is the source label of a transcript acquired from a YouTube video
func YouTubeSource(videoURL string) string {
	return "YouTube: " + videoURL
}

// MediaSource is the source label of a transcript transcribed from an uploaded file
func MediaSource(filename string) string {
	return "Local media file: " + filename
}

func (d *Diagnoser) run(ctx context.Context, contentType types.ContentType, sample, source string, opts Options, evaluate func(sections []string) types.RawFindings) (*Diagnosis, error) {
	selection, err := d.criteria.Select(opts.Version, !opts.EmpowermentOnly)
	if err != nil {
		return nil, &InputError{Field: "version", Message: "unknown criteria version", Cause: err}
	}
	log := d.logger.WithFields(logrus.Fields{
		"content_type": contentType,
		"version":      selection.Version,
	})

	emit(opts, StepEvaluate, fmt.Sprintf("evaluating %s against %d criteria sections", contentType.Label(), len(selection.Sections)), nil)
	raw := evaluate(selection.Sections)

	result := scoring.Evaluate(raw, d.criteria.Table()).WithContext(types.DiagnosisContext{
		ContentType:   contentType,
		Version:       selection.Version,
		Directives:    selection.Directives,
		ContentSample: sample,
		Source:        source,
	})
	emit(opts, StepScore, fmt.Sprintf("score %d (%s)", result.Score, result.OverallRisk), result)

	entry := d.history.Append(result)
	emit(opts, StepRecord, "recorded diagnosis "+entry.ID.String(), nil)

	if d.observer != nil {
		d.observer.ObserveDiagnosis(result)
	}
	if result.Success {
		log.WithFields(logrus.Fields{"score": result.Score, "risk": result.OverallRisk}).Info("diagnosis complete")
	} else {
		log.WithFields(logrus.Fields{"error": result.Error, "details": result.Details}).Warn("diagnosis failed")
	}

	diag := &Diagnosis{ID: entry.ID, Timestamp: entry.Timestamp, Result: result}
	if opts.Export {
		if err := d.export(ctx, result); err != nil {
			log.WithError(err).Warn("export failed")
			diag.ExportError = err.Error()
			emit(opts, StepExport, "export failed", err.Error())
		} else {
			diag.Exported = true
			emit(opts, StepExport, "exported to "+d.target.SheetName, nil)
		}
	}
	return diag, nil
}

func (d *Diagnoser) export(ctx context.Context, result types.EvaluationResult) error {
	if d.exporter == nil {
		return ErrExportNotConfigured
	}
	return d.exporter.Export(ctx, d.target, result)
}

func emit(opts Options, step, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{Step: step, Message: message, Content: content})
	}
}

func attemptSummary(attempts []transcript.Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, a.Tier.String()+": "+string(a.Failure))
	}
	return strings.Join(parts, ", ")
}
