package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/climatewash/internal/criteria"
	"github.com/jonathan/climatewash/internal/export"
	"github.com/jonathan/climatewash/internal/fetch"
	"github.com/jonathan/climatewash/internal/history"
	"github.com/jonathan/climatewash/internal/llm"
	"github.com/jonathan/climatewash/internal/normalize"
	"github.com/jonathan/climatewash/internal/transcript"
	"github.com/jonathan/climatewash/internal/types"
)

type fakeBackend struct {
	mu       sync.Mutex
	prompts  []string
	response types.RawFindings
}

func (f *fakeBackend) AnalyzeText(_ context.Context, _, user string) types.RawFindings {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, user)
	return f.response
}

func (f *fakeBackend) AnalyzeImage(_ context.Context, _, user string, _ types.Media) types.RawFindings {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, user)
	return f.response
}

func (f *fakeBackend) Provider() llm.Provider { return llm.ProviderOpenAI }
func (f *fakeBackend) Close() error           { return nil }

type fakeFetcher struct {
	html string
	err  error
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) (*fetch.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fetch.Result{URL: url, HTML: f.html, StatusCode: 200}, nil
}

func (f *fakeFetcher) FetchImage(context.Context, string) (*fetch.Result, error) {
	return nil, errors.New("no images")
}

type fakeTracks struct {
	generated map[string][]transcript.Segment
}

func (t *fakeTracks) FindGenerated(_ context.Context, lang string) ([]transcript.Segment, error) {
	if segs, ok := t.generated[lang]; ok {
		return segs, nil
	}
	return nil, transcript.ErrNotFound
}

func (t *fakeTracks) FindManual(context.Context, string) ([]transcript.Segment, error) {
	return nil, transcript.ErrNotFound
}

type fakeProvider struct {
	tracks *fakeTracks
	err    error
}

func (p *fakeProvider) List(context.Context, string) (transcript.TrackList, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.tracks, nil
}

type memSheet struct {
	rows [][]string
}

func (s *memSheet) Values(context.Context) ([][]string, error) {
	out := make([][]string, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *memSheet) AppendRow(_ context.Context, values []string) error {
	s.rows = append(s.rows, append([]string(nil), values...))
	return nil
}

func (s *memSheet) UpdateCell(_ context.Context, row, col int, value string) error {
	for len(s.rows) < row {
		s.rows = append(s.rows, nil)
	}
	for len(s.rows[row-1]) < col {
		s.rows[row-1] = append(s.rows[row-1], "")
	}
	s.rows[row-1][col-1] = value
	return nil
}

type memBook struct {
	sheets map[string]*memSheet
}

func (b *memBook) Sheet(_ context.Context, title string) (export.Sheet, error) {
	if s, ok := b.sheets[title]; ok {
		return s, nil
	}
	return nil, export.ErrNotFound
}

func (b *memBook) AddSheet(_ context.Context, title string, _, _ int) (export.Sheet, error) {
	s := &memSheet{}
	b.sheets[title] = s
	return s, nil
}

type memStore struct {
	book *memBook
}

func (m *memStore) Open(context.Context, string) (export.Workbook, error) {
	return m.book, nil
}

type countingObserver struct {
	results []types.EvaluationResult
}

func (o *countingObserver) ObserveDiagnosis(r types.EvaluationResult) {
	o.results = append(o.results, r)
}

func twoViolations() types.RawFindings {
	return types.RawFindings{
		Violations: []types.Violation{
			{Category: "1.1", CategoryName: "Generic claims", PointsDeducted: 30},
			{Category: "2.1", CategoryName: "Offsetting", PointsDeducted: 25},
		},
		Recommendations: []types.Recommendation{{Issue: "vague", CurrentExpression: "eco", RecommendedExpression: "30% recycled"}},
		Summary:         "two issues",
	}
}

func newDiagnoser(t *testing.T, backend *fakeBackend, opts ...Option) *Diagnoser {
	t.Helper()
	crit, err := criteria.Default()
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	norm := normalize.New(backend, normalize.WithLogger(logger))
	opts = append([]Option{WithLogger(logger)}, opts...)
	return New(norm, crit, history.NewLog(), opts...)
}

func TestDiagnoseText(t *testing.T) {
	backend := &fakeBackend{response: twoViolations()}
	observer := &countingObserver{}
	d := newDiagnoser(t, backend, WithObserver(observer))

	var steps []string
	diag, err := d.DiagnoseText(context.Background(), "Our packaging is 100% eco friendly.", Options{
		OnProgress: func(e ProgressEvent) { steps = append(steps, e.Step) },
	})
	require.NoError(t, err)

	result := diag.Result
	assert.True(t, result.Success)
	assert.Equal(t, 45, result.Score)
	assert.Equal(t, "High Risk", result.OverallRisk)
	assert.Equal(t, types.ContentText, result.ContentType)
	assert.Equal(t, "v3", result.Version)
	assert.Equal(t, "Both directives", result.Directives)
	assert.Equal(t, "Our packaging is 100% eco friendly.", result.ContentSample)
	assert.Empty(t, result.Source)

	assert.Equal(t, []string{StepEvaluate, StepScore, StepRecord}, steps)
	assert.Len(t, observer.results, 1)

	entry, err := d.History().Get(diag.ID)
	require.NoError(t, err)
	assert.Equal(t, result, entry.Result)

	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], "GCD Art. 3")
}

func TestDiagnoseText_EmpowermentOnlyAndVersion(t *testing.T) {
	backend := &fakeBackend{response: types.RawFindings{Summary: "clean"}}
	d := newDiagnoser(t, backend)

	diag, err := d.DiagnoseText(context.Background(), "A plain statement about shipping times.", Options{Version: "v1", EmpowermentOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 100, diag.Result.Score)
	assert.Equal(t, "Low Risk", diag.Result.OverallRisk)
	assert.Equal(t, "v1", diag.Result.Version)
	assert.Equal(t, "Empowering Consumers Directive only", diag.Result.Directives)
	assert.NotContains(t, backend.prompts[0], "GCD Art. 3")
}

func TestDiagnoseText_InputErrors(t *testing.T) {
	backend := &fakeBackend{}
	d := newDiagnoser(t, backend)

	_, err := d.DiagnoseText(context.Background(), "too short", Options{})
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "text", inputErr.Field)

	_, err = d.DiagnoseText(context.Background(), "long enough text here", Options{Version: "v9"})
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "version", inputErr.Field)

	assert.Empty(t, backend.prompts)
	assert.Equal(t, 0, d.History().Len())
}

func TestDiagnoseText_BackendErrorIsRecorded(t *testing.T) {
	backend := &fakeBackend{response: types.ErrorFindings("rate_limited", "429")}
	d := newDiagnoser(t, backend)

	diag, err := d.DiagnoseText(context.Background(), "Carbon neutral since 2020.", Options{})
	require.NoError(t, err)
	assert.False(t, diag.Result.Success)
	assert.Equal(t, types.ErrorRisk, diag.Result.OverallRisk)
	assert.Equal(t, 0, diag.Result.Score)
	assert.Equal(t, "rate_limited", diag.Result.Error)
	assert.Equal(t, 1, d.History().Len())
}

func TestDiagnoseImageAndDocument_Samples(t *testing.T) {
	backend := &fakeBackend{response: twoViolations()}
	d := newDiagnoser(t, backend)

	diag, err := d.DiagnoseImage(context.Background(), "ad.png", []byte("not an image"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "Image file: ad.png", diag.Result.ContentSample)
	assert.False(t, diag.Result.Success, "unsupported data becomes an error result")

	diag, err = d.DiagnoseDocument(context.Background(), "report.pdf", []byte("%PDF-1.4\n1 0 obj\n<< /Type /Page >>\nendobj\n%%EOF"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "PDF file: report.pdf", diag.Result.ContentSample)
	assert.Equal(t, types.ContentDocument, diag.Result.ContentType)
	assert.True(t, diag.Result.Success)

	_, err = d.DiagnoseImage(context.Background(), "empty.png", nil, Options{})
	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestDiagnoseWebPage(t *testing.T) {
	backend := &fakeBackend{response: twoViolations()}
	fetcher := &fakeFetcher{html: "<html><body><p>We are a green company.</p></body></html>"}
	crit, err := criteria.Default()
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	d := New(normalize.New(backend, normalize.WithFetcher(fetcher), normalize.WithLogger(logger)), crit, history.NewLog(), WithLogger(logger))

	diag, err := d.DiagnoseWebPage(context.Background(), "https://example.com/about", Options{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/about", diag.Result.ContentSample)
	assert.Equal(t, types.ContentWebPage, diag.Result.ContentType)

	_, err = d.DiagnoseWebPage(context.Background(), "ftp://example.com", Options{})
	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestDiagnoseVideo(t *testing.T) {
	backend := &fakeBackend{response: twoViolations()}
	provider := &fakeProvider{tracks: &fakeTracks{generated: map[string][]transcript.Segment{
		"en": {{Text: "We offset"}, {Text: "all emissions"}},
	}}}
	d := newDiagnoser(t, backend, WithCascade(transcript.NewCascade(provider, transcript.DefaultLanguages())))

	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	diag, err := d.DiagnoseVideo(context.Background(), url, Options{})
	require.NoError(t, err)

	require.NotNil(t, diag.Transcript)
	assert.Equal(t, "dQw4w9WgXcQ", diag.Transcript.VideoID)
	assert.True(t, diag.Transcript.Outcome.OK)
	assert.Len(t, diag.Transcript.Outcome.Attempts, 3)
	assert.Equal(t, "YouTube: "+url, diag.Result.Source)
	assert.Equal(t, "We offset all emissions", diag.Result.ContentSample)
	assert.Equal(t, types.ContentTranscript, diag.Result.ContentType)
	assert.Equal(t, 45, diag.Result.Score)
}

func TestDiagnoseVideo_NoTranscript(t *testing.T) {
	backend := &fakeBackend{response: twoViolations()}
	provider := &fakeProvider{err: transcript.ErrDisabled}
	d := newDiagnoser(t, backend, WithCascade(transcript.NewCascade(provider, transcript.DefaultLanguages())))

	diag, err := d.DiagnoseVideo(context.Background(), "https://youtu.be/dQw4w9WgXcQ", Options{})
	require.NoError(t, err)
	assert.False(t, diag.Result.Success)
	assert.Equal(t, transcript.ReasonNoTranscript, diag.Result.Error)
	assert.Contains(t, diag.Result.Details, "generated/ja: disabled")
	assert.Empty(t, backend.prompts)
}

func TestAcquireYouTube_Errors(t *testing.T) {
	d := newDiagnoser(t, &fakeBackend{})
	_, err := d.AcquireYouTube(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrCaptionsNotConfigured)

	d = newDiagnoser(t, &fakeBackend{}, WithCascade(transcript.NewCascade(&fakeProvider{}, transcript.DefaultLanguages())))
	_, err = d.AcquireYouTube(context.Background(), "https://example.com/video")
	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestDiagnoseMedia_TranscriptionUnavailable(t *testing.T) {
	backend := &fakeBackend{response: twoViolations()}
	d := newDiagnoser(t, backend)
	assert.False(t, d.TranscriptionAvailable())

	diag, err := d.DiagnoseMedia(context.Background(), "clip.mp4", []byte("media"), Options{})
	require.NoError(t, err)
	assert.False(t, diag.Result.Success)
	assert.Equal(t, transcript.ReasonTranscriptionUnavailable, diag.Result.Error)
	assert.Equal(t, "Local media file: clip.mp4", diag.Result.Source)
}

func TestExport(t *testing.T) {
	backend := &fakeBackend{response: twoViolations()}
	store := &memStore{book: &memBook{sheets: map[string]*memSheet{}}}
	exporter := export.NewExporter(store, export.WithSettleDelay(0), export.WithLogger(logrus.New()))
	target := export.Target{SpreadsheetID: "sheet", SheetName: "Results"}
	d := newDiagnoser(t, backend, WithExporter(exporter, target))
	assert.True(t, d.ExportConfigured())

	var steps []string
	diag, err := d.DiagnoseText(context.Background(), "We are climate positive.", Options{
		Export:     true,
		OnProgress: func(e ProgressEvent) { steps = append(steps, e.Step) },
	})
	require.NoError(t, err)
	assert.True(t, diag.Exported)
	assert.Empty(t, diag.ExportError)
	assert.Equal(t, StepExport, steps[len(steps)-1])

	sheet := store.book.sheets["Results"]
	require.Len(t, sheet.rows, 2)
	assert.Equal(t, export.Header, sheet.rows[0])

	require.NoError(t, d.ExportEntry(context.Background(), diag.ID))
	assert.Len(t, sheet.rows, 3)
}

func TestExport_NotConfigured(t *testing.T) {
	d := newDiagnoser(t, &fakeBackend{response: twoViolations()})

	diag, err := d.DiagnoseText(context.Background(), "We are climate positive.", Options{Export: true})
	require.NoError(t, err)
	assert.False(t, diag.Exported)
	assert.Equal(t, ErrExportNotConfigured.Error(), diag.ExportError)
	assert.True(t, diag.Result.Success, "export failures leave the result untouched")
}

func TestWebInfo(t *testing.T) {
	fetcher := &fakeFetcher{html: `<html><head><title>Eco Shop</title><meta name="description" content="green goods"></head><body><p>Hello</p></body></html>`}
	d := newDiagnoser(t, &fakeBackend{}, WithFetcher(fetcher))

	info, err := d.WebInfo(context.Background(), "https://shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Eco Shop", info.Title)
	assert.Equal(t, "green goods", info.Description)

	fetcher.err = errors.New("connection refused")
	_, err = d.WebInfo(context.Background(), "https://shop.example.com")
	assert.Error(t, err)
}

func TestValidateText(t *testing.T) {
	assert.Error(t, ValidateText("   short   "))
	assert.NoError(t, ValidateText("ちょうど十文字のテキスト"))
}
