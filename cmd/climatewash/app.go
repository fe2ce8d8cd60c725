package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/climatewash/internal/config"
	"github.com/jonathan/climatewash/internal/criteria"
	"github.com/jonathan/climatewash/internal/export"
	"github.com/jonathan/climatewash/internal/export/sheets"
	"github.com/jonathan/climatewash/internal/fetch"
	"github.com/jonathan/climatewash/internal/history"
	"github.com/jonathan/climatewash/internal/llm"
	"github.com/jonathan/climatewash/internal/logging"
	"github.com/jonathan/climatewash/internal/metrics"
	"github.com/jonathan/climatewash/internal/normalize"
	"github.com/jonathan/climatewash/internal/pipeline"
	"github.com/jonathan/climatewash/internal/transcript"
)

// app holds the components shared by every command
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	metrics   *metrics.Recorder
	criteria  *criteria.Criteria
	backend   llm.Backend
	diagnoser *pipeline.Diagnoser
}

// loadConfig reads the configuration and builds the logger. --verbose raises the level to debug.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	if verbose && logger.GetLevel() < logrus.DebugLevel {
		logger.SetLevel(logrus.DebugLevel)
	}
	return cfg, logger, nil
}

// loadCriteria reads the criteria file and applies the configured default version
func loadCriteria(cfg *config.Config) (*criteria.Criteria, error) {
	crit, err := criteria.Load(cfg.Criteria.File)
	if err != nil {
		return nil, err
	}
	if cfg.Criteria.Version != "" && cfg.Criteria.Version != crit.DefaultVersion {
		crit.DefaultVersion = cfg.Criteria.Version
		if err := crit.Validate(); err != nil {
			return nil, fmt.Errorf("config error: 'criteria.version': %w", err)
		}
	}
	return crit, nil
}

func pageFetcher(cfg *config.Config) *normalize.HTTPFetcher {
	return &normalize.HTTPFetcher{PageOptions: cfg.PageOptions(), ImageOptions: cfg.ImageOptions()}
}

// newApp wires the evaluation backend, caption cascade, transcription and export into a Diagnoser.
// Captions, transcription and export are optional and stay disabled when not configured.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	crit, err := loadCriteria(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New(), criteria: crit}

	backendCfg := cfg.BackendConfig()
	a.backend, err = llm.NewBackend(ctx, backendCfg, llm.WithLogger(logger), llm.WithObserver(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", backendCfg.Provider, err)
	}

	fetcher := pageFetcher(cfg)
	normOpts := []normalize.Option{normalize.WithFetcher(fetcher), normalize.WithLogger(logger)}
	if cfg.Fetch.UseBrowser {
		normOpts = append(normOpts, normalize.WithRenderer(fetch.NewBrowserRenderer(cfg.Fetch.BrowserTimeout, logger)))
	}

	opts := []pipeline.Option{
		pipeline.WithFetcher(fetcher),
		pipeline.WithLogger(logger),
		pipeline.WithObserver(a.metrics),
	}

	cascade, err := a.captionCascade(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cascade != nil {
		opts = append(opts, pipeline.WithCascade(cascade))
	}

	transcription, err := a.transcription(ctx, backendCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	opts = append(opts, pipeline.WithTranscription(transcription))

	if cfg.ExportEnabled() {
		store, err := sheets.New(ctx, cfg.Export.CredentialsFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		exporter := export.NewExporter(store,
			export.WithSettleDelay(cfg.Export.SettleDelay),
			export.WithLogger(logger),
			export.WithObserver(a.metrics))
		opts = append(opts, pipeline.WithExporter(exporter, cfg.ExportTarget()))
	}

	a.diagnoser = pipeline.New(normalize.New(a.backend, normOpts...), crit, history.NewLog(), opts...)
	return a, nil
}

func (a *app) captionCascade(ctx context.Context) (*transcript.Cascade, error) {
	if a.cfg.Transcript.YouTubeAPIKey == "" {
		a.logger.Debug("no YouTube API key configured, caption acquisition disabled")
		return nil, nil
	}
	provider, err := transcript.NewYouTubeProvider(ctx, transcript.YouTubeConfig{
		APIKey:       a.cfg.Transcript.YouTubeAPIKey,
		FetchOptions: a.cfg.PageOptions(),
		Logger:       a.logger,
	})
	if err != nil {
		return nil, err
	}
	return transcript.NewCascade(provider, a.cfg.Languages(),
		transcript.WithLogger(a.logger),
		transcript.WithObserver(a.metrics)), nil
}

func (a *app) transcription(ctx context.Context, backendCfg *llm.Config) (*transcript.Transcription, error) {
	var transcriber transcript.Transcriber
	t, err := llm.NewTranscriber(backendCfg)
	switch {
	case err == nil:
		transcriber = t
	case errors.Is(err, llm.ErrTranscriptionUnsupported):
		a.logger.WithField("provider", backendCfg.Provider).Debug("provider cannot transcribe media, transcription disabled")
	default:
		return nil, err
	}

	var stager transcript.Stager = &transcript.TempStager{Dir: a.cfg.Staging.Dir}
	if a.cfg.Staging.Backend == config.StagingMinIO {
		s, err := transcript.NewMinIOStager(ctx, a.cfg.MinIO())
		if err != nil {
			return nil, err
		}
		stager = s
	}
	return transcript.NewTranscription(transcriber, stager,
		transcript.WithLogger(a.logger),
		transcript.WithObserver(a.metrics)), nil
}

// Close releases the backend
func (a *app) Close() {
	if a.backend == nil {
		return
	}
	if err := a.backend.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close backend")
	}
}
