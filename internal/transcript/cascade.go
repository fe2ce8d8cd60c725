// Package transcript obtains the narration of a video, either from published captions
// or by transcribing uploaded media.
package transcript

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// Reasons reported by an unsuccessful Outcome
const (
	ReasonNoTranscript             = "no transcript available"
	ReasonTranscriptionUnavailable = "transcription unavailable"
)

// Default caption languages, tried in this order
const (
	DefaultPrimaryLanguage  = "ja"
	DefaultFallbackLanguage = "en"
)

// TrackKind distinguishes how a transcript was produced
type TrackKind string

const (
	KindGenerated     TrackKind = "generated"
	KindManual        TrackKind = "manual"
	KindTranscription TrackKind = "transcription"
)

// Tier is one source in the acquisition order
type Tier struct {
	Kind     TrackKind `json:"kind"`
	Language string    `json:"language,omitempty"`
}

func (t Tier) String() string {
	if t.Language == "" {
		return string(t.Kind)
	}
	return string(t.Kind) + "/" + t.Language
}

// Failure enumerates why a tier produced no text
type Failure string

const (
	FailureNone            Failure = ""
	FailureListUnavailable Failure = "list_unavailable"
	FailureNotFound        Failure = "not_found"
	FailureDisabled        Failure = "disabled"
	FailureProviderError   Failure = "provider_error"
	FailureEmpty           Failure = "empty"
)

// Attempt records the result of trying one tier
type Attempt struct {
	Tier    Tier    `json:"tier"`
	Failure Failure `json:"failure,omitempty"`
	Detail  string  `json:"detail,omitempty"`
}

// OK reports whether the attempt produced text
func (a Attempt) OK() bool { return a.Failure == FailureNone }

func (a Attempt) outcomeLabel() string {
	if a.OK() {
		return "ok"
	}
	return string(a.Failure)
}

// Outcome is the result of an acquisition. It is never accompanied by an error.
type Outcome struct {
	OK       bool      `json:"ok"`
	Text     string    `json:"text,omitempty"`
	Tier     Tier      `json:"tier"`
	Attempts []Attempt `json:"attempts"`
	Reason   string    `json:"reason,omitempty"`
}

// Segment is one timed caption line
type Segment struct {
	Text     string
	Start    float64
	Duration float64
}

// JoinSegments concatenates segment text with single spaces
func JoinSegments(segments []Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// CaptionProvider lists the caption tracks of a video
type CaptionProvider interface {
	List(ctx context.Context, videoID string) (TrackList, error)
}

// TrackList looks up tracks of one video by kind and language.
// Both methods return ErrNotFound when no matching track exists.
type TrackList interface {
	FindGenerated(ctx context.Context, language string) ([]Segment, error)
	FindManual(ctx context.Context, language string) ([]Segment, error)
}

// Observer receives one call per attempted tier
type Observer interface {
	ObserveTranscriptAttempt(tier, outcome string)
}

// Languages are the primary and fallback caption languages
type Languages struct {
	Primary  string
	Fallback string
}

// DefaultLanguages returns Japanese then English
func DefaultLanguages() Languages {
	return Languages{Primary: DefaultPrimaryLanguage, Fallback: DefaultFallbackLanguage}
}

type settings struct {
	logger   logrus.FieldLogger
	observer Observer
}

// Option configures a Cascade or a Transcription
type Option func(*settings)

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *settings) { s.logger = l }
}

// WithObserver registers an attempt observer
func WithObserver(o Observer) Option {
	return func(s *settings) { s.observer = o }
}

func newSettings(opts []Option) settings {
	s := settings{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Cascade tries caption tiers in a fixed order and returns the first full transcript
type Cascade struct {
	provider CaptionProvider
	tiers    []Tier
	settings
}

// NewCascade creates a cascade over provider. Empty languages fall back to the defaults.
func NewCascade(provider CaptionProvider, languages Languages, opts ...Option) *Cascade {
	if languages.Primary == "" {
		languages.Primary = DefaultPrimaryLanguage
	}
	if languages.Fallback == "" {
		languages.Fallback = DefaultFallbackLanguage
	}
	return &Cascade{
		provider: provider,
		tiers: []Tier{
			{Kind: KindGenerated, Language: languages.Primary},
			{Kind: KindManual, Language: languages.Primary},
			{Kind: KindGenerated, Language: languages.Fallback},
			{Kind: KindManual, Language: languages.Fallback},
		},
		settings: newSettings(opts),
	}
}

// Tiers returns the acquisition order
func (c *Cascade) Tiers() []Tier {
	return append([]Tier(nil), c.tiers...)
}

// Acquire returns the transcript of videoID from the first tier that yields text.
// Later tiers are not attempted once one succeeds.
func (c *Cascade) Acquire(ctx context.Context, videoID string) Outcome {
	log := c.logger.WithField("video_id", videoID)
	outcome := Outcome{Attempts: make([]Attempt, 0, len(c.tiers))}

	tracks, err := c.provider.List(ctx, videoID)
	if err != nil {
		failure := FailureListUnavailable
		if errors.Is(err, ErrDisabled) {
			failure = FailureDisabled
		}
		log.WithError(err).Warn("caption tracks unavailable")
		for _, tier := range c.tiers {
			outcome.Attempts = append(outcome.Attempts, c.record(Attempt{Tier: tier, Failure: failure, Detail: err.Error()}))
		}
		outcome.Reason = ReasonNoTranscript
		return outcome
	}

	for _, tier := range c.tiers {
		text, attempt := c.try(ctx, tracks, tier)
		outcome.Attempts = append(outcome.Attempts, c.record(attempt))
		if !attempt.OK() {
			log.WithFields(logrus.Fields{"tier": tier.String(), "failure": attempt.Failure}).Debug("caption tier failed")
			continue
		}
		outcome.OK = true
		outcome.Text = text
		outcome.Tier = tier
		log.WithField("tier", tier.String()).Info("transcript acquired")
		return outcome
	}

	outcome.Reason = ReasonNoTranscript
	return outcome
}

func (c *Cascade) try(ctx context.Context, tracks TrackList, tier Tier) (string, Attempt) {
	attempt := Attempt{Tier: tier}

	var segments []Segment
	var err error
	switch tier.Kind {
	case KindGenerated:
		segments, err = tracks.FindGenerated(ctx, tier.Language)
	default:
		segments, err = tracks.FindManual(ctx, tier.Language)
	}
	if err != nil {
		attempt.Failure = failureOf(err)
		attempt.Detail = err.Error()
		return "", attempt
	}

	text := JoinSegments(segments)
	if strings.TrimSpace(text) == "" {
		attempt.Failure = FailureEmpty
		return "", attempt
	}
	return text, attempt
}

func (s settings) record(a Attempt) Attempt {
	if s.observer != nil {
		s.observer.ObserveTranscriptAttempt(a.Tier.String(), a.outcomeLabel())
	}
	return a
}

func failureOf(err error) Failure {
	switch {
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrDisabled):
		return FailureDisabled
	default:
		return FailureProviderError
	}
}
