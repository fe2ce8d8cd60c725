package transcript

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Transcriber converts spoken audio in a media file to text
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Transcription acquires text from uploaded media through a speech-to-text service.
// A nil transcriber means the configured provider cannot transcribe.
type Transcription struct {
	transcriber Transcriber
	stager      Stager
	settings
}

// NewTranscription creates the transcription path. stager defaults to local temp files.
func NewTranscription(transcriber Transcriber, stager Stager, opts ...Option) *Transcription {
	if stager == nil {
		stager = &TempStager{}
	}
	return &Transcription{transcriber: transcriber, stager: stager, settings: newSettings(opts)}
}

// Available reports whether a transcriber is configured
func (t *Transcription) Available() bool {
	return t.transcriber != nil
}

// Transcribe stages data, transcribes it once and releases the staged copy.
// Every failure yields an unsuccessful Outcome with ReasonTranscriptionUnavailable.
func (t *Transcription) Transcribe(ctx context.Context, data []byte, filename string) Outcome {
	tier := Tier{Kind: KindTranscription}
	if !t.Available() {
		return t.fail(tier, FailureProviderError, "provider does not support audio transcription")
	}
	if len(data) == 0 {
		return t.fail(tier, FailureEmpty, "no media data")
	}

	log := t.logger.WithField("filename", filename)

	handle, err := t.stager.Stage(ctx, filename, data)
	if err != nil {
		log.WithError(err).Warn("failed to stage media")
		return t.fail(tier, FailureProviderError, err.Error())
	}
	defer func() {
		// released even when ctx is cancelled
		if err := handle.Release(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("failed to release staged media")
		}
	}()

	text, err := t.transcribe(ctx, handle)
	if err != nil {
		log.WithError(err).Warn("transcription failed")
		return t.fail(tier, FailureProviderError, err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return t.fail(tier, FailureEmpty, "transcription returned no text")
	}

	attempt := t.record(Attempt{Tier: tier})
	log.WithField("length", len(text)).Info("media transcribed")
	return Outcome{OK: true, Text: text, Tier: tier, Attempts: []Attempt{attempt}}
}

// transcribe reports a panicking transcriber as an error
func (t *Transcription) transcribe(ctx context.Context, handle Handle) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcriber panicked: %v", r)
		}
	}()

	r, err := handle.Open(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()
	return t.transcriber.Transcribe(ctx, handle.Name(), r)
}

func (t *Transcription) fail(tier Tier, failure Failure, detail string) Outcome {
	attempt := t.record(Attempt{Tier: tier, Failure: failure, Detail: detail})
	return Outcome{Tier: tier, Attempts: []Attempt{attempt}, Reason: ReasonTranscriptionUnavailable}
}
