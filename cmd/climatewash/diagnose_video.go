package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/climatewash/internal/observability"
	"github.com/jonathan/climatewash/internal/pipeline"
)

var (
	videoMedia          string
	videoTranscriptFile string
	videoSource         string
	videoTranscriptOnly string
)

var diagnoseVideoCmd = &cobra.Command{
	Use:   "video [YOUTUBE_URL]",
	Short: "Diagnose the narration of a video",
	Long: `Diagnose a YouTube video from its captions, a local media file via transcription
(--media), or a transcript saved earlier and possibly edited (--transcript-file).

With --transcript-only PATH the transcript is acquired and written to PATH without a diagnosis,
so it can be reviewed before running --transcript-file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiagnoseVideo,
}

func init() {
	flags := diagnoseVideoCmd.Flags()
	flags.StringVar(&videoMedia, "media", "", "Local audio or video file to transcribe")
	flags.StringVar(&videoTranscriptFile, "transcript-file", "", "Diagnose transcript text from this file")
	flags.StringVar(&videoSource, "source", "", "Source label for --transcript-file")
	flags.StringVar(&videoTranscriptOnly, "transcript-only", "", "Acquire the transcript, write it to this path and stop")
	diagnoseCmd.AddCommand(diagnoseVideoCmd)
}

func runDiagnoseVideo(cmd *cobra.Command, args []string) error {
	inputs := len(args)
	if videoMedia != "" {
		inputs++
	}
	if videoTranscriptFile != "" {
		inputs++
	}
	if inputs != 1 {
		return fmt.Errorf("exactly one of a YouTube URL, --media or --transcript-file is required")
	}

	if videoTranscriptFile != "" {
		text, err := readTextInput(nil, videoTranscriptFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return runDiagnosis(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (*pipeline.Diagnosis, error) {
			return a.diagnoser.DiagnoseTranscript(ctx, text, videoSource, opts)
		})
	}

	if videoTranscriptOnly != "" {
		return acquireTranscript(cmd, args)
	}

	if videoMedia != "" {
		name, data, err := readUpload(videoMedia)
		if err != nil {
			return err
		}
		return runDiagnosis(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (*pipeline.Diagnosis, error) {
			return a.diagnoser.DiagnoseMedia(ctx, name, data, opts)
		})
	}

	return runDiagnosis(cmd, func(ctx context.Context, a *app, opts pipeline.Options) (*pipeline.Diagnosis, error) {
		return a.diagnoser.DiagnoseVideo(ctx, args[0], opts)
	})
}

func acquireTranscript(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var tr *pipeline.TranscriptResult
	if videoMedia != "" {
		name, data, err := readUpload(videoMedia)
		if err != nil {
			return err
		}
		tr, err = a.diagnoser.TranscribeMedia(ctx, name, data)
		if err != nil {
			return err
		}
	} else {
		tr, err = a.diagnoser.AcquireYouTube(ctx, args[0])
		if err != nil {
			return err
		}
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintTranscript(tr.Source, tr.Outcome)
	if !tr.Outcome.OK {
		return fmt.Errorf("%s", tr.Outcome.Reason)
	}
	if err := os.WriteFile(videoTranscriptOnly, []byte(tr.Outcome.Text), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Transcript written to %s; diagnose it with --transcript-file %s --source %q\n", videoTranscriptOnly, videoTranscriptOnly, tr.Source)
	return nil
}
