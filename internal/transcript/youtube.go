package transcript

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/jonathan/climatewash/internal/fetch"
)

// DefaultTimedTextURL serves caption track contents
const DefaultTimedTextURL = "https://www.youtube.com/api/timedtext"

// YouTubeConfig configures the YouTube caption provider
type YouTubeConfig struct {
	APIKey       string
	TimedTextURL string
	// ClientOptions are passed to the Data API client after the API key
	ClientOptions []option.ClientOption
	FetchOptions  *fetch.Options
	Logger        logrus.FieldLogger
}

// YouTubeProvider lists tracks with the YouTube Data API and reads their contents
// from the timedtext endpoint.
type YouTubeProvider struct {
	service      *youtube.Service
	timedTextURL string
	fetchOptions *fetch.Options
	logger       logrus.FieldLogger
}

// NewYouTubeProvider creates a caption provider
func NewYouTubeProvider(ctx context.Context, cfg YouTubeConfig) (*YouTubeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}
	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.ClientOptions...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, &ProviderError{Op: "create YouTube client", Cause: err}
	}

	p := &YouTubeProvider{
		service:      service,
		timedTextURL: cfg.TimedTextURL,
		fetchOptions: cfg.FetchOptions,
		logger:       cfg.Logger,
	}
	if p.timedTextURL == "" {
		p.timedTextURL = DefaultTimedTextURL
	}
	if p.fetchOptions == nil {
		p.fetchOptions = fetch.DefaultOptions()
		p.fetchOptions.OnlyStatusOK = true
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	return p, nil
}

// List implements CaptionProvider
func (p *YouTubeProvider) List(ctx context.Context, videoID string) (TrackList, error) {
	resp, err := p.service.Captions.List([]string{"snippet"}, videoID).Context(ctx).Do()
	if err != nil {
		return nil, listError(err)
	}

	tracks := &youtubeTracks{provider: p, videoID: videoID}
	for _, item := range resp.Items {
		if item.Snippet == nil {
			continue
		}
		tracks.tracks = append(tracks.tracks, captionTrack{
			language:  item.Snippet.Language,
			name:      item.Snippet.Name,
			generated: strings.EqualFold(item.Snippet.TrackKind, "asr"),
		})
	}
	if len(tracks.tracks) == 0 {
		return nil, ErrDisabled
	}

	p.logger.WithFields(logrus.Fields{"video_id": videoID, "tracks": len(tracks.tracks)}).Debug("listed caption tracks")
	return tracks, nil
}

func listError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrVideoUnavailable, apiErr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrDisabled, apiErr.Message)
		}
	}
	return &ProviderError{Op: "list caption tracks", Cause: err}
}

type captionTrack struct {
	language  string
	name      string
	generated bool
}

type youtubeTracks struct {
	provider *YouTubeProvider
	videoID  string
	tracks   []captionTrack
}

func (t *youtubeTracks) FindGenerated(ctx context.Context, language string) ([]Segment, error) {
	return t.find(ctx, language, true)
}

func (t *youtubeTracks) FindManual(ctx context.Context, language string) ([]Segment, error) {
	return t.find(ctx, language, false)
}

func (t *youtubeTracks) find(ctx context.Context, language string, generated bool) ([]Segment, error) {
	for _, track := range t.tracks {
		if track.generated == generated && strings.EqualFold(track.language, language) {
			return t.provider.fetchTrack(ctx, t.videoID, track)
		}
	}
	return nil, ErrNotFound
}

func (p *YouTubeProvider) fetchTrack(ctx context.Context, videoID string, track captionTrack) ([]Segment, error) {
	query := url.Values{}
	query.Set("v", videoID)
	query.Set("lang", track.language)
	if track.generated {
		query.Set("kind", "asr")
	}
	if track.name != "" {
		query.Set("name", track.name)
	}

	res, err := fetch.URL(ctx, p.timedTextURL+"?"+query.Encode(), p.fetchOptions)
	if err != nil {
		return nil, &ProviderError{Op: "fetch caption track", Cause: err}
	}
	return parseTimedText(res.Body)
}

type timedText struct {
	Lines []struct {
		Start    float64 `xml:"start,attr"`
		Duration float64 `xml:"dur,attr"`
		Text     string  `xml:",chardata"`
	} `xml:"text"`
}

// parseTimedText decodes the timedtext XML format.
// Line text is HTML-escaped a second time inside the XML and is unescaped here.
func parseTimedText(data []byte) ([]Segment, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var doc timedText
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ProviderError{Op: "parse caption track", Cause: err}
	}

	segments := make([]Segment, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text, Start: line.Start, Duration: line.Duration})
	}
	return segments, nil
}
