package transcript

import "regexp"

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
}

// VideoID extracts the 11 character video id from a YouTube URL.
// Watch, short link and embed forms are recognized.
func VideoID(url string) (string, error) {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", ErrInvalidURL
}

// EmbedURL returns the embeddable player URL for a video id
func EmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID
}
