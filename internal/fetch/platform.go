// Package fetch - platform.go detects which acquisition path a URL needs.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known content platform.
type Platform string

const (
	// PlatformYouTube is a YouTube video page
	PlatformYouTube Platform = "youtube"
	// PlatformWeb is any other web page
	PlatformWeb Platform = "web"
	// PlatformUnknown is an unparseable URL
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Host == "" {
		return PlatformUnknown
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be", "youtube-nocookie.com":
		return PlatformYouTube
	}

	return PlatformWeb
}
