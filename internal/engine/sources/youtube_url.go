package sources

import (
	"net/url"
	"regexp"
	"strings"
)

// Validation messages keyed under the youtubeUrl field.
const (
	msgURLRequired   = "YouTube URL is required"
	msgURLMalformed  = "Please enter a valid URL"
	msgURLNotYouTube = "Please enter a valid YouTube video URL"
	URLField         = "youtubeUrl"
)

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// idEnd stops an id match from being the prefix of a longer token.
const idEnd = `(?:[^A-Za-z0-9_-]|$)`

// acceptedURLPatterns are the URL shapes the API accepts.
var acceptedURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?v=[A-Za-z0-9_-]{11}` + idEnd),
	regexp.MustCompile(`^https?://youtu\.be/[A-Za-z0-9_-]{11}` + idEnd),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/embed/[A-Za-z0-9_-]{11}` + idEnd),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/v/[A-Za-z0-9_-]{11}` + idEnd),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/shorts/[A-Za-z0-9_-]{11}` + idEnd),
}

// downloadURLPatterns is the narrower allow-list for URLs handed to yt-dlp.
// The URL becomes a process argument, so only shapes that cannot carry
// anything but a video id are admitted.
var downloadURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?v=[A-Za-z0-9_-]{11}(&[A-Za-z0-9_=&.%-]*)?$`),
	regexp.MustCompile(`^https?://youtu\.be/[A-Za-z0-9_-]{11}(\?[A-Za-z0-9_=&.%-]*)?$`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/shorts/[A-Za-z0-9_-]{11}(\?[A-Za-z0-9_=&.%-]*)?$`),
}

// videoIDPatterns are tried in order; the first structurally matching
// candidate that is also a valid id wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})` + idEnd),
	regexp.MustCompile(`youtube\.com/shorts/([^"&?/\s]{11})` + idEnd),
	regexp.MustCompile(`youtube\.com/embed/([^"&?/\s]{11})` + idEnd),
}

// IsValidVideoID reports whether id is exactly 11 characters of [A-Za-z0-9_-].
func IsValidVideoID(id string) bool {
	return videoIDRe.MatchString(id)
}

// ValidateURL checks raw against the accepted YouTube URL shapes.
// It returns nil when valid, otherwise the failed rules in order.
func ValidateURL(raw string) []string {
	if raw == "" {
		return []string{msgURLRequired, msgURLMalformed, msgURLNotYouTube}
	}
	if !isWellFormedURL(raw) {
		return []string{msgURLMalformed, msgURLNotYouTube}
	}
	if !matchesAny(acceptedURLPatterns, raw) {
		return []string{msgURLNotYouTube}
	}
	return nil
}

// IsDownloadableURL applies the strict allow-list required before a URL
// may be passed to the external downloader.
func IsDownloadableURL(raw string) bool {
	return isWellFormedURL(raw) && matchesAny(downloadURLPatterns, raw)
}

// WatchURL is the canonical watch URL for a validated video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ExtractVideoID returns the video id in rawURL, or "" when none is found.
func ExtractVideoID(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	for _, re := range videoIDPatterns {
		m := re.FindStringSubmatch(s)
		if len(m) >= 2 && IsValidVideoID(m[1]) {
			return m[1]
		}
	}
	return ""
}

func isWellFormedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
