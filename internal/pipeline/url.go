package pipeline

import "strings"

const (
	youtubeShortPrefix = "https://youtu.be/"
	youtubeWatchPrefix = "https://www.youtube.com/watch?v="
)

// Normalize trims the URL and rewrites youtu.be short links to the canonical
// watch URL, dropping their query string. Anything else is returned trimmed.
func Normalize(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if !strings.HasPrefix(u, youtubeShortPrefix) {
		return u
	}
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return youtubeWatchPrefix + strings.TrimPrefix(u, youtubeShortPrefix)
}

// IsSupportedVideoURL reports whether the URL points at YouTube.
func IsSupportedVideoURL(rawURL string) bool {
	u := strings.ToLower(rawURL)
	return strings.Contains(u, "youtube.com/") || strings.Contains(u, "youtu.be/")
}
