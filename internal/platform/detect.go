package platform

import (
	"net/url"
	"strings"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
)

// Detect maps a URL to its platform by hostname. Unknown hosts are still
// ingested; yt-dlp supports far more sites than the ones named here.
func Detect(rawURL string) jobs.Platform {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return jobs.PlatformUnknown
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	switch {
	case host == "twitter.com" || host == "x.com" || host == "t.co" ||
		strings.HasSuffix(host, ".twitter.com") || strings.HasSuffix(host, ".x.com"):
		return jobs.PlatformTwitter
	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com") || host == "instagr.am":
		return jobs.PlatformInstagram
	case host == "facebook.com" || host == "fb.watch" || host == "fb.com" ||
		strings.HasSuffix(host, ".facebook.com"):
		return jobs.PlatformFacebook
	case host == "youtube.com" || host == "youtu.be" ||
		strings.HasSuffix(host, ".youtube.com"):
		return jobs.PlatformYouTube
	default:
		return jobs.PlatformUnknown
	}
}
