package platform_test

import (
	"testing"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/platform"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		url  string
		want jobs.Platform
	}{
		{"https://twitter.com/user/status/123", jobs.PlatformTwitter},
		{"https://x.com/user/status/123", jobs.PlatformTwitter},
		{"https://mobile.twitter.com/user/status/123", jobs.PlatformTwitter},
		{"https://t.co/abc123", jobs.PlatformTwitter},
		{"https://www.instagram.com/reel/abc/", jobs.PlatformInstagram},
		{"https://instagr.am/p/abc/", jobs.PlatformInstagram},
		{"https://www.facebook.com/watch/?v=123", jobs.PlatformFacebook},
		{"https://fb.watch/abc/", jobs.PlatformFacebook},
		{"https://m.facebook.com/story.php?id=1", jobs.PlatformFacebook},
		{"https://www.youtube.com/watch?v=abc", jobs.PlatformYouTube},
		{"https://youtu.be/abc", jobs.PlatformYouTube},
		{"https://example.com/video.mp4", jobs.PlatformUnknown},
		{"not a url", jobs.PlatformUnknown},
		{"", jobs.PlatformUnknown},
	}

	for _, tc := range cases {
		if got := platform.Detect(tc.url); got != tc.want {
			t.Errorf("Detect(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
