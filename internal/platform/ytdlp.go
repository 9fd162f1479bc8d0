package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
)

// commandRunner executes a binary and returns stdout and stderr separately.
type commandRunner func(ctx context.Context, binary string, args ...string) (stdout, stderr []byte, err error)

func defaultRunner(ctx context.Context, binary string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err := cmd.Run()
	return out.Bytes(), errOut.Bytes(), err
}

// YtDlp downloads media through the yt-dlp CLI.
type YtDlp struct {
	binary        string
	ffprobeBinary string
	timeout       time.Duration
	run           commandRunner
}

// NewYtDlp builds the production gateway from configuration.
func NewYtDlp(cfg *config.Config) *YtDlp {
	binary := strings.TrimSpace(cfg.Download.Binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	timeout := time.Duration(cfg.Download.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &YtDlp{
		binary:        binary,
		ffprobeBinary: cfg.FFprobeBinary(),
		timeout:       timeout,
		run:           defaultRunner,
	}
}

// SetRunner replaces the command runner, returning a restore function.
func (y *YtDlp) SetRunner(r commandRunner) func() {
	previous := y.run
	y.run = r
	return func() { y.run = previous }
}

// infoJSON is the subset of yt-dlp's --print-json output the pipeline reads.
type infoJSON struct {
	Filename   string  `json:"_filename"`
	Filepath   string  `json:"filepath"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	UploadDate string  `json:"upload_date"`
	Extractor  string  `json:"extractor"`
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Fetch downloads the URL's media into destDir and probes the result.
func (y *YtDlp) Fetch(ctx context.Context, url, destDir string) (media.Asset, Metadata, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return media.Asset{}, Metadata{}, services.Wrap(services.ErrValidation, "fetch", "download", "empty url", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return media.Asset{}, Metadata{}, services.Wrap(services.ErrConfiguration, "fetch", "download", "create staging dir", err)
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--restrict-filenames",
		"-f", "b",
		"--print-json",
		"-o", destDir + "/%(id)s.%(ext)s",
		"--",
		url,
	}

	stdout, stderr, err := y.run(ctx, y.binary, args...)
	if err != nil {
		return media.Asset{}, Metadata{}, classifyDownloadError(err, string(stderr))
	}

	var info infoJSON
	if decodeErr := json.Unmarshal(bytes.TrimSpace(stdout), &info); decodeErr != nil {
		return media.Asset{}, Metadata{}, services.Wrap(services.ErrTransient, "fetch", "download", "parse yt-dlp output", decodeErr)
	}

	path := info.Filepath
	if path == "" {
		path = info.Filename
	}
	if path == "" {
		return media.Asset{}, Metadata{}, services.Wrap(services.ErrTransient, "fetch", "download", "yt-dlp reported no output file", nil)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return media.Asset{}, Metadata{}, services.Wrap(services.ErrTransient, "fetch", "download", "downloaded file missing", statErr)
	}

	asset, probeErr := media.Probe(ctx, y.ffprobeBinary, path)
	if probeErr != nil {
		return media.Asset{}, Metadata{}, services.Wrap(services.ErrExtraction, "fetch", "probe", "inspect downloaded media", probeErr)
	}

	// Prefer the platform's own metadata where ffprobe lacks it.
	if asset.DurationSeconds == 0 {
		asset.DurationSeconds = info.Duration
	}
	if asset.Width == 0 {
		asset.Width = info.Width
	}
	if asset.Height == 0 {
		asset.Height = info.Height
	}
	if asset.Title == "" {
		asset.Title = strings.TrimSpace(info.Title)
	}

	meta := Metadata{
		Title:      strings.TrimSpace(info.Title),
		Uploader:   strings.TrimSpace(info.Uploader),
		UploadDate: strings.TrimSpace(info.UploadDate),
		Extractor:  strings.TrimSpace(info.Extractor),
	}
	return asset, meta, nil
}

// classifyDownloadError maps yt-dlp stderr text onto the error taxonomy so
// the retry policy can distinguish permanent failures from transient ones.
func classifyDownloadError(err error, stderr string) error {
	lower := strings.ToLower(stderr)
	detail := firstStderrLine(stderr)
	wrap := func(marker error, msg string) error {
		if detail != "" {
			msg = msg + ": " + detail
		}
		return services.Wrap(marker, "fetch", "download", msg, err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return wrap(services.ErrTransient, "download timed out")
	case strings.Contains(lower, "sign in to confirm") ||
		strings.Contains(lower, "login required") ||
		strings.Contains(lower, "requested content is not available") && strings.Contains(lower, "log in") ||
		strings.Contains(lower, "nsfw tweet") ||
		strings.Contains(lower, "authentication"):
		return wrap(services.ErrAuthRequired, "platform requires authentication")
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests"):
		return wrap(services.ErrRateLimited, "platform rate limited the request")
	case strings.Contains(lower, "video unavailable") ||
		strings.Contains(lower, "account has been suspended") ||
		strings.Contains(lower, "tweet has been deleted") ||
		strings.Contains(lower, "content isn't available") ||
		strings.Contains(lower, "this post is unavailable") ||
		strings.Contains(lower, "removed"):
		return wrap(services.ErrRemoved, "content removed by platform")
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found") ||
		strings.Contains(lower, "unsupported url"):
		return wrap(services.ErrNotFound, "content not found")
	default:
		return wrap(services.ErrTransient, "download failed")
	}
}

func firstStderrLine(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		const limit = 200
		if len(line) > limit {
			line = line[:limit]
		}
		return line
	}
	return ""
}

var _ Gateway = (*YtDlp)(nil)

// FetchError returns a human hint for a classified download failure, used in
// status output.
func FetchError(err error) string {
	switch services.Kind(err) {
	case "auth_required":
		return "provide platform credentials or skip this URL"
	case "rate_limited":
		return "will retry after backoff"
	case "removed", "not_found":
		return "content is gone, job will not retry"
	default:
		return ""
	}
}
