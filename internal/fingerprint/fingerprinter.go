package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
)

// Runner executes ffmpeg and returns its stdout. Overridable in tests.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

var run Runner = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(errOut.String())
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, lastLine(detail))
	}
	return out.Bytes(), nil
}

// SetRunner replaces the ffmpeg runner, returning a restore function.
func SetRunner(r Runner) func() {
	previous := run
	run = r
	return func() { run = previous }
}

// Fingerprinter extracts one representative frame and hashes it.
type Fingerprinter struct {
	ffmpegBinary  string
	frameFraction float64
}

// New builds a Fingerprinter. frameFraction is the fraction of the video's
// duration at which the representative frame is taken.
func New(ffmpegBinary string, frameFraction float64) *Fingerprinter {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if frameFraction <= 0 || frameFraction >= 1 {
		frameFraction = 0.25
	}
	return &Fingerprinter{ffmpegBinary: ffmpegBinary, frameFraction: frameFraction}
}

// Compute hashes the representative frame of the video at path. Failures are
// wrapped as fingerprint errors so the retry policy can apply its tighter
// fingerprint attempt limit.
func (f *Fingerprinter) Compute(ctx context.Context, path string, durationSeconds float64) (uint64, error) {
	if durationSeconds <= 0 {
		return 0, services.Wrap(services.ErrFingerprint, "dedup_checking", "fingerprint", "media has no usable duration", nil)
	}

	seek := durationSeconds * f.frameFraction
	args := []string{
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", seek),
		"-i", path,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", hashWidth, hashHeight),
		"-pix_fmt", "gray",
		"-f", "rawvideo",
		"-",
	}

	raw, err := run(ctx, f.ffmpegBinary, args...)
	if err != nil {
		return 0, services.Wrap(services.ErrFingerprint, "dedup_checking", "fingerprint", "extract frame", err)
	}
	if len(raw) < FrameBytes {
		return 0, services.Wrap(services.ErrFingerprint, "dedup_checking", "fingerprint",
			fmt.Sprintf("short frame read: %d bytes", len(raw)), nil)
	}

	hash, err := DHash(raw[:FrameBytes])
	if err != nil {
		return 0, services.Wrap(services.ErrFingerprint, "dedup_checking", "fingerprint", "hash frame", err)
	}
	return hash, nil
}

// IsFingerprintError reports whether an error came from fingerprinting.
func IsFingerprintError(err error) bool {
	return errors.Is(err, services.ErrFingerprint)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return s
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
