package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// frameOffsets are the fractions of the video's duration where frames are
// sampled. Clustered at the start and end: social video overlays (captions,
// location cards, watermarks) appear in the opening seconds and closing
// credits far more often than mid-clip.
var frameOffsets = []float64{0.03, 0.08, 0.15, 0.85, 0.95}

// Runner executes ffmpeg and returns its stdout. Overridable in tests.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

var runFFmpeg Runner = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(errOut.String()))
	}
	return out.Bytes(), nil
}

// SetRunner replaces the ffmpeg runner, returning a restore function.
func SetRunner(r Runner) func() {
	previous := runFFmpeg
	runFFmpeg = r
	return func() { runFFmpeg = previous }
}

// FrameSample is one extracted frame image and its position in the video.
type FrameSample struct {
	Path          string
	OffsetSeconds float64
}

// SampleFrames extracts JPEG frames at the standard offsets into destDir.
// At least minSamples frames are produced for videos long enough to hold
// them; extra offsets are spread evenly when the standard set is too small.
func SampleFrames(ctx context.Context, ffmpegBinary, videoPath, destDir string, durationSeconds float64, minSamples int) ([]FrameSample, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("sample frames: no usable duration")
	}

	offsets := make([]float64, len(frameOffsets))
	copy(offsets, frameOffsets)
	for i := 1; len(offsets) < minSamples; i++ {
		offsets = append(offsets, float64(i)/float64(minSamples+1))
	}

	var samples []FrameSample
	for i, fraction := range offsets {
		seek := durationSeconds * fraction
		framePath := filepath.Join(destDir, fmt.Sprintf("frame_%02d.jpg", i))
		args := []string{
			"-v", "error",
			"-y",
			"-ss", fmt.Sprintf("%.3f", seek),
			"-i", videoPath,
			"-frames:v", "1",
			"-q:v", "2",
			framePath,
		}
		if _, err := runFFmpeg(ctx, ffmpegBinary, args...); err != nil {
			// A seek past the last keyframe produces no output; skip it.
			continue
		}
		samples = append(samples, FrameSample{Path: framePath, OffsetSeconds: seek})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("sample frames: no frames extracted")
	}
	return samples, nil
}
