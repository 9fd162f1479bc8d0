// Package whisper wraps speech transcription via the whisper.cpp CLI.
package whisper

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
)

// Runner executes a binary and returns its stdout. Overridable in tests.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

var run Runner = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", filepath.Base(binary), err, strings.TrimSpace(errOut.String()))
	}
	return out.Bytes(), nil
}

// SetRunner replaces the command runner, returning a restore function.
func SetRunner(r Runner) func() {
	previous := run
	run = r
	return func() { run = previous }
}

// Transcriber runs whisper.cpp over audio extracted from a video.
type Transcriber struct {
	binary       string
	modelPath    string
	ffmpegBinary string
	timeout      time.Duration
}

// New builds a Transcriber from configuration.
func New(cfg *config.Config) *Transcriber {
	binary := strings.TrimSpace(cfg.Transcription.Binary)
	if binary == "" {
		binary = "whisper-cli"
	}
	timeout := time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Transcriber{
		binary:       binary,
		modelPath:    strings.TrimSpace(cfg.Transcription.ModelPath),
		ffmpegBinary: cfg.FFmpegBinary(),
		timeout:      timeout,
	}
}

// ExtractAudio pulls a 16 kHz mono WAV from the video, the input format
// whisper.cpp expects. The WAV is written next to the video file.
func (t *Transcriber) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	audioPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".wav"
	args := []string{
		"-v", "error",
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		audioPath,
	}
	if _, err := run(ctx, t.ffmpegBinary, args...); err != nil {
		return "", services.Wrap(services.ErrExtraction, "extracting", "extract_audio", "demux audio track", err)
	}
	return audioPath, nil
}

// Transcribe runs whisper.cpp over the WAV file. language may be "auto" or a
// two-letter code to force decoding in that language.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	if t.modelPath == "" {
		return "", services.Wrap(services.ErrConfiguration, "extracting", "transcribe", "transcription model_path not set", nil)
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = "auto"
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := []string{
		"-m", t.modelPath,
		"-f", audioPath,
		"-l", language,
		"--no-timestamps",
	}
	output, err := run(ctx, t.binary, args...)
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, "extracting", "transcribe", "run transcription", err)
	}
	return cleanTranscript(string(output)), nil
}

// cleanTranscript strips whisper.cpp's non-speech annotations and collapses
// whitespace.
func cleanTranscript(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Bracketed annotations like [MUSIC] or (inaudible).
		if (strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]")) ||
			(strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")")) {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}
