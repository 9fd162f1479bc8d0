// Package tesseract wraps optical character recognition via the tesseract CLI.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
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
		return nil, fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(errOut.String()))
	}
	return out.Bytes(), nil
}

// SetRunner replaces the command runner, returning a restore function.
func SetRunner(r Runner) func() {
	previous := run
	run = r
	return func() { run = previous }
}

// Recognizer extracts on-screen text from frame images.
type Recognizer struct {
	binary    string
	languages string
	timeout   time.Duration
}

// New builds a Recognizer from configuration. languages is a tesseract
// language order like "ara+eng".
func New(cfg *config.Config) *Recognizer {
	binary := strings.TrimSpace(cfg.OCR.Binary)
	if binary == "" {
		binary = "tesseract"
	}
	languages := strings.TrimSpace(cfg.OCR.Languages)
	if languages == "" {
		languages = "ara+eng"
	}
	timeout := time.Duration(cfg.OCR.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Recognizer{binary: binary, languages: languages, timeout: timeout}
}

// Recognize runs OCR on one frame image and returns the cleaned text.
// "stdout" as the output base makes tesseract print instead of writing files.
func (r *Recognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	output, err := run(ctx, r.binary, imagePath, "stdout", "-l", r.languages)
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, "extracting", "ocr", "recognize frame text", err)
	}
	return cleanText(string(output)), nil
}

// cleanText collapses OCR output into single-space-separated words, dropping
// lines that are too short to be real text. Frame noise often decodes as
// isolated single characters.
func cleanText(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if len([]rune(line)) < 2 {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}
