package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services/tesseract"
)

// OnScreenExtractor OCRs sampled frames and emits one fragment per frame
// that carried readable text.
type OnScreenExtractor struct {
	recognizer   *tesseract.Recognizer
	ffmpegBinary string
	minSamples   int
}

// NewOnScreenExtractor builds the OCR extractor from configuration.
func NewOnScreenExtractor(cfg *config.Config) *OnScreenExtractor {
	minSamples := cfg.OCR.MinSamples
	if minSamples <= 0 {
		minSamples = 5
	}
	return &OnScreenExtractor{
		recognizer:   tesseract.New(cfg),
		ffmpegBinary: cfg.FFmpegBinary(),
		minSamples:   minSamples,
	}
}

func (e *OnScreenExtractor) Name() string   { return "onscreen_text" }
func (e *OnScreenExtractor) Source() Source { return SourceOCR }

// Extract samples frames and OCRs each one. A frame whose recognition fails
// is skipped rather than failing the pass; overlays repeat across frames.
func (e *OnScreenExtractor) Extract(ctx context.Context, asset media.Asset) ([]Fragment, error) {
	frameDir, err := os.MkdirTemp(filepath.Dir(asset.Path), "frames-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(frameDir)

	samples, err := SampleFrames(ctx, e.ffmpegBinary, asset.Path, frameDir, asset.DurationSeconds, e.minSamples)
	if err != nil {
		return nil, err
	}

	var fragments []Fragment
	seen := make(map[string]int)
	for _, sample := range samples {
		text, recErr := e.recognizer.Recognize(ctx, sample.Path)
		if recErr != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		// The same overlay read from several frames is one fragment with
		// multiple frame references, not repeated evidence.
		if idx, ok := seen[text]; ok {
			fragments[idx].FrameRefs = append(fragments[idx].FrameRefs, sample.OffsetSeconds)
			continue
		}
		seen[text] = len(fragments)
		fragments = append(fragments, Fragment{
			Source:     SourceOCR,
			Text:       text,
			Confidence: SourceOCR.BaseConfidence(),
			FrameRefs:  []float64{sample.OffsetSeconds},
		})
	}
	return fragments, nil
}

var _ Extractor = (*OnScreenExtractor)(nil)
