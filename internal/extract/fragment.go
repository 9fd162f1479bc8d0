// Package extract turns downloaded media into evidence fragments: transcript
// text from the audio track, on-screen text from sampled frames, and
// optionally the vision model's reading of those frames. Extractors are
// independent; one failing does not stop the others.
package extract

import (
	"context"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media"
)

// Source identifies which extractor produced a fragment.
type Source string

const (
	SourceAudio  Source = "audio"
	SourceOCR    Source = "ocr"
	SourceVision Source = "vision"
)

// BaseConfidence is the prior reliability of a source, before any
// fragment-specific adjustment. Speech transcripts are more reliable than
// frame OCR; the vision model reads whole scenes and ranks highest.
func (s Source) BaseConfidence() float64 {
	switch s {
	case SourceAudio:
		return 0.7
	case SourceOCR:
		return 0.6
	case SourceVision:
		return 0.75
	default:
		return 0.5
	}
}

// Fragment is one piece of evidence extracted from a video.
//
// Most fragments carry raw text that fusion matches against the taxonomy
// lexicon. The vision extractor also emits label fragments, where Text is a
// taxonomy label the model recognized directly.
type Fragment struct {
	Source     Source
	Text       string
	Label      bool
	Confidence float64
	Evidence   string
	FrameRefs  []float64
}

// Extractor produces fragments from a downloaded asset.
type Extractor interface {
	Name() string
	Source() Source
	Extract(ctx context.Context, asset media.Asset) ([]Fragment, error)
}
