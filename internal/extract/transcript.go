package extract

import (
	"context"
	"os"
	"strings"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services/whisper"
)

// TranscriptExtractor produces one fragment holding the speech transcript.
type TranscriptExtractor struct {
	transcriber      *whisper.Transcriber
	fallbackLanguage string
	minChars         int
}

// NewTranscriptExtractor builds the audio extractor from configuration.
func NewTranscriptExtractor(cfg *config.Config) *TranscriptExtractor {
	minChars := cfg.Transcription.MinTranscriptChars
	if minChars <= 0 {
		minChars = 24
	}
	return &TranscriptExtractor{
		transcriber:      whisper.New(cfg),
		fallbackLanguage: strings.TrimSpace(cfg.Transcription.FallbackLanguage),
		minChars:         minChars,
	}
}

func (e *TranscriptExtractor) Name() string   { return "transcript" }
func (e *TranscriptExtractor) Source() Source { return SourceAudio }

// Extract transcribes the audio track. Language detection runs first; when
// the result is suspiciously short the pass is repeated with the fallback
// language forced, which recovers clips whose detection latched onto
// background noise or music.
func (e *TranscriptExtractor) Extract(ctx context.Context, asset media.Asset) ([]Fragment, error) {
	if !asset.HasAudio() {
		return nil, services.Wrap(services.ErrExtraction, "extract", "transcribe", "media has no audio track", nil)
	}

	audioPath, err := e.transcriber.ExtractAudio(ctx, asset.Path)
	if err != nil {
		return nil, err
	}
	defer os.Remove(audioPath)

	text, err := e.transcriber.Transcribe(ctx, audioPath, "auto")
	if err != nil {
		return nil, err
	}

	if len([]rune(text)) < e.minChars && e.fallbackLanguage != "" {
		forced, forcedErr := e.transcriber.Transcribe(ctx, audioPath, e.fallbackLanguage)
		if forcedErr == nil && len([]rune(forced)) > len([]rune(text)) {
			text = forced
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []Fragment{{
		Source:     SourceAudio,
		Text:       text,
		Confidence: SourceAudio.BaseConfidence(),
	}}, nil
}

var _ Extractor = (*TranscriptExtractor)(nil)
