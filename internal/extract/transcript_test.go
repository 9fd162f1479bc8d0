package extract_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/extract"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services/whisper"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/testsupport"
)

func languageArg(args []string) string {
	for i, arg := range args {
		if arg == "-l" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestTranscriptExtractorProducesFragment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	restore := whisper.SetRunner(func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if strings.Contains(binary, "ffmpeg") {
			return nil, nil
		}
		return []byte("witnesses describe the strike on the neighborhood\n"), nil
	})
	defer restore()

	extractor := extract.NewTranscriptExtractor(cfg)
	asset := media.Asset{
		Path:            filepath.Join(t.TempDir(), "clip.mp4"),
		DurationSeconds: 30,
		AudioStreams:    1,
	}
	fragments, err := extractor.Extract(context.Background(), asset)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected one transcript fragment, got %d", len(fragments))
	}
	fragment := fragments[0]
	if fragment.Source != extract.SourceAudio {
		t.Fatalf("unexpected source %q", fragment.Source)
	}
	if fragment.Confidence != extract.SourceAudio.BaseConfidence() {
		t.Fatalf("unexpected confidence %f", fragment.Confidence)
	}
	if !strings.Contains(fragment.Text, "witnesses") {
		t.Fatalf("unexpected transcript %q", fragment.Text)
	}
}

func TestTranscriptExtractorFallbackLanguage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.FallbackLanguage = "ar"
	cfg.Transcription.MinTranscriptChars = 24

	const arabic = "يصف الشهود القصف على الحي السكني في المدينة"
	restore := whisper.SetRunner(func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if strings.Contains(binary, "ffmpeg") {
			return nil, nil
		}
		switch languageArg(args) {
		case "auto":
			// Detection latched onto background noise.
			return []byte("la la\n"), nil
		case "ar":
			return []byte(arabic + "\n"), nil
		default:
			t.Fatalf("unexpected language arg in %v", args)
			return nil, nil
		}
	})
	defer restore()

	extractor := extract.NewTranscriptExtractor(cfg)
	asset := media.Asset{
		Path:            filepath.Join(t.TempDir(), "clip.mp4"),
		DurationSeconds: 30,
		AudioStreams:    1,
	}
	fragments, err := extractor.Extract(context.Background(), asset)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected one fragment, got %d", len(fragments))
	}
	if fragments[0].Text != arabic {
		t.Fatalf("expected forced-language transcript, got %q", fragments[0].Text)
	}
}

func TestTranscriptExtractorRejectsSilentVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	restore := whisper.SetRunner(func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		t.Fatal("no command should run for a video without audio")
		return nil, nil
	})
	defer restore()

	extractor := extract.NewTranscriptExtractor(cfg)
	asset := media.Asset{Path: "/tmp/silent.mp4", DurationSeconds: 30, AudioStreams: 0}
	fragments, err := extractor.Extract(context.Background(), asset)
	if err == nil {
		t.Fatal("a missing audio track is unrecoverable input and must error")
	}
	if services.Kind(err) != "extraction" {
		t.Fatalf("expected extraction kind, got %q (%v)", services.Kind(err), err)
	}
	if fragments != nil {
		t.Fatalf("expected no fragments, got %+v", fragments)
	}
}
