package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services/llm"
)

// VisionExtractor sends sampled frames to the vision model. It is the most
// expensive extractor and runs only when enabled, by default only for
// urgent jobs.
type VisionExtractor struct {
	client        *llm.Client
	ffmpegBinary  string
	frameSamples  int
	allowedLabels []string
}

// NewVisionExtractor builds the vision extractor. allowedLabels constrains
// which labels the model may emit; anything else lands in proposals.
func NewVisionExtractor(cfg *config.Config, client *llm.Client, allowedLabels []string) *VisionExtractor {
	frameSamples := cfg.Vision.FrameSamples
	if frameSamples <= 0 {
		frameSamples = 3
	}
	return &VisionExtractor{
		client:        client,
		ffmpegBinary:  cfg.FFmpegBinary(),
		frameSamples:  frameSamples,
		allowedLabels: allowedLabels,
	}
}

func (e *VisionExtractor) Name() string   { return "vision" }
func (e *VisionExtractor) Source() Source { return SourceVision }

// Analyze runs the vision pass and returns both the fragments and any labels
// the model proposed beyond the allowed list. The description becomes a raw
// text fragment; recognized labels become label fragments scaled by the
// model's own confidence.
func (e *VisionExtractor) Analyze(ctx context.Context, asset media.Asset) ([]Fragment, []string, error) {
	frameDir, err := os.MkdirTemp(filepath.Dir(asset.Path), "vision-")
	if err != nil {
		return nil, nil, err
	}
	defer os.RemoveAll(frameDir)

	samples, err := SampleFrames(ctx, e.ffmpegBinary, asset.Path, frameDir, asset.DurationSeconds, e.frameSamples)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) > e.frameSamples {
		samples = samples[:e.frameSamples]
	}

	var (
		frames  [][]byte
		offsets []float64
	)
	for _, sample := range samples {
		data, readErr := os.ReadFile(sample.Path)
		if readErr != nil {
			continue
		}
		frames = append(frames, data)
		offsets = append(offsets, sample.OffsetSeconds)
	}
	if len(frames) == 0 {
		return nil, nil, nil
	}

	result, err := e.client.DescribeFrames(ctx, frames, e.allowedLabels)
	if err != nil {
		return nil, nil, err
	}

	var fragments []Fragment
	if result.Description != "" {
		fragments = append(fragments, Fragment{
			Source:     SourceVision,
			Text:       result.Description,
			Confidence: SourceVision.BaseConfidence(),
			FrameRefs:  offsets,
		})
	}

	allowed := make(map[string]string, len(e.allowedLabels))
	for _, label := range e.allowedLabels {
		allowed[strings.ToLower(label)] = label
	}

	var proposals []string
	for _, hint := range result.Labels {
		canonical, ok := allowed[strings.ToLower(hint.Label)]
		if !ok {
			proposals = append(proposals, hint.Label)
			continue
		}
		confidence := SourceVision.BaseConfidence() * hint.Confidence
		if confidence <= 0 {
			continue
		}
		fragments = append(fragments, Fragment{
			Source:     SourceVision,
			Text:       canonical,
			Label:      true,
			Confidence: confidence,
			Evidence:   result.Description,
			FrameRefs:  offsets,
		})
	}
	for _, tag := range result.ProposedTags {
		if strings.TrimSpace(tag) != "" {
			proposals = append(proposals, strings.TrimSpace(tag))
		}
	}
	return fragments, proposals, nil
}

// Extract satisfies Extractor, discarding proposals.
func (e *VisionExtractor) Extract(ctx context.Context, asset media.Asset) ([]Fragment, error) {
	fragments, _, err := e.Analyze(ctx, asset)
	return fragments, err
}

var _ Extractor = (*VisionExtractor)(nil)
