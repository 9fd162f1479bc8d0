package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// VisionResult is the model's reading of sampled video frames.
type VisionResult struct {
	Description  string       `json:"description"`
	Labels       []VisionHint `json:"labels"`
	ProposedTags []string     `json:"proposed_tags"`
	Raw          string       `json:"-"`
}

// VisionHint is one label the model recognized, with its own confidence.
type VisionHint struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

const visionSystemPrompt = `You analyze still frames sampled from a news video.
Respond with JSON only, in this shape:
{"description": "...", "labels": [{"label": "...", "confidence": 0.0}], "proposed_tags": ["..."]}
"description" is a short factual account of what the frames show.
"labels" may only use labels from the allowed list you are given; confidence is 0 to 1.
"proposed_tags" is for subjects clearly present but missing from the allowed list. Leave it empty when nothing is missing.
Do not speculate beyond what is visible.`

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// DescribeFrames sends JPEG frames to the vision model and returns its
// description plus any labels it recognized from the allowed list.
func (c *Client) DescribeFrames(ctx context.Context, frames [][]byte, allowedLabels []string) (VisionResult, error) {
	var empty VisionResult
	if len(frames) == 0 {
		return empty, fmt.Errorf("llm vision: no frames supplied")
	}

	parts := []contentPart{{
		Type: "text",
		Text: "Allowed labels: " + strings.Join(allowedLabels, ", "),
	}}
	for _, frame := range frames {
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame),
			},
		})
	}

	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: visionSystemPrompt},
			{Role: "user", Content: parts},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	content, err := c.completeWithRetry(ctx, payload, "llm vision")
	if err != nil {
		return empty, err
	}

	var result VisionResult
	if err := DecodeJSON(content, &result); err != nil {
		return empty, fmt.Errorf("llm vision: parse payload: %w", err)
	}
	result.Raw = content
	result.Description = strings.TrimSpace(result.Description)
	for i := range result.Labels {
		result.Labels[i].Label = strings.TrimSpace(result.Labels[i].Label)
		if result.Labels[i].Confidence < 0 {
			result.Labels[i].Confidence = 0
		}
		if result.Labels[i].Confidence > 1 {
			result.Labels[i].Confidence = 1
		}
	}
	return result, nil
}
