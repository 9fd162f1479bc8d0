// Package media defines the downloaded media asset model and the ffprobe
// inspection that derives its coarse metadata.
package media

import (
	"context"
	"strconv"
	"strings"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media/ffprobe"
)

// Asset is a downloaded media file plus the coarse metadata used for dedup.
// It is owned exclusively by the job that produced it until classification
// completes; the archive index only references it by fingerprint.
type Asset struct {
	Path            string
	DurationSeconds float64
	Width           int
	Height          int
	PerceptualHash  string
	Title           string
	AudioStreams    int
}

// Probe inspects a media file with ffprobe and builds an Asset from it.
func Probe(ctx context.Context, ffprobeBinary, path string) (Asset, error) {
	result, err := ffprobe.Inspect(ctx, ffprobeBinary, path)
	if err != nil {
		return Asset{}, err
	}

	asset := Asset{
		Path:         path,
		Title:        strings.TrimSpace(result.Format.Tags.Title),
		AudioStreams: result.AudioStreamCount(),
	}
	if duration, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64); err == nil {
		asset.DurationSeconds = duration
	}
	for _, stream := range result.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			asset.Width = stream.Width
			asset.Height = stream.Height
			break
		}
	}
	return asset, nil
}

// HasAudio reports whether the asset contains at least one audio stream.
func (a Asset) HasAudio() bool {
	return a.AudioStreams > 0
}

// Resolution returns the WxH presentation string, or empty when unknown.
func (a Asset) Resolution() string {
	if a.Width <= 0 || a.Height <= 0 {
		return ""
	}
	return strconv.Itoa(a.Width) + "x" + strconv.Itoa(a.Height)
}
