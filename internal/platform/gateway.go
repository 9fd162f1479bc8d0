package platform

import (
	"context"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media"
)

// Metadata is the platform-side description of a downloaded post.
type Metadata struct {
	Title      string
	Uploader   string
	UploadDate string
	Extractor  string
}

// Gateway downloads the media behind a URL into destDir and reports what it
// fetched. Implementations classify their failures with the sentinel errors
// in internal/services so the retry policy can route them.
type Gateway interface {
	Fetch(ctx context.Context, url, destDir string) (media.Asset, Metadata, error)
}
