package source

import (
	"context"
	"fmt"

	"gocloud.dev/blob"

	"panorama-viewer/internal/tilecoord"
)

// BlobSource reads tile payloads from a gocloud blob bucket using a
// key template with {z}, {x} and {y} placeholders. It works against
// local directories, in-memory buckets and cloud object stores alike.
type BlobSource struct {
	bucket   *blob.Bucket
	template string
}

// NewBlobSource creates a blob-backed source. The caller retains
// ownership of the bucket and closes it.
func NewBlobSource(bucket *blob.Bucket, template string) *BlobSource {
	return &BlobSource{bucket: bucket, template: template}
}

var _ Source = (*BlobSource)(nil)

// Fetch reads the payload object for coord.
func (s *BlobSource) Fetch(ctx context.Context, coord tilecoord.Coordinate) ([]byte, error) {
	key := expandTemplate(s.template, coord)

	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read blob %q for tile %s: %w", key, coord, err)
	}
	return data, nil
}
