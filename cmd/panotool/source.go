package main

import (
	"context"
	"fmt"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"panorama-viewer/internal/source"
)

// buildSource turns a configured template into a pyramid source.
//
// http(s) URLs fetch directly. Anything else is treated as
// "<bucket-url>#<key-template>" and opened through gocloud, e.g.
// "file:///var/tiles#color/{z}/{x}/{y}.jpg".
func buildSource(ctx context.Context, template string) (source.Source, func() error, error) {
	if template == "" {
		return nil, nil, nil
	}

	if strings.HasPrefix(template, "http://") || strings.HasPrefix(template, "https://") {
		return source.NewHTTPSource(template, nil), func() error { return nil }, nil
	}

	bucketURL, keyTemplate, ok := strings.Cut(template, "#")
	if !ok {
		return nil, nil, fmt.Errorf("source %q: want http(s) URL or <bucket-url>#<key-template>", template)
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open bucket %q: %w", bucketURL, err)
	}
	return source.NewBlobSource(bucket, keyTemplate), bucket.Close, nil
}
