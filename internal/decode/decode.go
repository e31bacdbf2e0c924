// Package decode turns encoded tile payloads into resource payloads.
// All decoding runs through a Pool, which bounds the number of
// simultaneous decodes independently of the fetch concurrency.
package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/webp"

	"golang.org/x/sync/semaphore"

	"panorama-viewer/internal/tile"
)

// Pool decodes payloads with a bounded number of concurrent decodes.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a decode pool allowing up to limit simultaneous
// decodes. Limits below one are raised to one.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Image decodes a color or intensity raster. JPEG, PNG and WebP are
// registered.
func (p *Pool) Image(ctx context.Context, data []byte) (*tile.ImagePayload, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &tile.ImagePayload{Image: img}, nil
}

// Depth decodes a raw little-endian float32 raster of the given
// dimensions in row-major order.
func (p *Pool) Depth(ctx context.Context, data []byte, width, height uint32) (*tile.DepthPayload, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	want := int(width) * int(height) * 4
	if len(data) != want {
		return nil, fmt.Errorf("decode depth: %d bytes, want %d for %dx%d", len(data), want, width, height)
	}

	values := make([]float32, int(width)*int(height))
	for i := range values {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		values[i] = math.Float32frombits(bits)
	}
	return &tile.DepthPayload{Width: width, Height: height, Values: values}, nil
}

// EncodeDepth is the inverse of Depth. Sources and tests use it to
// produce depth payload bytes.
func EncodeDepth(values []float32) []byte {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return data
}
