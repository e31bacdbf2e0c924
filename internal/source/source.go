// Package source fetches encoded tile payloads from raster pyramid
// backends. A Source serves one resource slot; the provider is
// configured with up to one source per slot.
package source

import (
	"context"
	"fmt"
	"strings"

	"panorama-viewer/internal/tilecoord"
)

// Source produces the encoded payload bytes for a tile coordinate.
// Implementations must be safe for concurrent use.
type Source interface {
	// Fetch returns the encoded payload for coord. Decoding is the
	// caller's concern.
	Fetch(ctx context.Context, coord tilecoord.Coordinate) ([]byte, error)
}

// Func adapts a plain function into a Source, which keeps tests and
// small callers simple.
type Func func(ctx context.Context, coord tilecoord.Coordinate) ([]byte, error)

func (f Func) Fetch(ctx context.Context, coord tilecoord.Coordinate) ([]byte, error) {
	return f(ctx, coord)
}

// expandTemplate substitutes {z}, {x} and {y} in a URL or key
// template.
func expandTemplate(template string, coord tilecoord.Coordinate) string {
	r := strings.NewReplacer(
		"{z}", fmt.Sprintf("%d", coord.Level),
		"{x}", fmt.Sprintf("%d", coord.Column),
		"{y}", fmt.Sprintf("%d", coord.Row),
	)
	return r.Replace(template)
}
