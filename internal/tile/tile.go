// Package tile holds the resident state of one addressable panorama
// tile: which resource slots are populated and the per-consumer render
// primitives derived from them.
package tile

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"

	"panorama-viewer/internal/tilecoord"
)

var (
	// ErrSlotAlreadySet is returned when a resource slot is written a
	// second time. Slots are set at most once per tile lifetime.
	ErrSlotAlreadySet = errors.New("tile: resource slot already set")

	// ErrTileDestroyed is returned by every accessor after Destroy.
	ErrTileDestroyed = errors.New("tile: tile is destroyed")
)

// ConsumerID identifies a render consumer holding a primitive on a
// tile. The tile never owns the consumer; the ID is only a lookup key.
type ConsumerID string

// NewConsumerID returns a fresh unique consumer ID.
func NewConsumerID() ConsumerID {
	return ConsumerID(uuid.NewString())
}

// RenderPrimitive is the external rasterizer's per-tile object. The
// tile owns its lifetime: Release is called exactly once, on destroy.
// Refresh is called after a new resource payload becomes queryable.
type RenderPrimitive interface {
	Refresh(t *Tile)
	Release()
}

// PrimitiveFactory builds a RenderPrimitive for a tile. Implemented by
// the external render collaborator.
type PrimitiveFactory interface {
	CreatePrimitive(t *Tile) (RenderPrimitive, error)
}

// ImagePayload is a decoded color or intensity raster.
type ImagePayload struct {
	Image image.Image
}

// DepthPayload is a per-pixel depth buffer in row-major order.
type DepthPayload struct {
	Width  uint32
	Height uint32
	Values []float32
}

// ModelTransform places the tile's quad on the panorama sphere. The
// rasterizer consumes it; this package only derives it from the
// coordinate.
type ModelTransform struct {
	Yaw         float64 // azimuth of the tile center
	Pitch       float64 // polar angle of the tile center
	AzimuthSpan float64
	PolarSpan   float64
}

// Tile is the resident state for one coordinate. Tiles are created by
// the provider on a cache miss and destroyed by the provider on
// eviction or shutdown, never by consumers.
type Tile struct {
	coord  tilecoord.Coordinate
	width  uint32
	height uint32

	mu         sync.Mutex
	destroyed  bool
	color      *ImagePayload
	intensity  *ImagePayload
	depth      *DepthPayload
	primitives map[ConsumerID]RenderPrimitive
}

// New allocates an empty tile for a coordinate with the given pixel
// dimensions.
func New(coord tilecoord.Coordinate, width, height uint32) *Tile {
	return &Tile{
		coord:      coord,
		width:      width,
		height:     height,
		primitives: make(map[ConsumerID]RenderPrimitive),
	}
}

// Coordinate returns the tile's address.
func (t *Tile) Coordinate() tilecoord.Coordinate {
	return t.coord
}

// Size returns the tile's pixel dimensions.
func (t *Tile) Size() (width, height uint32) {
	return t.width, t.height
}

// Transform returns the tile's model transform on the sphere.
func (t *Tile) Transform() ModelTransform {
	az, pol := t.coord.SphericalCenter()
	ext := t.coord.SphericalExtent()
	return ModelTransform{
		Yaw:         az,
		Pitch:       pol,
		AzimuthSpan: ext.MaxAzimuth - ext.MinAzimuth,
		PolarSpan:   ext.MaxPolar - ext.MinPolar,
	}
}

// SetResource stores a payload into a slot. Each slot accepts exactly
// one write; a second write fails with ErrSlotAlreadySet. A destroyed
// tile fails with ErrTileDestroyed so late decode results from evicted
// tiles are discarded cleanly. Existing render primitives are
// refreshed so the new data becomes queryable by their consumers.
func (t *Tile) SetResource(slot Slot, payload any) error {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return ErrTileDestroyed
	}

	switch slot {
	case SlotColor, SlotIntensity:
		img, ok := payload.(*ImagePayload)
		if !ok || img == nil {
			t.mu.Unlock()
			return fmt.Errorf("tile: slot %s requires *ImagePayload, got %T", slot, payload)
		}
		dst := &t.color
		if slot == SlotIntensity {
			dst = &t.intensity
		}
		if *dst != nil {
			t.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrSlotAlreadySet, slot)
		}
		*dst = img
	case SlotDepth:
		depth, ok := payload.(*DepthPayload)
		if !ok || depth == nil {
			t.mu.Unlock()
			return fmt.Errorf("tile: slot %s requires *DepthPayload, got %T", slot, payload)
		}
		if t.depth != nil {
			t.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrSlotAlreadySet, slot)
		}
		if uint64(depth.Width)*uint64(depth.Height) != uint64(len(depth.Values)) {
			t.mu.Unlock()
			return fmt.Errorf("tile: depth buffer is %d values, want %dx%d", len(depth.Values), depth.Width, depth.Height)
		}
		t.depth = depth
	default:
		t.mu.Unlock()
		return fmt.Errorf("tile: unknown slot %s", slot)
	}

	// Snapshot primitives so Refresh runs outside the lock.
	prims := make([]RenderPrimitive, 0, len(t.primitives))
	for _, p := range t.primitives {
		prims = append(prims, p)
	}
	t.mu.Unlock()

	for _, p := range prims {
		p.Refresh(t)
	}
	return nil
}

// HasResource reports whether a slot is populated.
func (t *Tile) HasResource(slot Slot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch slot {
	case SlotColor:
		return t.color != nil
	case SlotDepth:
		return t.depth != nil
	case SlotIntensity:
		return t.intensity != nil
	default:
		return false
	}
}

// Image returns the decoded raster for the color or intensity slot.
func (t *Tile) Image(slot Slot) (image.Image, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return nil, ErrTileDestroyed
	}
	switch slot {
	case SlotColor:
		if t.color == nil {
			return nil, fmt.Errorf("tile: slot %s not set", slot)
		}
		return t.color.Image, nil
	case SlotIntensity:
		if t.intensity == nil {
			return nil, fmt.Errorf("tile: slot %s not set", slot)
		}
		return t.intensity.Image, nil
	default:
		return nil, fmt.Errorf("tile: slot %s holds no image", slot)
	}
}

// DepthAt samples the depth buffer at a pixel. It returns false when
// the depth slot is unset or the pixel is out of bounds.
func (t *Tile) DepthAt(x, y uint32) (float32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed || t.depth == nil {
		return 0, false
	}
	if x >= t.depth.Width || y >= t.depth.Height {
		return 0, false
	}
	return t.depth.Values[y*t.depth.Width+x], true
}

// PrimitiveFor returns the render primitive for a consumer, building
// it on first use. The primitive is memoized per consumer and released
// when the tile is destroyed.
func (t *Tile) PrimitiveFor(id ConsumerID, factory PrimitiveFactory) (RenderPrimitive, error) {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return nil, ErrTileDestroyed
	}
	if p, ok := t.primitives[id]; ok {
		t.mu.Unlock()
		return p, nil
	}
	t.mu.Unlock()

	// Build outside the lock; the factory may do real work.
	p, err := factory.CreatePrimitive(t)
	if err != nil {
		return nil, fmt.Errorf("create primitive for %s: %w", t.coord, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		p.Release()
		return nil, ErrTileDestroyed
	}
	if existing, ok := t.primitives[id]; ok {
		// Lost a race with another caller for the same consumer.
		p.Release()
		return existing, nil
	}
	t.primitives[id] = p
	return p, nil
}

// Destroyed reports whether the tile has been destroyed.
func (t *Tile) Destroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}

// Destroy releases all render primitives, clears the resource slots
// and moves the tile to its terminal state. Calls after the first are
// no-ops.
func (t *Tile) Destroy() {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	t.destroyed = true
	prims := t.primitives
	t.primitives = nil
	t.color = nil
	t.intensity = nil
	t.depth = nil
	t.mu.Unlock()

	for _, p := range prims {
		p.Release()
	}
}
