// Package provider orchestrates panorama tile loading: it owns the
// resident-tile cache, the pending-load queue, the bounded fetch
// workers and the visible-set eviction policy.
package provider

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"panorama-viewer/internal/decode"
	"panorama-viewer/internal/events"
	"panorama-viewer/internal/metrics"
	"panorama-viewer/internal/source"
	"panorama-viewer/internal/tile"
	"panorama-viewer/internal/tilecoord"
	"panorama-viewer/pkg/logger"
)

// ErrProviderDestroyed is returned once Destroy has been called.
var ErrProviderDestroyed = errors.New("provider: provider is destroyed")

// TileError pairs a tile with the error that failed one of its
// resource loads.
type TileError struct {
	Tile *tile.Tile
	Err  error
}

// DecodeError reports a failed fetch or decode for one resource slot.
// The slot stays permanently unset on that tile; there is no retry.
type DecodeError struct {
	Slot  tile.Slot
	Coord tilecoord.Coordinate
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("load %s for tile %s: %v", e.Slot, e.Coord, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Sources holds one pyramid source per resource slot. Color is
// mandatory; Depth and Intensity are optional per deployment.
type Sources struct {
	Color     source.Source
	Depth     source.Source
	Intensity source.Source
}

func (s Sources) forSlot(slot tile.Slot) source.Source {
	switch slot {
	case tile.SlotColor:
		return s.Color
	case tile.SlotDepth:
		return s.Depth
	case tile.SlotIntensity:
		return s.Intensity
	default:
		return nil
	}
}

// Options configures a Provider.
type Options struct {
	Sources Sources

	// Decode is the injected decode pool. Nil gets a pool sized to
	// Concurrency.
	Decode *decode.Pool

	TileWidth  uint32
	TileHeight uint32
	MinLevel   uint32
	MaxLevel   uint32

	// Concurrency bounds simultaneously in-flight loads across all
	// resource slots. Values below one are raised to one.
	Concurrency int

	// CacheCapacity is a soft bound: it limits non-visible residents
	// only, visible tiles are never evicted.
	CacheCapacity int

	// ShowIntensity is the initial state of the intensity toggle.
	ShowIntensity bool

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// entry is the cache record for one resident tile.
type entry struct {
	tile *tile.Tile
	elem *list.Element // position in the request-recency order

	// queued marks slots whose load task has been enqueued (or has
	// settled). A failed slot stays marked so it is never retried.
	queued [3]bool
}

// workItem is one pending resource load.
type workItem struct {
	ent  *entry
	slot tile.Slot
}

// Provider is the tile orchestrator. All cache, queue and visible-set
// state is guarded by mu; the only suspension points are the injected
// fetch and decode calls, which run outside the lock.
type Provider struct {
	opts Options
	log  logger.Logger
	met  *metrics.Metrics

	tileLoaded   events.Emitter[*tile.Tile]
	tileError    events.Emitter[TileError]
	loadingState events.Emitter[bool]

	// notifyMu orders loadingState emissions: it is acquired under mu
	// when a busy/idle transition is detected and released only after
	// the handlers ran, so delivery order matches transition order.
	// Event handlers must not call back into the provider.
	notifyMu sync.Mutex

	mu            sync.Mutex
	cond          *sync.Cond
	destroyed     bool
	entries       map[string]*entry
	order         *list.List // *entry, front = least recently requested
	visible       map[string]struct{}
	visibleCoords []tilecoord.Coordinate
	pending       *list.List // *workItem
	inflight      int
	outstanding   int // pending + in-flight, drives loadingStateChanged
	showIntensity bool

	intensityOutstanding int
	intensityWaiters     []chan struct{}

	wg sync.WaitGroup
}

// New creates a provider and starts its worker pool.
func New(opts Options) (*Provider, error) {
	if opts.Sources.Color == nil {
		return nil, errors.New("provider: color source is required")
	}
	if opts.TileWidth == 0 || opts.TileHeight == 0 {
		return nil, errors.New("provider: tile size is required")
	}
	if opts.MinLevel > opts.MaxLevel {
		return nil, fmt.Errorf("provider: minLevel %d exceeds maxLevel %d", opts.MinLevel, opts.MaxLevel)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.CacheCapacity < 1 {
		opts.CacheCapacity = 1
	}
	if opts.Decode == nil {
		opts.Decode = decode.NewPool(opts.Concurrency)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop{}
	}

	p := &Provider{
		opts:          opts,
		log:           opts.Logger,
		met:           opts.Metrics,
		entries:       make(map[string]*entry),
		order:         list.New(),
		visible:       make(map[string]struct{}),
		pending:       list.New(),
		showIntensity: opts.ShowIntensity,
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < opts.Concurrency; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	p.log.Debug("provider started", "concurrency", opts.Concurrency, "capacity", opts.CacheCapacity)
	return p, nil
}

// OnTileLoaded subscribes to per-slot load completions. The handler
// runs once per stored payload.
func (p *Provider) OnTileLoaded(fn func(*tile.Tile)) (unsubscribe func()) {
	return p.tileLoaded.Subscribe(fn)
}

// OnTileError subscribes to per-slot load failures.
func (p *Provider) OnTileError(fn func(TileError)) (unsubscribe func()) {
	return p.tileError.Subscribe(fn)
}

// OnLoadingStateChanged subscribes to queue activity transitions. True
// fires on the empty to non-empty transition, false once everything
// outstanding has settled.
func (p *Provider) OnLoadingStateChanged(fn func(bool)) (unsubscribe func()) {
	return p.loadingState.Subscribe(fn)
}

// GetVisibleTiles returns the coordinates of the current visible set.
func (p *Provider) GetVisibleTiles() []tilecoord.Coordinate {
	p.mu.Lock()
	defer p.mu.Unlock()

	coords := make([]tilecoord.Coordinate, len(p.visibleCoords))
	copy(coords, p.visibleCoords)
	return coords
}

// Stats is a point-in-time snapshot of provider state.
type Stats struct {
	Resident int
	Visible  int
	Pending  int
	InFlight int
}

// GetStats returns current cache and queue occupancy.
func (p *Provider) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Resident: len(p.entries),
		Visible:  len(p.visible),
		Pending:  p.pending.Len(),
		InFlight: p.inflight,
	}
}

// Destroy stops accepting work, destroys every resident tile and waits
// for the workers to exit. In-flight loads run to completion and their
// results are discarded. Idempotent.
func (p *Provider) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true

	tiles := make([]*tile.Tile, 0, len(p.entries))
	for _, ent := range p.entries {
		tiles = append(tiles, ent.tile)
	}
	p.entries = make(map[string]*entry)
	p.order.Init()
	p.pending.Init()
	p.visible = make(map[string]struct{})
	p.visibleCoords = nil

	waiters := p.intensityWaiters
	p.intensityWaiters = nil
	p.intensityOutstanding = 0

	p.cond.Broadcast()
	p.mu.Unlock()

	for _, t := range tiles {
		t.Destroy()
	}
	for _, ch := range waiters {
		close(ch)
	}

	p.wg.Wait()
	p.log.Debug("provider destroyed", "tiles", len(tiles))
}
