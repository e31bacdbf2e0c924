package provider

import (
	"context"
	"errors"
	"fmt"

	"panorama-viewer/internal/tile"
)

// worker pulls pending load items until the provider is destroyed.
func (p *Provider) worker() {
	defer p.wg.Done()

	for {
		item, ok := p.nextWork()
		if !ok {
			return
		}
		p.execute(item)
	}
}

// nextWork blocks until a pending item is available or the provider is
// destroyed. Dispatching an item also chains the tile's next slot, so
// slot order is enforced at schedule time.
func (p *Provider) nextWork() (*workItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.destroyed {
			return nil, false
		}
		if front := p.pending.Front(); front != nil {
			p.pending.Remove(front)
			item := front.Value.(*workItem)
			p.inflight++
			if !item.ent.tile.Destroyed() {
				// A destroyed tile's remaining slots would only churn
				// through the queue as discards.
				p.enqueueNextSlotLocked(item.ent, item.slot)
			}
			p.updateGaugesLocked()
			if p.pending.Len() > 0 {
				// More work than this worker; wake another.
				p.cond.Signal()
			}
			return item, true
		}
		p.cond.Wait()
	}
}

// execute runs one resource load end to end: fetch, decode, store,
// settle. The fetch and decode run without the provider lock; only
// the bookkeeping afterwards takes it.
func (p *Provider) execute(item *workItem) {
	t := item.ent.tile
	coord := t.Coordinate()

	var loadErr error
	if t.Destroyed() {
		// Evicted while queued; nothing to fetch for.
		p.log.Debug("skipping load for destroyed tile", "key", coord.Key(), "slot", item.slot.String())
	} else {
		payload, err := p.load(context.Background(), item)
		switch {
		case err != nil:
			loadErr = err
		default:
			if err := t.SetResource(item.slot, payload); err != nil {
				if errors.Is(err, tile.ErrTileDestroyed) {
					// Evicted mid-flight; discard the result.
					p.log.Debug("discarding load result for destroyed tile", "key", coord.Key(), "slot", item.slot.String())
				} else {
					loadErr = fmt.Errorf("store %s for tile %s: %w", item.slot, coord, err)
				}
			}
		}
	}

	p.settle(item, loadErr)
}

// load fetches and decodes the payload for one slot.
func (p *Provider) load(ctx context.Context, item *workItem) (any, error) {
	src := p.opts.Sources.forSlot(item.slot)
	coord := item.ent.tile.Coordinate()
	if src == nil {
		return nil, &DecodeError{Slot: item.slot, Coord: coord, Err: errors.New("no source configured")}
	}

	data, err := src.Fetch(ctx, coord)
	if err != nil {
		return nil, &DecodeError{Slot: item.slot, Coord: coord, Err: err}
	}

	switch item.slot {
	case tile.SlotColor, tile.SlotIntensity:
		payload, err := p.opts.Decode.Image(ctx, data)
		if err != nil {
			return nil, &DecodeError{Slot: item.slot, Coord: coord, Err: err}
		}
		return payload, nil
	case tile.SlotDepth:
		width, height := item.ent.tile.Size()
		payload, err := p.opts.Decode.Depth(ctx, data, width, height)
		if err != nil {
			return nil, &DecodeError{Slot: item.slot, Coord: coord, Err: err}
		}
		return payload, nil
	default:
		return nil, &DecodeError{Slot: item.slot, Coord: coord, Err: errors.New("unknown slot")}
	}
}

// settle finishes one item: updates counters, resolves intensity
// waiters and emits events. Failures never abort sibling work or the
// drain; the queue-empty notification fires regardless.
func (p *Provider) settle(item *workItem, loadErr error) {
	t := item.ent.tile

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}

	p.inflight--
	p.outstanding--

	var intensityDone []chan struct{}
	if item.slot == tile.SlotIntensity {
		p.intensityOutstanding--
		if p.intensityOutstanding == 0 {
			intensityDone = p.intensityWaiters
			p.intensityWaiters = nil
		}
	}

	drained := p.outstanding == 0
	p.updateGaugesLocked()
	if drained {
		p.notifyMu.Lock()
	}
	p.mu.Unlock()

	if loadErr != nil {
		p.met.LoadError(item.slot.String())
		p.log.Warn("tile load failed", "key", t.Coordinate().Key(), "slot", item.slot.String(), "error", loadErr)
		p.tileError.Emit(TileError{Tile: t, Err: loadErr})
	} else if !t.Destroyed() {
		p.met.TileLoaded(item.slot.String())
		p.tileLoaded.Emit(t)
	}

	for _, ch := range intensityDone {
		close(ch)
	}
	if drained {
		p.loadingState.Emit(false)
		p.notifyMu.Unlock()
	}
}
