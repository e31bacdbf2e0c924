package provider

import (
	"panorama-viewer/internal/tile"
	"panorama-viewer/internal/tilecoord"
)

// CreateVisibleTiles returns a tile handle for every coordinate,
// allocating and scheduling loads for coordinates not yet resident.
// The call replaces the visible set with exactly the given
// coordinates, then runs eviction. It never blocks on loading.
//
// Within one call the most recently listed coordinate is serviced
// first. Work queued by an earlier call keeps its position: a call
// while the queue is still draining coalesces by appending, it never
// preempts or reorders dispatched work.
func (p *Provider) CreateVisibleTiles(coords []tilecoord.Coordinate) ([]*tile.Tile, error) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil, ErrProviderDestroyed
	}

	wasIdle := p.outstanding == 0

	result := make([]*tile.Tile, 0, len(coords))
	var fresh []*entry
	for _, coord := range coords {
		key := coord.Key()
		ent, ok := p.entries[key]
		if ok {
			p.order.MoveToBack(ent.elem)
		} else {
			ent = &entry{tile: tile.New(coord, p.opts.TileWidth, p.opts.TileHeight)}
			ent.elem = p.order.PushBack(ent)
			p.entries[key] = ent
			fresh = append(fresh, ent)
		}
		result = append(result, ent.tile)
	}

	// Replace the visible set before eviction so the new members are
	// pinned and the old ones become evictable.
	p.visible = make(map[string]struct{}, len(coords))
	p.visibleCoords = p.visibleCoords[:0]
	for _, coord := range coords {
		key := coord.Key()
		if _, ok := p.visible[key]; ok {
			continue
		}
		p.visible[key] = struct{}{}
		p.visibleCoords = append(p.visibleCoords, coord)
	}

	// Enqueue the batch reversed: the last requested coordinate lands
	// first in queue order, behind whatever is already pending.
	for i := len(fresh) - 1; i >= 0; i-- {
		p.enqueueLocked(fresh[i], tile.SlotColor, false)
	}

	evicted := p.evictLocked()
	becameBusy := wasIdle && p.outstanding > 0
	p.updateGaugesLocked()
	p.cond.Broadcast()
	if becameBusy {
		p.notifyMu.Lock()
	}
	p.mu.Unlock()

	if becameBusy {
		p.loadingState.Emit(true)
		p.notifyMu.Unlock()
	}
	for _, t := range evicted {
		t.Destroy()
	}
	return result, nil
}

// SetShowIntensity toggles intensity loading. Turning it on enqueues
// an intensity load for every resident tile lacking the slot,
// appending to any outstanding work for that tile. Turning it off
// starts no new intensity loads; loaded intensity data is kept and
// already-queued loads drain normally.
func (p *Provider) SetShowIntensity(show bool) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.showIntensity = show

	wasIdle := p.outstanding == 0
	if show && p.opts.Sources.Intensity != nil {
		// Most recently requested tiles first, appended behind any
		// outstanding work so a tile with its color still pending
		// keeps its slot order.
		for elem := p.order.Back(); elem != nil; elem = elem.Prev() {
			ent := elem.Value.(*entry)
			if !ent.queued[tile.SlotIntensity] {
				p.enqueueLocked(ent, tile.SlotIntensity, false)
			}
		}
	}
	becameBusy := wasIdle && p.outstanding > 0
	p.updateGaugesLocked()
	p.cond.Broadcast()
	if becameBusy {
		p.notifyMu.Lock()
	}
	p.mu.Unlock()

	if becameBusy {
		p.loadingState.Emit(true)
		p.notifyMu.Unlock()
	}
}

// ShowIntensity returns the current intensity toggle state.
func (p *Provider) ShowIntensity() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.showIntensity
}

// IntensityReady returns a channel that is closed once every intensity
// load induced by the toggle has settled. If none are outstanding the
// channel is already closed.
func (p *Provider) IntensityReady() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan struct{})
	if p.intensityOutstanding == 0 {
		close(ch)
		return ch
	}
	p.intensityWaiters = append(p.intensityWaiters, ch)
	return ch
}

// enqueueLocked adds a load task for a tile's slot. Chained slot tasks
// go to the queue front so one tile's slots stay together; everything
// else appends. Callers hold mu.
func (p *Provider) enqueueLocked(ent *entry, slot tile.Slot, front bool) {
	ent.queued[slot] = true
	item := &workItem{ent: ent, slot: slot}
	if front {
		p.pending.PushFront(item)
	} else {
		p.pending.PushBack(item)
	}
	p.outstanding++
	if slot == tile.SlotIntensity {
		p.intensityOutstanding++
	}
}

// enqueueNextSlotLocked schedules the slot after prev for a tile, in
// Color, Depth, Intensity order, skipping slots with no source and
// intensity while the toggle is off. Called at dispatch time, so a
// later slot is enqueued as soon as the earlier slot's task is
// scheduled, not once it completes. Callers hold mu.
func (p *Provider) enqueueNextSlotLocked(ent *entry, prev tile.Slot) {
	for next := prev + 1; next.Valid(); next++ {
		if ent.queued[next] {
			continue
		}
		if p.opts.Sources.forSlot(next) == nil {
			continue
		}
		if next == tile.SlotIntensity && !p.showIntensity {
			continue
		}
		p.enqueueLocked(ent, next, true)
		return
	}
}

// evictLocked removes least-recently-requested tiles beyond capacity,
// never touching visible-set members. It returns the tiles to destroy;
// the caller destroys them outside the lock. Callers hold mu.
func (p *Provider) evictLocked() []*tile.Tile {
	var evicted []*tile.Tile

	for len(p.entries) > p.opts.CacheCapacity {
		var victim *entry
		for elem := p.order.Front(); elem != nil; elem = elem.Next() {
			ent := elem.Value.(*entry)
			if _, pinned := p.visible[ent.tile.Coordinate().Key()]; !pinned {
				victim = ent
				break
			}
		}
		if victim == nil {
			// Only visible tiles remain; the capacity bound is soft.
			break
		}

		key := victim.tile.Coordinate().Key()
		p.order.Remove(victim.elem)
		delete(p.entries, key)
		evicted = append(evicted, victim.tile)
		p.met.Evicted()
		p.log.Debug("evicting tile", "key", key)
	}

	return evicted
}

// updateGaugesLocked refreshes the occupancy gauges. Callers hold mu.
func (p *Provider) updateGaugesLocked() {
	p.met.SetQueueDepth(p.pending.Len())
	p.met.SetInFlight(p.inflight)
	p.met.SetResidentTiles(len(p.entries))
}
