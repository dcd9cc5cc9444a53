package ecs

import "fmt"

// PoolID indexes the prototype table and the pool registry. Assigned once at
// startup in prototype order.
type PoolID uint16

// Handle addresses one entity in the arena: slot index in the lower 32 bits,
// pool id in the next 16 and a 16-bit generation on top. Generation starts at
// 1, so the zero Handle is never alive.
type Handle uint64

func NewHandle(pool PoolID, slot uint32, generation uint16) Handle {
	return Handle(uint64(generation)<<48 | uint64(pool)<<32 | uint64(slot))
}

func (h Handle) Slot() uint32       { return uint32(h) }
func (h Handle) Pool() PoolID       { return PoolID(h >> 32) }
func (h Handle) Generation() uint16 { return uint16(h >> 48) }
func (h Handle) IsZero() bool       { return h == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("%d:%d@%d", h.Pool(), h.Slot(), h.Generation())
}

// slotPool manages slot allocation for one pool with generational indices
// and a free list of destroyed slots.
type slotPool struct {
	generations []uint16
	freeSlots   []uint32
	live        int
}

func (p *slotPool) create(pool PoolID) Handle {
	p.live++
	if n := len(p.freeSlots); n > 0 {
		slot := p.freeSlots[n-1]
		p.freeSlots = p.freeSlots[:n-1]
		return NewHandle(pool, slot, p.generations[slot])
	}
	slot := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	return NewHandle(pool, slot, 1)
}

func (p *slotPool) alive(h Handle) bool {
	slot := h.Slot()
	if int(slot) >= len(p.generations) {
		return false
	}
	return p.generations[slot] == h.Generation()
}

func (p *slotPool) destroy(h Handle) bool {
	if !p.alive(h) {
		return false // stale reference
	}
	slot := h.Slot()
	p.generations[slot]++
	if p.generations[slot] == 0 {
		p.generations[slot] = 1
	}
	p.freeSlots = append(p.freeSlots, slot)
	p.live--
	return true
}

// Arena is an index-addressed store of entity slots, one slot pool per
// PoolID. The number of pools is fixed at construction.
type Arena struct {
	pools []slotPool
}

func NewArena(poolCount int) *Arena {
	return &Arena{pools: make([]slotPool, poolCount)}
}

func (a *Arena) PoolCount() int { return len(a.pools) }

// Create allocates a slot in the given pool. Panics on an unknown pool.
func (a *Arena) Create(pool PoolID) Handle {
	if int(pool) >= len(a.pools) {
		panic(fmt.Sprintf("ecs: create in unknown pool %d (have %d)", pool, len(a.pools)))
	}
	return a.pools[pool].create(pool)
}

func (a *Arena) Alive(h Handle) bool {
	if h.IsZero() || int(h.Pool()) >= len(a.pools) {
		return false
	}
	return a.pools[h.Pool()].alive(h)
}

// Destroy frees the slot and invalidates h. Returns false for stale handles.
func (a *Arena) Destroy(h Handle) bool {
	if h.IsZero() || int(h.Pool()) >= len(a.pools) {
		return false
	}
	return a.pools[h.Pool()].destroy(h)
}

// Live returns the number of allocated slots in a pool.
func (a *Arena) Live(pool PoolID) int {
	if int(pool) >= len(a.pools) {
		return 0
	}
	return a.pools[pool].live
}
