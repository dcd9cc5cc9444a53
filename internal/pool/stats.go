package pool

import "github.com/l1jgo/bulletpool/internal/core/ecs"

// Stats are per-pool counters since startup.
type Stats struct {
	Pool ecs.PoolID
	Name string

	Free int // free-list size at snapshot time
	Live int // entities alive in the arena, pooled or not

	Created   uint64 // instantiated by preload or fetch underflow
	Fetched   uint64
	Reused    uint64 // fetches served from the free-list
	Recycled  uint64 // pushes back into the free-list
	Discarded uint64 // non-split children queued for destruction
	Destroyed uint64
	Leaked    uint64 // dropped by EmptyPool without destruction
}

// Stats returns a snapshot of pool id's counters.
func (m *Manager) Stats(id ecs.PoolID) Stats {
	m.mustPool(id)
	st := m.stats[id]
	st.Free = m.registry.Size(id)
	st.Live = m.world.Arena().Live(id)
	return st
}

// AllStats returns snapshots for every pool in id order.
func (m *Manager) AllStats() []Stats {
	out := make([]Stats, 0, len(m.stats))
	for i := range m.stats {
		out = append(out, m.Stats(ecs.PoolID(i)))
	}
	return out
}
