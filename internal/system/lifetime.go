package system

import (
	"time"

	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
	"github.com/l1jgo/bulletpool/internal/core/event"
	coresys "github.com/l1jgo/bulletpool/internal/core/system"
	"github.com/l1jgo/bulletpool/internal/pool"
)

// LifetimeSystem recycles free-flying projectiles whose lifetime ran out.
// Their attached sub-munitions are not released: they are torn down and
// discarded along with the parent.
// Phase 3 (Simulate), registered after MovementSystem.
type LifetimeSystem struct {
	pools  *pool.Manager
	stores *component.Stores
	bus    *event.Bus
}

func NewLifetimeSystem(pools *pool.Manager, stores *component.Stores, bus *event.Bus) *LifetimeSystem {
	return &LifetimeSystem{pools: pools, stores: stores, bus: bus}
}

func (s *LifetimeSystem) Phase() coresys.Phase { return coresys.PhaseSimulate }

func (s *LifetimeSystem) Update(dt time.Duration) {
	expired := ecs.Collect(s.stores.Lifetimes, func(h ecs.Handle, lt *component.Lifetime) bool {
		b, ok := s.stores.Bodies.Get(h)
		if !ok || !b.Active || b.Parent != 0 {
			return false
		}
		lt.Remaining -= dt
		return lt.Remaining <= 0
	})
	for _, h := range expired {
		id := s.pools.PoolID(h)
		s.pools.Recycle(h, pool.RecycleOptions{Children: true})
		event.Emit(s.bus, event.ProjectileExpired{Projectile: h, Pool: id})
	}
}
