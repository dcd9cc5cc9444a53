package system

import (
	"time"

	"github.com/l1jgo/bulletpool/internal/collision"
	"github.com/l1jgo/bulletpool/internal/core/event"
	coresys "github.com/l1jgo/bulletpool/internal/core/system"
	"github.com/l1jgo/bulletpool/internal/pool"
)

// CollisionSystem runs the monitor's pass. A projectile that hits a target
// bursts its sub-munitions and is recycled on the spot, children split back
// into their pools; the monitor drops the retired shapes at the end of the
// pass.
// Phase 4 (Collide).
type CollisionSystem struct {
	monitor *collision.Monitor
	pools   *pool.Manager
	spawner *Spawner
	bus     *event.Bus
}

func NewCollisionSystem(monitor *collision.Monitor, pools *pool.Manager, spawner *Spawner, bus *event.Bus) *CollisionSystem {
	return &CollisionSystem{monitor: monitor, pools: pools, spawner: spawner, bus: bus}
}

func (s *CollisionSystem) Phase() coresys.Phase { return coresys.PhaseCollide }

func (s *CollisionSystem) Update(_ time.Duration) {
	s.monitor.Sweep(func(bullet, target *collision.Shape) {
		h := bullet.Owner()
		if !s.pools.Active(h) {
			return
		}
		id := s.pools.PoolID(h)
		s.spawner.Burst(h)
		s.pools.Recycle(h, pool.RecycleOptions{Children: true, Split: true})
		event.Emit(s.bus, event.ProjectileHit{Projectile: h, Pool: id, Target: target.Owner()})
	})
}
