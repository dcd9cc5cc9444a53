package system

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/bulletpool/internal/anim"
	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
	"github.com/l1jgo/bulletpool/internal/core/event"
	"github.com/l1jgo/bulletpool/internal/data"
	"github.com/l1jgo/bulletpool/internal/pool"
	"go.uber.org/zap"
)

// Spawner places projectiles into the world on behalf of wave scripts. It
// decides where and when; the pool manager only hands out instances.
type Spawner struct {
	pools     *pool.Manager
	stores    *component.Stores
	templates []*data.ProjectileTemplate // indexed by pool id
	anim      *anim.Animator
	bus       *event.Bus
	log       *zap.Logger
}

// NewSpawner expects tbl in the order the manager's pools were created from.
func NewSpawner(pools *pool.Manager, stores *component.Stores, tbl *data.ProjectileTable, animator *anim.Animator, bus *event.Bus, log *zap.Logger) *Spawner {
	return &Spawner{
		pools:     pools,
		stores:    stores,
		templates: tbl.All(),
		anim:      animator,
		bus:       bus,
		log:       log,
	}
}

func (s *Spawner) PoolCount() int { return s.pools.PoolCount() }
func (s *Spawner) Lookup(name string) (ecs.PoolID, bool) { return s.pools.Lookup(name) }
func (s *Spawner) Preload(id ecs.PoolID, count int) { s.pools.Preload(id, count) }
func (s *Spawner) FreeCount(id ecs.PoolID) int { return s.pools.FreeCount(id) }
func (s *Spawner) InUse(h ecs.Handle) bool { return s.pools.InUse(h) }

// Spawn fetches a projectile inactive, places it, attaches the sub-munitions
// its template carries and only then activates it, so the collision monitor
// never sees a half-built projectile.
func (s *Spawner) Spawn(id ecs.PoolID, x, y, angle float64) ecs.Handle {
	h := s.pools.Fetch(id)
	pos := mgl64.Vec2{x, y}
	s.place(h, pos, angle, true)

	children := 0
	for _, spec := range s.templates[id].Children {
		childID, ok := s.pools.Lookup(spec.Prototype)
		if !ok {
			s.log.Error("unknown sub-munition prototype",
				zap.String("parent", s.templates[id].Name),
				zap.String("prototype", spec.Prototype),
			)
			continue
		}
		for i := 0; i < spec.Count; i++ {
			c := s.pools.FetchWith(childID, pool.FetchOptions{Activate: true, SkipMonitor: true})
			s.place(c, pos, angle+spreadOffset(i, spec.Count, spec.Spread), false)
			if err := s.pools.Attach(h, c); err != nil {
				s.log.Error("attach sub-munition", zap.Stringer("parent", h), zap.Error(err))
				s.pools.Recycle(c, pool.RecycleOptions{})
				continue
			}
			children++
		}
	}

	s.pools.Activate(h, pool.ActivateOptions{})
	event.Emit(s.bus, event.ProjectileSpawned{Projectile: h, Pool: id, Children: children})
	return h
}

// Burst releases h's attached sub-munitions as free-flying projectiles of
// the same kinds, fanned around each child's heading. The attached
// instances themselves stay with h and go back to their pools when h is
// recycled with split.
func (s *Spawner) Burst(h ecs.Handle) int {
	released := 0
	for _, c := range s.pools.Children(h) {
		tr, ok := s.stores.Transforms.Get(c)
		if !ok {
			continue
		}
		id := s.pools.PoolID(c)
		free := s.pools.FetchWith(id, pool.FetchOptions{})
		s.place(free, tr.Position, mgl64.RadToDeg(tr.Rotation), true)
		s.pools.Activate(free, pool.ActivateOptions{})
		released++
	}
	return released
}

// place resets a fetched projectile's transform and lifetime. Only free
// flying projectiles get a velocity; attached ones ride on their parent.
func (s *Spawner) place(h ecs.Handle, pos mgl64.Vec2, angle float64, flying bool) {
	tmpl := s.templates[h.Pool()]
	rad := mgl64.DegToRad(angle)

	tr := s.stores.Transforms.MustGet(h)
	tr.Position = pos
	tr.Rotation = rad
	tr.Velocity = mgl64.Vec2{}
	if flying {
		tr.Velocity = mgl64.Vec2{math.Cos(rad), math.Sin(rad)}.Mul(tmpl.Speed)
	}

	if lt, ok := s.stores.Lifetimes.Get(h); ok {
		lt.Remaining = lt.Initial
	}
	s.stores.Shapes.MustGet(h).SetCenter(pos.X(), pos.Y())
}

func spreadOffset(i, count int, spread float64) float64 {
	return (float64(i) - float64(count-1)/2) * spread
}

// Recycle returns h to its pool. Children are split back into their pools
// or discarded according to the flags.
func (s *Spawner) Recycle(h ecs.Handle, children, split bool) bool {
	if !s.pools.InUse(h) {
		return false
	}
	s.pools.Recycle(h, pool.RecycleOptions{Children: children, Split: split})
	return true
}

// MoveTo takes over h's movement with a tween.
func (s *Spawner) MoveTo(h ecs.Handle, x, y float64, d time.Duration) bool {
	if !s.pools.Active(h) {
		return false
	}
	s.anim.Kill(h)
	s.anim.MoveTo(h, mgl64.Vec2{x, y}, d, anim.OutQuad)
	return true
}

func (s *Spawner) After(h ecs.Handle, d time.Duration, fn func()) bool {
	if !s.pools.Active(h) {
		return false
	}
	s.anim.After(h, d, fn)
	return true
}
