package system

import (
	"time"

	"github.com/l1jgo/bulletpool/internal/anim"
	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
	coresys "github.com/l1jgo/bulletpool/internal/core/system"
)

// MovementSystem integrates velocity for active free-flying projectiles and
// carries attached sub-munitions along with their parent. Shape centers are
// synced for every projectile it touches, tweened ones included.
// Phase 3 (Simulate).
type MovementSystem struct {
	stores *component.Stores
	anim   *anim.Animator
}

func NewMovementSystem(stores *component.Stores, a *anim.Animator) *MovementSystem {
	return &MovementSystem{stores: stores, anim: a}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseSimulate }

func (s *MovementSystem) Update(dt time.Duration) {
	sec := dt.Seconds()
	ecs.Each2(s.stores.Bodies, s.stores.Transforms, func(h ecs.Handle, b *component.Body, tr *component.Transform) {
		if !b.Active || b.Parent != 0 {
			return
		}
		if seqs, _ := s.anim.Pending(h); seqs == 0 {
			tr.Position = tr.Position.Add(tr.Velocity.Mul(sec))
		}
		s.sync(h, tr)
		s.carry(b, tr)
	})
}

func (s *MovementSystem) carry(parent *component.Body, ptr *component.Transform) {
	for _, c := range parent.Children {
		cb, ok := s.stores.Bodies.Get(c)
		if !ok {
			continue
		}
		ctr := s.stores.Transforms.MustGet(c)
		ctr.Position = ptr.Position
		s.sync(c, ctr)
		s.carry(cb, ctr)
	}
}

func (s *MovementSystem) sync(h ecs.Handle, tr *component.Transform) {
	if shape, ok := s.stores.Shapes.Get(h); ok {
		shape.SetCenter(tr.Position.X(), tr.Position.Y())
	}
}
