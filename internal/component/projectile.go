package component

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/bulletpool/internal/collision"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
)

// Body is the pooling state of one projectile.
// Pure data; all mutations happen in the pool manager.
type Body struct {
	Pool   ecs.PoolID
	Active bool // participates in simulation and rendering
	Pooled bool // currently sitting in its pool's free-list
	// Discarded is set when a non-split recycle queued the entity for
	// destruction. It never returns to a free-list.
	Discarded bool

	Parent   ecs.Handle // zero when unowned
	Children []ecs.Handle
}

// Transform is the projectile's placement in world space.
type Transform struct {
	Position mgl64.Vec2
	Velocity mgl64.Vec2
	Rotation float64 // radians
}

// Lifetime counts down simulated time until the projectile expires.
type Lifetime struct {
	Remaining time.Duration
	Initial   time.Duration
}

// Stores groups the component stores every pooled projectile carries.
type Stores struct {
	Bodies     *ecs.PtrComponentStore[Body]
	Transforms *ecs.PtrComponentStore[Transform]
	Shapes     *ecs.PtrComponentStore[collision.Shape]
	Lifetimes  *ecs.PtrComponentStore[Lifetime]
}

// NewStores creates the stores and registers them for bulk removal.
func NewStores(reg *ecs.Registry) *Stores {
	s := &Stores{
		Bodies:     ecs.NewPtrComponentStore[Body](),
		Transforms: ecs.NewPtrComponentStore[Transform](),
		Shapes:     ecs.NewPtrComponentStore[collision.Shape](),
		Lifetimes:  ecs.NewPtrComponentStore[Lifetime](),
	}
	reg.Register("body", s.Bodies)
	reg.Register("transform", s.Transforms)
	reg.Register("shape", s.Shapes)
	reg.Register("lifetime", s.Lifetimes)
	return s
}
