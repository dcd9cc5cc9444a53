package collision

import (
	"github.com/jakecoffman/cp"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
)

// Kind selects the bounds shape.
type Kind uint8

const (
	KindCircle Kind = iota
	KindBox
)

// Shape is the collision handle owned by one entity. Enabled and Recyclable
// are independent: a shape can be registered but disabled, and a recyclable
// shape is dropped by the Monitor at its next safe point.
type Shape struct {
	owner  ecs.Handle
	kind   Kind
	radius float64
	halfW  float64
	halfH  float64
	center cp.Vector

	enabled    bool
	recyclable bool
	registered bool
}

func NewCircle(owner ecs.Handle, radius float64) *Shape {
	return &Shape{owner: owner, kind: KindCircle, radius: radius}
}

func NewBox(owner ecs.Handle, width, height float64) *Shape {
	return &Shape{owner: owner, kind: KindBox, halfW: width / 2, halfH: height / 2}
}

func (s *Shape) Owner() ecs.Handle { return s.owner }
func (s *Shape) Kind() Kind        { return s.kind }

func (s *Shape) SetEnable(v bool)     { s.enabled = v }
func (s *Shape) Enabled() bool        { return s.enabled }
func (s *Shape) SetRecyclable(v bool) { s.recyclable = v }
func (s *Shape) Recyclable() bool     { return s.recyclable }

// Registered reports whether a Monitor currently holds this shape.
func (s *Shape) Registered() bool { return s.registered }

func (s *Shape) SetCenter(x, y float64) { s.center = cp.Vector{X: x, Y: y} }
func (s *Shape) Center() cp.Vector      { return s.center }

// BB returns the axis-aligned bounds at the current center.
func (s *Shape) BB() cp.BB {
	if s.kind == KindCircle {
		return cp.NewBBForCircle(s.center, s.radius)
	}
	return cp.NewBBForExtents(s.center, s.halfW, s.halfH)
}

// Overlaps runs the narrow test: circle pairs by distance, anything else by bounds.
func (s *Shape) Overlaps(o *Shape) bool {
	if !s.BB().Intersects(o.BB()) {
		return false
	}
	if s.kind == KindCircle && o.kind == KindCircle {
		r := s.radius + o.radius
		return s.center.DistanceSq(o.center) <= r*r
	}
	return true
}

// live reports whether the shape takes part in collision tests this pass.
func (s *Shape) live() bool {
	return s.enabled && !s.recyclable
}
