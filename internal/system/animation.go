package system

import (
	"time"

	"github.com/l1jgo/bulletpool/internal/anim"
	coresys "github.com/l1jgo/bulletpool/internal/core/system"
)

// AnimationSystem steps tweens and delayed callbacks.
// Phase 2 (Animate).
type AnimationSystem struct {
	anim *anim.Animator
}

func NewAnimationSystem(a *anim.Animator) *AnimationSystem {
	return &AnimationSystem{anim: a}
}

func (s *AnimationSystem) Phase() coresys.Phase { return coresys.PhaseAnimate }

func (s *AnimationSystem) Update(dt time.Duration) {
	s.anim.Advance(dt)
}
