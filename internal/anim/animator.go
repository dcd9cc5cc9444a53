package anim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
	"go.uber.org/zap"
)

// Ease maps linear progress in [0,1] to eased progress.
type Ease func(t float64) float64

func Linear(t float64) float64  { return t }
func OutQuad(t float64) float64 { return t * (2 - t) }

// Animator drives transform animations, sequences and delayed callbacks for
// entities. Everything it holds for an entity can be cancelled by handle:
// Kill drops animations and sequences, ClearCallbacks drops scheduled calls.
// Single-goroutine access only (game loop).
type Animator struct {
	transforms *ecs.PtrComponentStore[component.Transform]

	seqs   []*Sequence
	timers []*timer
	bySeq  map[ecs.Handle][]*Sequence
	byCall map[ecs.Handle][]*timer

	log *zap.Logger
}

type timer struct {
	target    ecs.Handle
	remaining time.Duration
	fn        func()
	cancelled bool
}

func NewAnimator(transforms *ecs.PtrComponentStore[component.Transform], log *zap.Logger) *Animator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Animator{
		transforms: transforms,
		seqs:       make([]*Sequence, 0, 128),
		timers:     make([]*timer, 0, 128),
		bySeq:      make(map[ecs.Handle][]*Sequence),
		byCall:     make(map[ecs.Handle][]*timer),
		log:        log,
	}
}

// MoveTo starts a single-step transform animation towards to.
func (a *Animator) MoveTo(h ecs.Handle, to mgl64.Vec2, d time.Duration, ease Ease) *Sequence {
	return a.Sequence(h).MoveTo(to, d, ease).Play()
}

// Sequence returns an empty sequence for h. Steps run one after another once
// Play is called.
func (a *Animator) Sequence(h ecs.Handle) *Sequence {
	return &Sequence{a: a, target: h}
}

// After schedules fn to run once delay of simulated time has passed.
func (a *Animator) After(h ecs.Handle, delay time.Duration, fn func()) {
	t := &timer{target: h, remaining: delay, fn: fn}
	a.timers = append(a.timers, t)
	a.byCall[h] = append(a.byCall[h], t)
}

func (a *Animator) play(s *Sequence) {
	a.seqs = append(a.seqs, s)
	a.bySeq[s.target] = append(a.bySeq[s.target], s)
}

// Kill cancels every running animation and sequence bound to h without
// firing their completion handlers. Returns how many were cancelled.
func (a *Animator) Kill(h ecs.Handle) int {
	seqs := a.bySeq[h]
	for _, s := range seqs {
		s.killed = true
	}
	delete(a.bySeq, h)
	return len(seqs)
}

// ClearCallbacks cancels every scheduled callback bound to h.
func (a *Animator) ClearCallbacks(h ecs.Handle) int {
	calls := a.byCall[h]
	for _, t := range calls {
		t.cancelled = true
	}
	delete(a.byCall, h)
	return len(calls)
}

// Pending returns the number of live sequences and callbacks bound to h.
func (a *Animator) Pending(h ecs.Handle) (sequences, callbacks int) {
	return len(a.bySeq[h]), len(a.byCall[h])
}

// Advance steps all sequences and timers by dt. Callbacks may start new
// animations or cancel existing ones; new work is first stepped next frame.
func (a *Animator) Advance(dt time.Duration) {
	n := len(a.seqs)
	for i := 0; i < n; i++ {
		s := a.seqs[i]
		if !s.killed && !s.done {
			s.advance(dt)
		}
	}
	n = len(a.timers)
	for i := 0; i < n; i++ {
		t := a.timers[i]
		if t.cancelled {
			continue
		}
		t.remaining -= dt
		if t.remaining <= 0 {
			t.cancelled = true
			a.unindexTimer(t)
			t.fn()
		}
	}
	a.compact()
}

func (a *Animator) compact() {
	seqs := a.seqs[:0]
	for _, s := range a.seqs {
		if !s.killed && !s.done {
			seqs = append(seqs, s)
		}
	}
	for i := len(seqs); i < len(a.seqs); i++ {
		a.seqs[i] = nil
	}
	a.seqs = seqs

	timers := a.timers[:0]
	for _, t := range a.timers {
		if !t.cancelled {
			timers = append(timers, t)
		}
	}
	for i := len(timers); i < len(a.timers); i++ {
		a.timers[i] = nil
	}
	a.timers = timers
}

func (a *Animator) unindexSeq(s *Sequence) {
	list := a.bySeq[s.target]
	for i, x := range list {
		if x == s {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(a.bySeq, s.target)
		return
	}
	a.bySeq[s.target] = list
}

func (a *Animator) unindexTimer(t *timer) {
	list := a.byCall[t.target]
	for i, x := range list {
		if x == t {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(a.byCall, t.target)
		return
	}
	a.byCall[t.target] = list
}

// Len returns the number of live sequences and timers across all entities.
func (a *Animator) Len() (sequences, callbacks int) {
	seqs, calls := 0, 0
	for _, s := range a.seqs {
		if !s.killed && !s.done {
			seqs++
		}
	}
	for _, t := range a.timers {
		if !t.cancelled {
			calls++
		}
	}
	return seqs, calls
}
