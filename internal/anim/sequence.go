package anim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
)

type stepKind uint8

const (
	stepMove stepKind = iota
	stepWait
	stepCall
)

type step struct {
	kind stepKind
	to   mgl64.Vec2
	d    time.Duration
	ease Ease
	fn   func()
}

// Sequence is an ordered list of steps run against one entity's transform.
type Sequence struct {
	a      *Animator
	target ecs.Handle
	steps  []step

	cur     int
	elapsed time.Duration
	from    mgl64.Vec2
	started bool

	onComplete func()
	playing    bool
	killed     bool
	done       bool
}

func (s *Sequence) MoveTo(to mgl64.Vec2, d time.Duration, ease Ease) *Sequence {
	if ease == nil {
		ease = Linear
	}
	s.steps = append(s.steps, step{kind: stepMove, to: to, d: d, ease: ease})
	return s
}

func (s *Sequence) Wait(d time.Duration) *Sequence {
	s.steps = append(s.steps, step{kind: stepWait, d: d})
	return s
}

func (s *Sequence) Call(fn func()) *Sequence {
	s.steps = append(s.steps, step{kind: stepCall, fn: fn})
	return s
}

// OnComplete sets the handler fired after the last step. Not fired on Kill.
func (s *Sequence) OnComplete(fn func()) *Sequence {
	s.onComplete = fn
	return s
}

// Play hands the sequence to the animator. Calling it twice is a no-op.
func (s *Sequence) Play() *Sequence {
	if s.playing {
		return s
	}
	s.playing = true
	s.a.play(s)
	return s
}

// Active reports whether the sequence is still running.
func (s *Sequence) Active() bool { return s.playing && !s.killed && !s.done }

func (s *Sequence) advance(dt time.Duration) {
	for s.cur < len(s.steps) {
		st := &s.steps[s.cur]
		switch st.kind {
		case stepCall:
			s.cur++
			st.fn()
			if s.killed {
				return
			}
			continue
		case stepWait:
			if s.elapsed+dt < st.d {
				s.elapsed += dt
				return
			}
			dt -= st.d - s.elapsed
		case stepMove:
			tr, ok := s.a.transforms.Get(s.target)
			if !ok {
				s.killed = true
				s.a.unindexSeq(s)
				return
			}
			if !s.started {
				s.from = tr.Position
				s.started = true
			}
			if s.elapsed+dt < st.d {
				s.elapsed += dt
				p := st.ease(float64(s.elapsed) / float64(st.d))
				tr.Position = s.from.Add(st.to.Sub(s.from).Mul(p))
				return
			}
			tr.Position = st.to
			dt -= st.d - s.elapsed
		}
		s.cur++
		s.elapsed = 0
		s.started = false
	}
	s.done = true
	s.a.unindexSeq(s)
	if s.onComplete != nil {
		s.onComplete()
	}
}
