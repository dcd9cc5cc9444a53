package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseDispatch Phase = iota // 0: deliver last tick's events
	PhaseScript                // 1: wave scripts spawn and preload
	PhaseAnimate               // 2: tweens, sequences, delayed callbacks
	PhaseSimulate              // 3: movement, lifetimes
	PhaseCollide               // 4: collision pass + monitor safe point
	PhasePersist               // 5: telemetry snapshots
	PhaseCleanup               // 6: destroy queued entities
)

var phaseNames = [...]string{"dispatch", "script", "animate", "simulate", "collide", "persist", "cleanup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
