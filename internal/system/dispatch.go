package system

import (
	"time"

	coresys "github.com/l1jgo/bulletpool/internal/core/system"
	"github.com/l1jgo/bulletpool/internal/core/event"
)

// EventDispatchSystem delivers the events emitted during the previous tick.
// Phase 0 (Dispatch).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
