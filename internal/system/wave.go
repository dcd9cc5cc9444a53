package system

import (
	"time"

	coresys "github.com/l1jgo/bulletpool/internal/core/system"
	"go.uber.org/zap"
)

// ScriptTicker is the wave script engine as seen by the tick loop.
type ScriptTicker interface {
	Tick(tick uint64, dt time.Duration) error
}

// WaveSystem hands each tick to the wave scripts, which decide what to
// spawn. A failing script is logged and retried next tick.
// Phase 1 (Script).
type WaveSystem struct {
	scripts ScriptTicker
	log     *zap.Logger
	tick    uint64
	errors  int
}

func NewWaveSystem(scripts ScriptTicker, log *zap.Logger) *WaveSystem {
	return &WaveSystem{scripts: scripts, log: log}
}

func (s *WaveSystem) Phase() coresys.Phase { return coresys.PhaseScript }

func (s *WaveSystem) Update(dt time.Duration) {
	if err := s.scripts.Tick(s.tick, dt); err != nil {
		s.errors++
		s.log.Error("wave script failed", zap.Uint64("tick", s.tick), zap.Error(err))
	}
	s.tick++
}

// Errors returns how many ticks ended in a script error.
func (s *WaveSystem) Errors() int { return s.errors }
