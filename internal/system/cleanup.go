package system

import (
	"time"

	"github.com/l1jgo/bulletpool/internal/core/ecs"
	coresys "github.com/l1jgo/bulletpool/internal/core/system"
	"go.uber.org/zap"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Non-split sub-munitions torn down during the tick die here.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	world     *ecs.World
	log       *zap.Logger
	destroyed uint64
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: world, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if n := s.world.FlushDestroyQueue(); n > 0 {
		s.destroyed += uint64(n)
		s.log.Debug("destroyed queued entities", zap.Int("count", n))
	}
}

// Destroyed returns how many entities this system has destroyed.
func (s *CleanupSystem) Destroyed() uint64 { return s.destroyed }
