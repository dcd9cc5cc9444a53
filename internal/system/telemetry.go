package system

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/bulletpool/internal/core/event"
	coresys "github.com/l1jgo/bulletpool/internal/core/system"
	"github.com/l1jgo/bulletpool/internal/pool"
	"go.uber.org/zap"
)

// SnapshotSink stores pool snapshots. *persist.TelemetryRepo implements it.
type SnapshotSink interface {
	SaveSnapshots(ctx context.Context, runID uuid.UUID, tick uint64, stats []pool.Stats) (int64, error)
}

// Counters are the projectile events seen since startup.
type Counters struct {
	Spawned  uint64
	Children uint64
	Hits     uint64
	Expired  uint64
}

// TelemetrySystem tallies projectile events and periodically logs pool
// statistics, writing them to the sink when one is configured.
// Phase 5 (Persist).
type TelemetrySystem struct {
	pools    *pool.Manager
	sink     SnapshotSink // nil = log only
	runID    uuid.UUID
	log      *zap.Logger
	counters Counters
	tick     uint64
	interval uint64
}

func NewTelemetrySystem(bus *event.Bus, pools *pool.Manager, sink SnapshotSink, runID uuid.UUID, log *zap.Logger, intervalTicks int) *TelemetrySystem {
	s := &TelemetrySystem{
		pools:    pools,
		sink:     sink,
		runID:    runID,
		log:      log,
		interval: uint64(intervalTicks),
	}
	event.Subscribe(bus, func(e event.ProjectileSpawned) {
		s.counters.Spawned++
		s.counters.Children += uint64(e.Children)
	})
	event.Subscribe(bus, func(event.ProjectileHit) { s.counters.Hits++ })
	event.Subscribe(bus, func(event.ProjectileExpired) { s.counters.Expired++ })
	return s
}

func (s *TelemetrySystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *TelemetrySystem) Update(_ time.Duration) {
	s.tick++
	if s.tick%s.interval != 0 {
		return
	}
	s.Flush()
}

// Counters returns the event tallies so far.
func (s *TelemetrySystem) Counters() Counters { return s.counters }

// Flush logs and stores a snapshot immediately. Called on shutdown too.
func (s *TelemetrySystem) Flush() {
	stats := s.pools.AllStats()
	for _, st := range stats {
		s.log.Info("pool stats",
			zap.String("pool", st.Name),
			zap.Int("free", st.Free),
			zap.Int("live", st.Live),
			zap.Uint64("fetched", st.Fetched),
			zap.Uint64("reused", st.Reused),
			zap.Uint64("recycled", st.Recycled),
			zap.Uint64("discarded", st.Discarded),
		)
	}
	s.log.Info("projectile events",
		zap.Uint64("tick", s.tick),
		zap.Uint64("spawned", s.counters.Spawned),
		zap.Uint64("children", s.counters.Children),
		zap.Uint64("hits", s.counters.Hits),
		zap.Uint64("expired", s.counters.Expired),
	)
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.sink.SaveSnapshots(ctx, s.runID, s.tick, stats); err != nil {
		s.log.Error("save pool snapshots", zap.String("run", s.runID.String()), zap.Error(err))
	}
}
