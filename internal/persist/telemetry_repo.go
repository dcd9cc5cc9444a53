package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/bulletpool/internal/pool"
)

var snapshotColumns = []string{
	"run_id", "tick", "pool_id", "pool_name", "free", "live",
	"created", "fetched", "reused", "recycled", "discarded", "destroyed", "leaked",
}

// TelemetryRepo records simulation runs and periodic pool snapshots.
type TelemetryRepo struct {
	db *DB
}

func NewTelemetryRepo(db *DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// StartRun inserts the run row every snapshot references.
func (r *TelemetryRepo) StartRun(ctx context.Context, runID uuid.UUID, tickRate time.Duration, pools int) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO simulation_runs (run_id, tick_rate_ms, pools) VALUES ($1, $2, $3)`,
		runID, tickRate.Milliseconds(), pools,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time.
func (r *TelemetryRepo) FinishRun(ctx context.Context, runID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE simulation_runs SET finished_at = now() WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// SaveSnapshots bulk-writes one row per pool with COPY.
func (r *TelemetryRepo) SaveSnapshots(ctx context.Context, runID uuid.UUID, tick uint64, stats []pool.Stats) (int64, error) {
	if len(stats) == 0 {
		return 0, nil
	}
	n, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"pool_snapshots"},
		snapshotColumns,
		pgx.CopyFromSlice(len(stats), func(i int) ([]any, error) {
			return snapshotRow(runID, tick, stats[i]), nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copy pool snapshots: %w", err)
	}
	return n, nil
}

func snapshotRow(runID uuid.UUID, tick uint64, s pool.Stats) []any {
	return []any{
		runID, int64(tick), int16(s.Pool), s.Name, int32(s.Free), int32(s.Live),
		int64(s.Created), int64(s.Fetched), int64(s.Reused), int64(s.Recycled),
		int64(s.Discarded), int64(s.Destroyed), int64(s.Leaked),
	}
}
