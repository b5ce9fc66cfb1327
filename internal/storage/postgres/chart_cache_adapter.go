package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetify/fleet-analytics/internal/cache"
)

const (
	queryUpsertChartEntry = `
		INSERT INTO chart_cache (chart_type, vehicle_id, period_days, payload, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chart_type, vehicle_id, period_days)
		DO UPDATE SET
			payload     = EXCLUDED.payload,
			computed_at = EXCLUDED.computed_at
	`

	queryGetChartEntry = `
		SELECT payload, computed_at
		FROM chart_cache
		WHERE chart_type = $1 AND vehicle_id = $2 AND period_days = $3
	`
)

// ChartCacheAdapter implements cache.Store on PostgreSQL. One row per
// composite key; ON CONFLICT replaces payload and computed_at in a single
// statement, which is the atomicity the upsert contract needs. Rows for
// different keys never contend, so concurrent fleet-wide and per-vehicle
// recomputation can write without coordination.
type ChartCacheAdapter struct {
	db    *sql.DB
	nowFn func() time.Time
}

// NewChartCacheAdapter creates a ChartCacheAdapter sharing the given connection.
func NewChartCacheAdapter(db *sql.DB) *ChartCacheAdapter {
	return &ChartCacheAdapter{
		db:    db,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Put inserts or replaces the document for key, stamping a fresh computed_at.
func (a *ChartCacheAdapter) Put(ctx context.Context, key cache.Key, payload json.RawMessage) error {
	computedAt := a.nowFn()
	_, err := a.db.ExecContext(ctx, queryUpsertChartEntry,
		string(key.Chart),
		key.VehicleID,
		key.PeriodDays,
		[]byte(payload),
		computedAt,
	)
	if err != nil {
		return fmt.Errorf("chart cache put %s/%q/%d: %w", key.Chart, key.VehicleID, key.PeriodDays, err)
	}

	slog.Debug("[ChartCache] Upserted entry",
		"chart_type", key.Chart,
		"vehicle_id", key.VehicleID,
		"period_days", key.PeriodDays,
		"computed_at", computedAt,
	)
	return nil
}

// Get returns the stored document for key, or cache.ErrNotFound if the key
// has never been computed.
func (a *ChartCacheAdapter) Get(ctx context.Context, key cache.Key) (*cache.Entry, error) {
	var (
		payload    []byte
		computedAt time.Time
	)
	err := a.db.QueryRowContext(ctx, queryGetChartEntry,
		string(key.Chart),
		key.VehicleID,
		key.PeriodDays,
	).Scan(&payload, &computedAt)
	if err == sql.ErrNoRows {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chart cache get %s/%q/%d: %w", key.Chart, key.VehicleID, key.PeriodDays, err)
	}

	return &cache.Entry{Payload: payload, ComputedAt: computedAt}, nil
}
