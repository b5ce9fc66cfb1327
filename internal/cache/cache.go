// Package cache defines the chart cache contract: a keyed upsert store for
// precomputed chart documents, versioned by computation timestamp. Entries
// are written only by the recompute orchestrator and read by everyone else;
// they are refreshed in place and never deleted.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ChartType identifies one chart family in the cache key.
type ChartType string

const (
	FuelConsumption   ChartType = "fuel_consumption"
	CostBreakdown     ChartType = "cost_breakdown"
	VehicleMileage    ChartType = "vehicle_mileage"
	FuelEfficiency    ChartType = "fuel_efficiency"
	CostTrend         ChartType = "cost_trend"
	CostPrediction    ChartType = "cost_prediction"
	MonthlyPrediction ChartType = "monthly_prediction"
	FleetSummary      ChartType = "fleet_summary"
	VehiclesList      ChartType = "vehicles_list"
)

// SnapshotPeriod is the period_days value for charts that are not
// window-scoped (fleet summary, vehicle directory).
const SnapshotPeriod = 0

// ErrNotFound is returned by Get when a key has never been computed.
var ErrNotFound = errors.New("chart cache: entry not found")

// Key is the composite cache identity. An empty VehicleID means fleet-wide.
type Key struct {
	Chart      ChartType
	VehicleID  string
	PeriodDays int
}

// Entry is a stored chart document and the time it was computed.
type Entry struct {
	Payload    json.RawMessage
	ComputedAt time.Time
}

// Store is the durable upsert store for chart documents.
//
// Put atomically inserts or replaces the row for key, stamping a fresh
// computed_at. Writes to different keys may run concurrently without
// coordination; writes to the same key resolve last-writer-wins.
// The store performs no staleness checks; that policy lives in the read path.
type Store interface {
	Put(ctx context.Context, key Key, payload json.RawMessage) error
	Get(ctx context.Context, key Key) (*Entry, error)
}

// ErrorPayload is cached under a chart key when that chart's computation
// failed, so reads return something deterministic instead of stale data.
type ErrorPayload struct {
	Error string `json:"error"`
}
