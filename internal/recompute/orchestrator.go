package recompute

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetify/fleet-analytics/internal/cache"
	"github.com/fleetify/fleet-analytics/internal/charts"
	"github.com/google/uuid"
)

// FleetScope is the vehicle ID meaning "the whole fleet".
const FleetScope = ""

// MonthlyPredictionPeriodDays is the fixed lookback the cached monthly
// prediction is computed over (6 months by the original 30-day convention).
const MonthlyPredictionPeriodDays = 180

// Orchestrator recomputes every chart for a scope and upserts the results.
// One chart failing is isolated: an error document is cached under that key
// and the remaining charts still refresh. Recomputation is idempotent —
// the same source snapshot always produces the same documents — which is
// what makes the queue's at-least-once delivery safe.
type Orchestrator struct {
	builder *Builder
	source  SourceReader
	store   cache.Store
}

// NewOrchestrator creates an Orchestrator writing through the given store.
func NewOrchestrator(builder *Builder, source SourceReader, store cache.Store) *Orchestrator {
	return &Orchestrator{builder: builder, source: source, store: store}
}

// KeysForScope is the fixed recomputation plan for one scope: every
// window-scoped chart valid for that scope across all supported windows,
// plus the fleet-only snapshots when the scope is fleet-wide.
func KeysForScope(vehicleID string) []cache.Key {
	var keys []cache.Key
	for _, days := range charts.SupportedWindows {
		keys = append(keys,
			cache.Key{Chart: cache.FuelConsumption, VehicleID: vehicleID, PeriodDays: days},
			cache.Key{Chart: cache.FuelEfficiency, VehicleID: vehicleID, PeriodDays: days},
			cache.Key{Chart: cache.CostTrend, VehicleID: vehicleID, PeriodDays: days},
			cache.Key{Chart: cache.CostPrediction, VehicleID: vehicleID, PeriodDays: days},
		)
		if vehicleID == FleetScope {
			keys = append(keys,
				cache.Key{Chart: cache.CostBreakdown, PeriodDays: days},
				cache.Key{Chart: cache.VehicleMileage, PeriodDays: days},
			)
		}
	}
	if vehicleID == FleetScope {
		keys = append(keys,
			cache.Key{Chart: cache.FleetSummary, PeriodDays: cache.SnapshotPeriod},
			cache.Key{Chart: cache.VehiclesList, PeriodDays: cache.SnapshotPeriod},
			cache.Key{Chart: cache.MonthlyPrediction, PeriodDays: MonthlyPredictionPeriodDays},
		)
	}
	return keys
}

// Recompute refreshes every cache entry for the scope. It runs to
// completion; individual chart failures are cached as error documents and
// never abort the rest of the plan.
func (o *Orchestrator) Recompute(ctx context.Context, vehicleID string) error {
	jobID := uuid.NewString()
	started := time.Now()
	keys := KeysForScope(vehicleID)

	failures := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, failed := o.computePayload(ctx, jobID, key)
		if failed {
			failures++
		}
		if err := o.store.Put(ctx, key, payload); err != nil {
			failures++
			slog.Error("[Recompute] Cache write failed",
				"job_id", jobID,
				"chart_type", key.Chart,
				"vehicle_id", key.VehicleID,
				"period_days", key.PeriodDays,
				"error", err,
			)
		}
	}

	slog.Info("[Recompute] Scope recomputed",
		"job_id", jobID,
		"scope", scopeLabel(vehicleID),
		"charts", len(keys),
		"failures", failures,
		"duration", time.Since(started),
	)
	return nil
}

// WarmCache recomputes the fleet-wide scope and every known vehicle.
// Called once at startup so reads hit the cache before the first event.
func (o *Orchestrator) WarmCache(ctx context.Context) error {
	ids, err := o.source.VehicleIDs(ctx)
	if err != nil {
		return fmt.Errorf("warm cache: list vehicles: %w", err)
	}

	if err := o.Recompute(ctx, FleetScope); err != nil {
		return err
	}
	for _, id := range ids {
		if err := o.Recompute(ctx, id); err != nil {
			return err
		}
	}

	slog.Info("[Recompute] Cache warmed", "vehicles", len(ids))
	return nil
}

// computePayload builds one chart document, converting any error or panic
// into a cached error document for that key.
func (o *Orchestrator) computePayload(ctx context.Context, jobID string, key cache.Key) (json.RawMessage, bool) {
	doc, err := o.buildSafely(ctx, key)
	failed := err != nil
	if failed {
		slog.Error("[Recompute] Chart computation failed",
			"job_id", jobID,
			"chart_type", key.Chart,
			"vehicle_id", key.VehicleID,
			"period_days", key.PeriodDays,
			"error", err,
		)
		doc = cache.ErrorPayload{Error: err.Error()}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		failed = true
		raw, _ = json.Marshal(cache.ErrorPayload{Error: fmt.Sprintf("marshal chart payload: %v", err)})
	}
	return raw, failed
}

func (o *Orchestrator) buildSafely(ctx context.Context, key cache.Key) (doc interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart builder panic: %v", r)
		}
	}()
	return o.builder.Build(ctx, key)
}

func scopeLabel(vehicleID string) string {
	if vehicleID == FleetScope {
		return "fleet"
	}
	return vehicleID
}
