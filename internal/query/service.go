// Package query serves chart documents over HTTP: cache-first, with an
// on-demand compute fallback that goes through the same builder the
// recompute orchestrator uses.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fleetify/fleet-analytics/internal/cache"
	"github.com/fleetify/fleet-analytics/internal/charts"
	"github.com/fleetify/fleet-analytics/internal/recompute"
)

// Service answers chart queries. Cache misses (and parameterizations the
// cache does not cover) are computed on demand, deduplicated per key with
// singleflight so a burst of identical misses costs one computation.
type Service struct {
	store   cache.Store
	builder *recompute.Builder
	group   singleflight.Group
}

// NewService creates a query Service over the given cache and builder.
func NewService(store cache.Store, builder *recompute.Builder) *Service {
	return &Service{store: store, builder: builder}
}

// Chart returns the document for key as a JSON-ready map annotated with
// cache metadata: "cached" plus "computed_at" on hits. limit applies only
// to the vehicle mileage ranking; non-default limits bypass the cache.
func (s *Service) Chart(ctx context.Context, key cache.Key, limit int) (map[string]interface{}, error) {
	if s.cacheServes(key, limit) {
		entry, err := s.store.Get(ctx, key)
		switch {
		case err == nil:
			return annotate(entry.Payload, true, &entry.ComputedAt)
		case !errors.Is(err, cache.ErrNotFound):
			// A cache outage degrades to on-demand compute, not an error.
			slog.Warn("[Query] Cache read failed, computing on demand",
				"chart", key.Chart, "error", err)
		}
	}

	raw, err := s.computeShared(ctx, key, limit)
	if err != nil {
		return nil, err
	}
	return annotate(raw, false, nil)
}

// cacheServes reports whether the cache can hold an entry for this exact
// parameterization. The mileage limit is not part of the cache identity,
// so only the default limit is cacheable; likewise only the precomputed
// windows are materialized, so any other period goes straight to the
// on-demand path.
func (s *Service) cacheServes(key cache.Key, limit int) bool {
	if key.Chart == cache.VehicleMileage && limit != charts.DefaultMileageLimit {
		return false
	}
	if key.PeriodDays != cache.SnapshotPeriod && !charts.SupportedWindow(key.PeriodDays) {
		return false
	}
	return true
}

func (s *Service) computeShared(ctx context.Context, key cache.Key, limit int) (json.RawMessage, error) {
	flightKey := fmt.Sprintf("%s|%s|%d|%d", key.Chart, key.VehicleID, key.PeriodDays, limit)
	v, err, _ := s.group.Do(flightKey, func() (interface{}, error) {
		doc, err := s.builder.BuildWithLimit(ctx, key, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(doc)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// annotate decodes a stored document and stamps the cache metadata fields
// onto its top level.
func annotate(payload json.RawMessage, cached bool, computedAt *time.Time) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode chart document: %w", err)
	}
	doc["cached"] = cached
	if computedAt != nil {
		doc["computed_at"] = computedAt.UTC().Format(time.RFC3339)
	}
	return doc, nil
}
