package recompute

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetify/fleet-analytics/internal/cache"
	"github.com/fleetify/fleet-analytics/internal/charts"
	"github.com/fleetify/fleet-analytics/internal/forecast"
)

// SourceReader is the read-only view of the source-of-truth tables.
// vehicleID "" means all vehicles; a zero since fetches everything.
type SourceReader interface {
	TripsSince(ctx context.Context, since time.Time, vehicleID string) ([]charts.TripRow, error)
	FuelSince(ctx context.Context, since time.Time, vehicleID string) ([]charts.FuelRow, error)
	CostsSince(ctx context.Context, since time.Time) ([]charts.CostRow, error)
	VehicleIDs(ctx context.Context) ([]string, error)
}

// Options tune the builder's defaults.
type Options struct {
	PredictDays   int
	PredictMonths int
	MileageLimit  int
	NowFn         func() time.Time
}

func (o Options) normalized() Options {
	if o.PredictDays <= 0 {
		o.PredictDays = 30
	}
	if o.PredictMonths <= 0 {
		o.PredictMonths = 3
	}
	if o.MileageLimit <= 0 {
		o.MileageLimit = charts.DefaultMileageLimit
	}
	if o.NowFn == nil {
		o.NowFn = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// Builder turns a cache key into its chart document: it fetches the rows the
// key's scope and window need and runs the matching engine over them.
// Both the orchestrator and the read path's on-demand fallback go through
// this, so a cache miss computes exactly what a cache hit would have served.
type Builder struct {
	source SourceReader
	opts   Options
}

// NewBuilder creates a Builder over the given source.
func NewBuilder(source SourceReader, opts Options) *Builder {
	return &Builder{source: source, opts: opts.normalized()}
}

// Build computes the document for key with default options.
func (b *Builder) Build(ctx context.Context, key cache.Key) (interface{}, error) {
	return b.BuildWithLimit(ctx, key, b.opts.MileageLimit)
}

// BuildWithLimit computes the document for key; limit applies only to the
// vehicle mileage ranking. Limit is not part of the cache identity, so
// non-default limits are served by the on-demand path.
func (b *Builder) BuildWithLimit(ctx context.Context, key cache.Key, limit int) (interface{}, error) {
	now := b.opts.NowFn()

	switch key.Chart {
	case cache.FuelConsumption:
		w := charts.NewWindow(now, key.PeriodDays)
		fuelRows, err := b.source.FuelSince(ctx, w.Start, key.VehicleID)
		if err != nil {
			return nil, err
		}
		return charts.FuelConsumption(fuelRows, w), nil

	case cache.CostBreakdown:
		if key.VehicleID != "" {
			return nil, fmt.Errorf("cost_breakdown is fleet-scoped")
		}
		w := charts.NewWindow(now, key.PeriodDays)
		costRows, err := b.source.CostsSince(ctx, w.Start)
		if err != nil {
			return nil, err
		}
		fuelRows, err := b.source.FuelSince(ctx, w.Start, "")
		if err != nil {
			return nil, err
		}
		tripRows, err := b.source.TripsSince(ctx, w.Start, "")
		if err != nil {
			return nil, err
		}
		return charts.CostBreakdown(costRows, fuelRows, tripRows, w), nil

	case cache.VehicleMileage:
		if key.VehicleID != "" {
			return nil, fmt.Errorf("vehicle_mileage is fleet-scoped")
		}
		w := charts.NewWindow(now, key.PeriodDays)
		tripRows, err := b.source.TripsSince(ctx, w.Start, "")
		if err != nil {
			return nil, err
		}
		return charts.VehicleMileage(tripRows, w, limit), nil

	case cache.FuelEfficiency:
		w := charts.NewWindow(now, key.PeriodDays)
		tripRows, err := b.source.TripsSince(ctx, w.Start, key.VehicleID)
		if err != nil {
			return nil, err
		}
		return charts.FuelEfficiency(tripRows, w), nil

	case cache.CostTrend:
		w := charts.NewWindow(now, key.PeriodDays)
		fuelRows, err := b.source.FuelSince(ctx, w.Start, key.VehicleID)
		if err != nil {
			return nil, err
		}
		tripRows, err := b.source.TripsSince(ctx, w.Start, key.VehicleID)
		if err != nil {
			return nil, err
		}
		return charts.CostTrend(fuelRows, tripRows, w), nil

	case cache.CostPrediction:
		w := charts.NewWindow(now, key.PeriodDays)
		fuelRows, err := b.source.FuelSince(ctx, w.Start, key.VehicleID)
		if err != nil {
			return nil, err
		}
		tripRows, err := b.source.TripsSince(ctx, w.Start, key.VehicleID)
		if err != nil {
			return nil, err
		}
		return forecast.DailyPrediction(fuelRows, tripRows, w, b.opts.PredictDays), nil

	case cache.MonthlyPrediction:
		if key.VehicleID != "" {
			return nil, fmt.Errorf("monthly_prediction is fleet-scoped")
		}
		start := now.AddDate(0, 0, -key.PeriodDays)
		fuelRows, err := b.source.FuelSince(ctx, start, "")
		if err != nil {
			return nil, err
		}
		tripRows, err := b.source.TripsSince(ctx, start, "")
		if err != nil {
			return nil, err
		}
		return forecast.MonthlyPrediction(fuelRows, tripRows, start, b.opts.PredictMonths), nil

	case cache.FleetSummary:
		if key.VehicleID != "" {
			return nil, fmt.Errorf("fleet_summary is fleet-scoped")
		}
		// Needs the previous calendar month as the comparison baseline.
		lastMonthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		fuelRows, err := b.source.FuelSince(ctx, lastMonthStart, "")
		if err != nil {
			return nil, err
		}
		tripRows, err := b.source.TripsSince(ctx, lastMonthStart, "")
		if err != nil {
			return nil, err
		}
		return charts.FleetSummary(fuelRows, tripRows, now), nil

	case cache.VehiclesList:
		if key.VehicleID != "" {
			return nil, fmt.Errorf("vehicles_list is fleet-scoped")
		}
		tripRows, err := b.source.TripsSince(ctx, time.Time{}, "")
		if err != nil {
			return nil, err
		}
		fuelRows, err := b.source.FuelSince(ctx, time.Time{}, "")
		if err != nil {
			return nil, err
		}
		return charts.VehicleDirectory(tripRows, fuelRows), nil

	default:
		return nil, fmt.Errorf("unknown chart type %q", key.Chart)
	}
}
