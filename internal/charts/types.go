package charts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cost entry kinds. An explicit tag on each cost row replaces label matching:
// synthesized Fuel/Tolls categories are suppressed only when an explicit row
// of the same kind exists, never by comparing category names.
const (
	KindFuel  = "fuel"
	KindTolls = "tolls"
	KindOther = "other"
)

// TripRow is one trip log record as read from the source store.
// Money and measure columns use decimal so repeated aggregation over the
// same rows always produces the same sums.
type TripRow struct {
	ID           int64
	VehicleID    *string
	VehicleLabel *string
	DistanceKM   decimal.Decimal
	FuelUsedL    decimal.Decimal
	FuelCost     decimal.Decimal
	TollsCost    decimal.Decimal
	CreatedAt    time.Time
}

// FuelRow is one fuel log record as read from the source store.
type FuelRow struct {
	ID           int64
	VehicleID    *string
	VehicleLabel *string
	Liters       decimal.Decimal
	TotalCost    decimal.Decimal
	CreatedAt    time.Time
}

// CostRow is one manually recorded cost entry.
type CostRow struct {
	Category  string
	Kind      string // fuel | tolls | other
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Vehicle is a directory entry for filter dropdowns.
type Vehicle struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
