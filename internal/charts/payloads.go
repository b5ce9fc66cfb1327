package charts

// Cached chart documents. Field names are the wire contract shared with the
// dashboard frontend; every slice is ordered deterministically so recomputing
// over unchanged data yields byte-identical payloads.

type FuelConsumptionPoint struct {
	Date    string  `json:"date"`
	Liters  float64 `json:"liters"`
	Cost    float64 `json:"cost"`
	Refuels int     `json:"refuels"`
}

type FuelConsumptionChart struct {
	Data       []FuelConsumptionPoint `json:"data"`
	PeriodDays int                    `json:"period_days"`
}

type CostSlice struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type CostBreakdownChart struct {
	Data  []CostSlice `json:"data"`
	Total float64     `json:"total"`
}

type VehicleMileageBar struct {
	VehicleID    string  `json:"vehicle_id"`
	VehicleLabel string  `json:"vehicle_label"`
	DistanceKM   float64 `json:"distance_km"`
	TripsCount   int     `json:"trips_count"`
}

type VehicleMileageChart struct {
	Data []VehicleMileageBar `json:"data"`
}

type FuelEfficiencyPoint struct {
	Date       string  `json:"date"`
	Efficiency float64 `json:"efficiency"`
	DistanceKM float64 `json:"distance_km"`
	FuelUsedL  float64 `json:"fuel_used_l"`
}

type FuelEfficiencyChart struct {
	Data       []FuelEfficiencyPoint `json:"data"`
	PeriodDays int                   `json:"period_days"`
}

type CostTrendPoint struct {
	Month      string  `json:"month"`
	MonthLabel string  `json:"month_label"`
	FuelCost   float64 `json:"fuel_cost"`
	TollsCost  float64 `json:"tolls_cost"`
	TotalCost  float64 `json:"total_cost"`
}

type CostTrendChart struct {
	Data []CostTrendPoint `json:"data"`
}

type MonthTotals struct {
	FuelCost        float64 `json:"fuel_cost"`
	TotalDistanceKM float64 `json:"total_distance_km"`
	TripsCount      int     `json:"trips_count"`
}

type SummaryDeltas struct {
	FuelCost string `json:"fuel_cost"`
	Distance string `json:"distance"`
}

type FleetSummaryChart struct {
	CurrentMonth MonthTotals   `json:"current_month"`
	Deltas       SummaryDeltas `json:"deltas"`
	Period       string        `json:"period"`
}

type VehicleListChart struct {
	Vehicles []Vehicle `json:"vehicles"`
}
