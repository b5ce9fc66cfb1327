package charts

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// The engine is side-effect free: raw rows in, chart documents out. It knows
// nothing about the cache or the queue. All grouping uses UTC calendar days
// and months; sums start from zero when no rows match.

// DefaultMileageLimit caps the vehicle mileage ranking when the caller does
// not ask for a specific size.
const DefaultMileageLimit = 10

var oneHundred = decimal.NewFromInt(100)

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// FuelConsumption groups fuel logs inside the window by calendar date and
// sums liters, cost and refuel counts per day, ascending by date.
func FuelConsumption(fuelRows []FuelRow, w Window) FuelConsumptionChart {
	type daily struct {
		liters  decimal.Decimal
		cost    decimal.Decimal
		refuels int
	}
	byDay := make(map[string]*daily)
	for _, row := range fuelRows {
		if !w.Contains(row.CreatedAt) {
			continue
		}
		key := dayKey(row.CreatedAt)
		d, ok := byDay[key]
		if !ok {
			d = &daily{}
			byDay[key] = d
		}
		d.liters = d.liters.Add(row.Liters)
		d.cost = d.cost.Add(row.TotalCost)
		d.refuels++
	}

	data := make([]FuelConsumptionPoint, 0, len(byDay))
	for key, d := range byDay {
		data = append(data, FuelConsumptionPoint{
			Date:    key,
			Liters:  round2(d.liters),
			Cost:    round2(d.cost),
			Refuels: d.refuels,
		})
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Date < data[j].Date })

	return FuelConsumptionChart{Data: data, PeriodDays: w.Days}
}

// CostBreakdown maps cost categories to summed amounts for the window.
// Fuel and toll totals from the logs are appended as synthetic categories
// unless an explicit cost row of that kind already covers them.
func CostBreakdown(costRows []CostRow, fuelRows []FuelRow, tripRows []TripRow, w Window) CostBreakdownChart {
	sums := make(map[string]decimal.Decimal)
	var order []string
	kindSeen := make(map[string]bool)

	for _, row := range costRows {
		if !w.Contains(row.CreatedAt) {
			continue
		}
		if _, ok := sums[row.Category]; !ok {
			order = append(order, row.Category)
		}
		sums[row.Category] = sums[row.Category].Add(row.Amount)
		kindSeen[row.Kind] = true
	}

	fuelTotal := decimal.Zero
	for _, row := range fuelRows {
		if w.Contains(row.CreatedAt) {
			fuelTotal = fuelTotal.Add(row.TotalCost)
		}
	}
	tollsTotal := decimal.Zero
	for _, row := range tripRows {
		if w.Contains(row.CreatedAt) {
			tollsTotal = tollsTotal.Add(row.TollsCost)
		}
	}

	data := make([]CostSlice, 0, len(order)+2)
	total := decimal.Zero
	for _, category := range order {
		data = append(data, CostSlice{Category: category, Amount: round2(sums[category])})
		total = total.Add(sums[category])
	}
	if fuelTotal.IsPositive() && !kindSeen[KindFuel] {
		data = append(data, CostSlice{Category: "Fuel", Amount: round2(fuelTotal)})
		total = total.Add(fuelTotal)
	}
	if tollsTotal.IsPositive() && !kindSeen[KindTolls] {
		data = append(data, CostSlice{Category: "Tolls", Amount: round2(tollsTotal)})
		total = total.Add(tollsTotal)
	}

	return CostBreakdownChart{Data: data, Total: round2(total)}
}

// VehicleMileage ranks vehicles by total distance inside the window,
// descending, ties broken by vehicle ID ascending. Trips without a vehicle
// are excluded. The label falls back to the ID when no label was recorded.
func VehicleMileage(tripRows []TripRow, w Window, limit int) VehicleMileageChart {
	if limit <= 0 {
		limit = DefaultMileageLimit
	}

	type totals struct {
		label    string
		distance decimal.Decimal
		trips    int
	}
	byVehicle := make(map[string]*totals)
	for _, row := range tripRows {
		if !w.Contains(row.CreatedAt) || row.VehicleID == nil || *row.VehicleID == "" {
			continue
		}
		t, ok := byVehicle[*row.VehicleID]
		if !ok {
			t = &totals{}
			byVehicle[*row.VehicleID] = t
		}
		t.distance = t.distance.Add(row.DistanceKM)
		t.trips++
		if t.label == "" && row.VehicleLabel != nil {
			t.label = *row.VehicleLabel
		}
	}

	data := make([]VehicleMileageBar, 0, len(byVehicle))
	for id, t := range byVehicle {
		label := t.label
		if label == "" {
			label = id
		}
		data = append(data, VehicleMileageBar{
			VehicleID:    id,
			VehicleLabel: label,
			DistanceKM:   round2(t.distance),
			TripsCount:   t.trips,
		})
	}
	sort.Slice(data, func(i, j int) bool {
		if data[i].DistanceKM != data[j].DistanceKM {
			return data[i].DistanceKM > data[j].DistanceKM
		}
		return data[i].VehicleID < data[j].VehicleID
	})
	if len(data) > limit {
		data = data[:limit]
	}

	return VehicleMileageChart{Data: data}
}

// FuelEfficiency produces the daily liters-per-100km series. Trips with a
// non-positive distance or fuel amount carry no efficiency signal and are
// dropped before grouping, which also keeps the division safe.
func FuelEfficiency(tripRows []TripRow, w Window) FuelEfficiencyChart {
	type daily struct {
		distance decimal.Decimal
		fuel     decimal.Decimal
	}
	byDay := make(map[string]*daily)
	for _, row := range tripRows {
		if !w.Contains(row.CreatedAt) || !row.DistanceKM.IsPositive() || !row.FuelUsedL.IsPositive() {
			continue
		}
		key := dayKey(row.CreatedAt)
		d, ok := byDay[key]
		if !ok {
			d = &daily{}
			byDay[key] = d
		}
		d.distance = d.distance.Add(row.DistanceKM)
		d.fuel = d.fuel.Add(row.FuelUsedL)
	}

	data := make([]FuelEfficiencyPoint, 0, len(byDay))
	for key, d := range byDay {
		efficiency := 0.0
		if d.distance.IsPositive() {
			efficiency = round2(d.fuel.Div(d.distance).Mul(oneHundred))
		}
		data = append(data, FuelEfficiencyPoint{
			Date:       key,
			Efficiency: efficiency,
			DistanceKM: round2(d.distance),
			FuelUsedL:  round2(d.fuel),
		})
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Date < data[j].Date })

	return FuelEfficiencyChart{Data: data, PeriodDays: w.Days}
}

// CostTrend builds the per-month fuel vs tolls series over the union of
// months present in either source, ascending, with the missing side at zero.
func CostTrend(fuelRows []FuelRow, tripRows []TripRow, w Window) CostTrendChart {
	fuelByMonth := make(map[string]decimal.Decimal)
	for _, row := range fuelRows {
		if w.Contains(row.CreatedAt) {
			key := monthKey(row.CreatedAt)
			fuelByMonth[key] = fuelByMonth[key].Add(row.TotalCost)
		}
	}
	tollsByMonth := make(map[string]decimal.Decimal)
	for _, row := range tripRows {
		if w.Contains(row.CreatedAt) {
			key := monthKey(row.CreatedAt)
			tollsByMonth[key] = tollsByMonth[key].Add(row.TollsCost)
		}
	}

	months := make([]string, 0, len(fuelByMonth)+len(tollsByMonth))
	seen := make(map[string]bool)
	for key := range fuelByMonth {
		seen[key] = true
		months = append(months, key)
	}
	for key := range tollsByMonth {
		if !seen[key] {
			months = append(months, key)
		}
	}
	sort.Strings(months)

	data := make([]CostTrendPoint, 0, len(months))
	for _, key := range months {
		fuel := fuelByMonth[key]
		tolls := tollsByMonth[key]
		data = append(data, CostTrendPoint{
			Month:      key,
			MonthLabel: MonthLabel(key),
			FuelCost:   round2(fuel),
			TollsCost:  round2(tolls),
			TotalCost:  round2(fuel.Add(tolls)),
		})
	}

	return CostTrendChart{Data: data}
}

// MonthLabel renders a "2006-01" month key as "Jan 2006".
func MonthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2006")
}

// FleetSummary compares the current UTC calendar month against the previous
// one: fuel spend, distance driven and trip count, with formatted deltas.
func FleetSummary(fuelRows []FuelRow, tripRows []TripRow, now time.Time) FleetSummaryChart {
	currentStart := monthStart(now)
	lastStart := currentStart.AddDate(0, -1, 0)

	currentFuel, lastFuel := decimal.Zero, decimal.Zero
	for _, row := range fuelRows {
		switch {
		case !row.CreatedAt.Before(currentStart):
			currentFuel = currentFuel.Add(row.TotalCost)
		case !row.CreatedAt.Before(lastStart):
			lastFuel = lastFuel.Add(row.TotalCost)
		}
	}

	currentDistance, lastDistance := decimal.Zero, decimal.Zero
	currentTrips := 0
	for _, row := range tripRows {
		switch {
		case !row.CreatedAt.Before(currentStart):
			currentDistance = currentDistance.Add(row.DistanceKM)
			currentTrips++
		case !row.CreatedAt.Before(lastStart):
			lastDistance = lastDistance.Add(row.DistanceKM)
		}
	}

	return FleetSummaryChart{
		CurrentMonth: MonthTotals{
			FuelCost:        round2(currentFuel),
			TotalDistanceKM: round2(currentDistance),
			TripsCount:      currentTrips,
		},
		Deltas: SummaryDeltas{
			FuelCost: FormatDelta(round2(currentFuel), round2(lastFuel)),
			Distance: FormatDelta(round2(currentDistance), round2(lastDistance)),
		},
		Period: currentStart.Format("January 2006"),
	}
}

// FormatDelta renders a month-over-month change with an explicit sign.
// A zero baseline cannot yield a percentage, so it degrades to "+100%" when
// there is any current activity and "0%" otherwise.
func FormatDelta(current, last float64) string {
	if last == 0 {
		if current > 0 {
			return "+100%"
		}
		return "0%"
	}
	change := (current - last) / last * 100
	if change >= 0 {
		return fmt.Sprintf("+%.0f%%", change)
	}
	return fmt.Sprintf("%.0f%%", change)
}

// VehicleDirectory merges the distinct vehicles seen in trip and fuel logs.
// The first non-empty label for an ID wins; rows without an ID are skipped.
// Sorted by ID so repeated runs produce identical documents.
func VehicleDirectory(tripRows []TripRow, fuelRows []FuelRow) VehicleListChart {
	labels := make(map[string]string)
	for _, row := range tripRows {
		mergeVehicle(labels, row.VehicleID, row.VehicleLabel)
	}
	for _, row := range fuelRows {
		mergeVehicle(labels, row.VehicleID, row.VehicleLabel)
	}

	ids := make([]string, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	vehicles := make([]Vehicle, 0, len(ids))
	for _, id := range ids {
		label := labels[id]
		if label == "" {
			label = id
		}
		vehicles = append(vehicles, Vehicle{ID: id, Label: label})
	}

	return VehicleListChart{Vehicles: vehicles}
}

func mergeVehicle(labels map[string]string, id, label *string) {
	if id == nil || *id == "" {
		return
	}
	existing, ok := labels[*id]
	if !ok {
		labels[*id] = ""
		existing = ""
	}
	if existing == "" && label != nil && *label != "" {
		labels[*id] = *label
	}
}
