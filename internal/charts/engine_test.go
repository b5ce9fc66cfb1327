package charts

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestFuelConsumption_GroupsByDay(t *testing.T) {
	w := NewWindow(testNow, 30)
	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	rows := []FuelRow{
		{ID: 1, Liters: dec("50"), TotalCost: dec("300"), CreatedAt: day},
		{ID: 2, Liters: dec("30"), TotalCost: dec("180"), CreatedAt: day.Add(6 * time.Hour)},
		{ID: 3, Liters: dec("40"), TotalCost: dec("240"), CreatedAt: day.AddDate(0, 0, 2)},
	}

	chart := FuelConsumption(rows, w)
	require.Len(t, chart.Data, 2)
	require.Equal(t, 30, chart.PeriodDays)

	require.Equal(t, "2026-03-10", chart.Data[0].Date)
	require.Equal(t, 80.0, chart.Data[0].Liters)
	require.Equal(t, 480.0, chart.Data[0].Cost)
	require.Equal(t, 2, chart.Data[0].Refuels)

	require.Equal(t, "2026-03-12", chart.Data[1].Date)
	require.Equal(t, 1, chart.Data[1].Refuels)
}

func TestFuelConsumption_ExcludesRowsOutsideWindow(t *testing.T) {
	w := NewWindow(testNow, 7)
	rows := []FuelRow{
		{ID: 1, Liters: dec("50"), TotalCost: dec("300"), CreatedAt: testNow.AddDate(0, 0, -10)},
	}

	chart := FuelConsumption(rows, w)
	require.Empty(t, chart.Data)
}

func TestCostBreakdown_SynthesizesFuelAndTolls(t *testing.T) {
	w := NewWindow(testNow, 30)
	inWindow := testNow.AddDate(0, 0, -1)

	costs := []CostRow{
		{Category: "Insurance", Kind: KindOther, Amount: dec("1200"), CreatedAt: inWindow},
		{Category: "Service", Kind: KindOther, Amount: dec("450"), CreatedAt: inWindow},
	}
	fuel := []FuelRow{{ID: 1, TotalCost: dec("600"), CreatedAt: inWindow}}
	trips := []TripRow{{ID: 1, TollsCost: dec("80"), CreatedAt: inWindow}}

	chart := CostBreakdown(costs, fuel, trips, w)
	require.Len(t, chart.Data, 4)
	require.Equal(t, "Insurance", chart.Data[0].Category)
	require.Equal(t, "Service", chart.Data[1].Category)
	require.Equal(t, "Fuel", chart.Data[2].Category)
	require.Equal(t, 600.0, chart.Data[2].Amount)
	require.Equal(t, "Tolls", chart.Data[3].Category)
	require.Equal(t, 80.0, chart.Data[3].Amount)
	require.Equal(t, 2330.0, chart.Total)
}

func TestCostBreakdown_ExplicitKindSuppressesSynthetic(t *testing.T) {
	w := NewWindow(testNow, 30)
	inWindow := testNow.AddDate(0, 0, -1)

	tests := []struct {
		name     string
		costs    []CostRow
		wantCats []string
		want     float64
	}{
		{
			name: "explicit fuel entry wins over log-derived total",
			costs: []CostRow{
				{Category: "Diesel", Kind: KindFuel, Amount: dec("500"), CreatedAt: inWindow},
			},
			wantCats: []string{"Diesel", "Tolls"},
			want:     580.0,
		},
		{
			name: "explicit tolls entry wins over trip-derived total",
			costs: []CostRow{
				{Category: "Highway fees", Kind: KindTolls, Amount: dec("75"), CreatedAt: inWindow},
			},
			wantCats: []string{"Highway fees", "Fuel"},
			want:     675.0,
		},
	}

	fuel := []FuelRow{{ID: 1, TotalCost: dec("600"), CreatedAt: inWindow}}
	trips := []TripRow{{ID: 1, TollsCost: dec("80"), CreatedAt: inWindow}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chart := CostBreakdown(tc.costs, fuel, trips, w)
			cats := make([]string, 0, len(chart.Data))
			for _, slice := range chart.Data {
				cats = append(cats, slice.Category)
			}
			require.Equal(t, tc.wantCats, cats)
			require.Equal(t, tc.want, chart.Total)
		})
	}
}

func TestCostBreakdown_ZeroTotalsAddNoCategories(t *testing.T) {
	w := NewWindow(testNow, 30)
	chart := CostBreakdown(nil, nil, nil, w)
	require.Empty(t, chart.Data)
	require.Equal(t, 0.0, chart.Total)
}

func TestVehicleMileage_RankingAndTies(t *testing.T) {
	w := NewWindow(testNow, 30)
	inWindow := testNow.AddDate(0, 0, -1)

	rows := []TripRow{
		{ID: 1, VehicleID: strPtr("v2"), DistanceKM: dec("100"), CreatedAt: inWindow},
		{ID: 2, VehicleID: strPtr("v1"), DistanceKM: dec("100"), CreatedAt: inWindow},
		{ID: 3, VehicleID: strPtr("v3"), VehicleLabel: strPtr("Truck 3"), DistanceKM: dec("250"), CreatedAt: inWindow},
		{ID: 4, VehicleID: nil, DistanceKM: dec("999"), CreatedAt: inWindow},
	}

	chart := VehicleMileage(rows, w, 10)
	require.Len(t, chart.Data, 3)
	require.Equal(t, "v3", chart.Data[0].VehicleID)
	require.Equal(t, "Truck 3", chart.Data[0].VehicleLabel)
	// Equal distances order by vehicle ID.
	require.Equal(t, "v1", chart.Data[1].VehicleID)
	require.Equal(t, "v2", chart.Data[2].VehicleID)
	// Missing label falls back to the ID.
	require.Equal(t, "v1", chart.Data[1].VehicleLabel)
}

func TestVehicleMileage_AppliesLimit(t *testing.T) {
	w := NewWindow(testNow, 30)
	inWindow := testNow.AddDate(0, 0, -1)

	rows := []TripRow{
		{ID: 1, VehicleID: strPtr("a"), DistanceKM: dec("10"), CreatedAt: inWindow},
		{ID: 2, VehicleID: strPtr("b"), DistanceKM: dec("20"), CreatedAt: inWindow},
		{ID: 3, VehicleID: strPtr("c"), DistanceKM: dec("30"), CreatedAt: inWindow},
	}

	chart := VehicleMileage(rows, w, 2)
	require.Len(t, chart.Data, 2)
	require.Equal(t, "c", chart.Data[0].VehicleID)
	require.Equal(t, "b", chart.Data[1].VehicleID)
}

func TestFuelEfficiency_DropsRowsWithoutSignal(t *testing.T) {
	w := NewWindow(testNow, 30)
	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	rows := []TripRow{
		{ID: 1, DistanceKM: dec("200"), FuelUsedL: dec("16"), CreatedAt: day},
		{ID: 2, DistanceKM: dec("0"), FuelUsedL: dec("5"), CreatedAt: day},
		{ID: 3, DistanceKM: dec("50"), FuelUsedL: dec("0"), CreatedAt: day},
		{ID: 4, DistanceKM: dec("-10"), FuelUsedL: dec("2"), CreatedAt: day},
	}

	chart := FuelEfficiency(rows, w)
	require.Len(t, chart.Data, 1)
	require.Equal(t, "2026-03-10", chart.Data[0].Date)
	require.Equal(t, 8.0, chart.Data[0].Efficiency) // 16 l / 200 km * 100
	require.Equal(t, 200.0, chart.Data[0].DistanceKM)
	require.Equal(t, 16.0, chart.Data[0].FuelUsedL)
}

func TestCostTrend_UnionsMonths(t *testing.T) {
	w := NewWindow(testNow, 90)

	fuel := []FuelRow{
		{ID: 1, TotalCost: dec("300"), CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{ID: 2, TotalCost: dec("200"), CreatedAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	trips := []TripRow{
		{ID: 1, TollsCost: dec("40"), CreatedAt: time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)},
	}

	chart := CostTrend(fuel, trips, w)
	require.Len(t, chart.Data, 3)

	require.Equal(t, "2026-01", chart.Data[0].Month)
	require.Equal(t, "Jan 2026", chart.Data[0].MonthLabel)
	require.Equal(t, 300.0, chart.Data[0].FuelCost)
	require.Equal(t, 0.0, chart.Data[0].TollsCost)

	require.Equal(t, "2026-02", chart.Data[1].Month)
	require.Equal(t, 0.0, chart.Data[1].FuelCost)
	require.Equal(t, 40.0, chart.Data[1].TollsCost)
	require.Equal(t, 40.0, chart.Data[1].TotalCost)

	require.Equal(t, "2026-03", chart.Data[2].Month)
	require.Equal(t, 200.0, chart.Data[2].TotalCost)
}

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		last    float64
		want    string
	}{
		{"growth from zero baseline", 500, 0, "+100%"},
		{"both zero", 0, 0, "0%"},
		{"increase", 150, 100, "+50%"},
		{"decrease", 50, 100, "-50%"},
		{"flat", 100, 100, "+0%"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, FormatDelta(tc.current, tc.last))
		})
	}
}

func TestFleetSummary_ComparesCalendarMonths(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	fuel := []FuelRow{
		{ID: 1, TotalCost: dec("600"), CreatedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{ID: 2, TotalCost: dec("400"), CreatedAt: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)},
	}
	trips := []TripRow{
		{ID: 1, DistanceKM: dec("300"), CreatedAt: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
		{ID: 2, DistanceKM: dec("100"), CreatedAt: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)},
		{ID: 3, DistanceKM: dec("200"), CreatedAt: time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC)},
	}

	chart := FleetSummary(fuel, trips, now)
	require.Equal(t, 600.0, chart.CurrentMonth.FuelCost)
	require.Equal(t, 400.0, chart.CurrentMonth.TotalDistanceKM)
	require.Equal(t, 2, chart.CurrentMonth.TripsCount)
	require.Equal(t, "+50%", chart.Deltas.FuelCost)
	require.Equal(t, "+100%", chart.Deltas.Distance)
	require.Equal(t, "March 2026", chart.Period)
}

func TestVehicleDirectory_MergesAndDeduplicates(t *testing.T) {
	trips := []TripRow{
		{ID: 1, VehicleID: strPtr("v1"), VehicleLabel: nil},
		{ID: 2, VehicleID: strPtr("v2"), VehicleLabel: strPtr("Van 2")},
		{ID: 3, VehicleID: nil},
	}
	fuel := []FuelRow{
		{ID: 1, VehicleID: strPtr("v1"), VehicleLabel: strPtr("Truck 1")},
		{ID: 2, VehicleID: strPtr("v2"), VehicleLabel: strPtr("ignored later label")},
		{ID: 3, VehicleID: strPtr("v3")},
	}

	chart := VehicleDirectory(trips, fuel)
	require.Len(t, chart.Vehicles, 3)
	require.Equal(t, Vehicle{ID: "v1", Label: "Truck 1"}, chart.Vehicles[0])
	require.Equal(t, Vehicle{ID: "v2", Label: "Van 2"}, chart.Vehicles[1])
	// No label anywhere falls back to the ID.
	require.Equal(t, Vehicle{ID: "v3", Label: "v3"}, chart.Vehicles[2])
}

func TestSupportedWindow(t *testing.T) {
	for _, days := range SupportedWindows {
		require.True(t, SupportedWindow(days))
	}
	require.False(t, SupportedWindow(14))
	require.False(t, SupportedWindow(0))
}
