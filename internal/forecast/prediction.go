package forecast

import (
	"sort"
	"time"

	"github.com/fleetify/fleet-analytics/internal/charts"
	"github.com/shopspring/decimal"
)

// Minimum observed points before a regression is worth fitting. Fewer points
// yields a sentinel document with model_stats.error set instead of an error.
const (
	MinDailyPoints   = 3
	MinMonthlyPoints = 2
)

// monthlyTrendDeadband is the slope magnitude below which a monthly trend is
// reported as stable rather than increasing/decreasing.
const monthlyTrendDeadband = 50.0

const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

type HistoricalDay struct {
	Date         string  `json:"date"`
	DayIndex     int     `json:"day_index"`
	FuelCost     float64 `json:"fuel_cost"`
	TollsCost    float64 `json:"tolls_cost"`
	TotalCost    float64 `json:"total_cost"`
	IsPrediction bool    `json:"is_prediction"`
}

type PredictedDay struct {
	Date          string  `json:"date"`
	DayIndex      int     `json:"day_index"`
	PredictedCost float64 `json:"predicted_cost"`
	IsPrediction  bool    `json:"is_prediction"`
}

type DailyModelStats struct {
	RSquared       float64 `json:"r_squared"`
	DailyTrend     float64 `json:"daily_trend"`
	Intercept      float64 `json:"intercept"`
	TrendDirection string  `json:"trend_direction"`
	DataPoints     int     `json:"data_points"`
	Error          string  `json:"error,omitempty"`
}

type PredictionSummary struct {
	TotalHistoricalCost     float64 `json:"total_historical_cost"`
	AvgDailyCost            float64 `json:"avg_daily_cost"`
	PredictedNextPeriodCost float64 `json:"predicted_next_period_cost"`
	HistoryDays             int     `json:"history_days"`
	PredictDays             int     `json:"predict_days"`
}

type CostPredictionChart struct {
	Historical []HistoricalDay    `json:"historical"`
	Prediction []PredictedDay     `json:"prediction"`
	ModelStats DailyModelStats    `json:"model_stats"`
	Summary    *PredictionSummary `json:"summary,omitempty"`
}

type HistoricalMonth struct {
	Month        string  `json:"month"`
	MonthLabel   string  `json:"month_label"`
	MonthIndex   int     `json:"month_index"`
	FuelCost     float64 `json:"fuel_cost"`
	TollsCost    float64 `json:"tolls_cost"`
	TotalCost    float64 `json:"total_cost"`
	IsPrediction bool    `json:"is_prediction"`
}

type PredictedMonth struct {
	Month         string  `json:"month"`
	MonthLabel    string  `json:"month_label"`
	MonthIndex    int     `json:"month_index"`
	PredictedCost float64 `json:"predicted_cost"`
	IsPrediction  bool    `json:"is_prediction"`
}

type MonthlyModelStats struct {
	RSquared       float64 `json:"r_squared"`
	MonthlyTrend   float64 `json:"monthly_trend"`
	TrendDirection string  `json:"trend_direction"`
	DataPoints     int     `json:"data_points"`
	Error          string  `json:"error,omitempty"`
}

type MonthlySummary struct {
	AvgMonthlyCost           float64 `json:"avg_monthly_cost"`
	PredictedNextMonthsTotal float64 `json:"predicted_next_months_total"`
}

type MonthlyPredictionChart struct {
	Historical []HistoricalMonth `json:"historical"`
	Prediction []PredictedMonth  `json:"prediction"`
	ModelStats MonthlyModelStats `json:"model_stats"`
	Summary    *MonthlySummary   `json:"summary,omitempty"`
}

// DailyPrediction fits a linear trend over the daily fuel+tolls cost series
// inside the window and projects it predictDays forward.
func DailyPrediction(fuelRows []charts.FuelRow, tripRows []charts.TripRow, w charts.Window, predictDays int) CostPredictionChart {
	fuelByDay := make(map[string]decimal.Decimal)
	for _, row := range fuelRows {
		if w.Contains(row.CreatedAt) {
			key := row.CreatedAt.UTC().Format("2006-01-02")
			fuelByDay[key] = fuelByDay[key].Add(row.TotalCost)
		}
	}
	tollsByDay := make(map[string]decimal.Decimal)
	for _, row := range tripRows {
		if w.Contains(row.CreatedAt) {
			key := row.CreatedAt.UTC().Format("2006-01-02")
			tollsByDay[key] = tollsByDay[key].Add(row.TollsCost)
		}
	}

	dates := unionKeys(fuelByDay, tollsByDay)
	if len(dates) < MinDailyPoints {
		return CostPredictionChart{
			Historical: []HistoricalDay{},
			Prediction: []PredictedDay{},
			ModelStats: DailyModelStats{Error: "insufficient data for prediction (minimum 3 days)"},
		}
	}

	base, _ := time.Parse("2006-01-02", dates[0])
	historical := make([]HistoricalDay, 0, len(dates))
	points := make([]Point, 0, len(dates))
	totalHistorical := 0.0
	for _, day := range dates {
		t, _ := time.Parse("2006-01-02", day)
		index := int(t.Sub(base).Hours() / 24)
		fuel := roundDecimal2(fuelByDay[day])
		tolls := roundDecimal2(tollsByDay[day])
		total := round2(fuel + tolls)
		historical = append(historical, HistoricalDay{
			Date:      day,
			DayIndex:  index,
			FuelCost:  fuel,
			TollsCost: tolls,
			TotalCost: total,
		})
		points = append(points, Point{X: float64(index), Y: total})
		totalHistorical += total
	}

	fit := FitLine(points)

	lastDay, _ := time.Parse("2006-01-02", dates[len(dates)-1])
	lastIndex := historical[len(historical)-1].DayIndex
	prediction := make([]PredictedDay, 0, predictDays)
	totalPredicted := 0.0
	for i := 1; i <= predictDays; i++ {
		index := lastIndex + i
		cost := fit.Forecast(float64(index))
		prediction = append(prediction, PredictedDay{
			Date:          lastDay.AddDate(0, 0, i).Format("2006-01-02"),
			DayIndex:      index,
			PredictedCost: cost,
			IsPrediction:  true,
		})
		totalPredicted += cost
	}

	return CostPredictionChart{
		Historical: historical,
		Prediction: prediction,
		ModelStats: DailyModelStats{
			RSquared:       round4(fit.RSquared),
			DailyTrend:     round2(fit.Slope),
			Intercept:      round2(fit.Intercept),
			TrendDirection: dailyDirection(fit.Slope),
			DataPoints:     len(dates),
		},
		Summary: &PredictionSummary{
			TotalHistoricalCost:     round2(totalHistorical),
			AvgDailyCost:            round2(totalHistorical / float64(len(dates))),
			PredictedNextPeriodCost: round2(totalPredicted),
			HistoryDays:             w.Days,
			PredictDays:             predictDays,
		},
	}
}

// MonthlyPrediction fits a linear trend over calendar-month cost totals since
// start and projects it predictMonths forward.
func MonthlyPrediction(fuelRows []charts.FuelRow, tripRows []charts.TripRow, start time.Time, predictMonths int) MonthlyPredictionChart {
	fuelByMonth := make(map[string]decimal.Decimal)
	for _, row := range fuelRows {
		if !row.CreatedAt.Before(start) {
			key := row.CreatedAt.UTC().Format("2006-01")
			fuelByMonth[key] = fuelByMonth[key].Add(row.TotalCost)
		}
	}
	tollsByMonth := make(map[string]decimal.Decimal)
	for _, row := range tripRows {
		if !row.CreatedAt.Before(start) {
			key := row.CreatedAt.UTC().Format("2006-01")
			tollsByMonth[key] = tollsByMonth[key].Add(row.TollsCost)
		}
	}

	months := unionKeys(fuelByMonth, tollsByMonth)
	if len(months) < MinMonthlyPoints {
		return MonthlyPredictionChart{
			Historical: []HistoricalMonth{},
			Prediction: []PredictedMonth{},
			ModelStats: MonthlyModelStats{Error: "insufficient data for prediction (minimum 2 months)"},
		}
	}

	historical := make([]HistoricalMonth, 0, len(months))
	points := make([]Point, 0, len(months))
	totalHistorical := 0.0
	for i, month := range months {
		fuel := roundDecimal2(fuelByMonth[month])
		tolls := roundDecimal2(tollsByMonth[month])
		total := round2(fuel + tolls)
		historical = append(historical, HistoricalMonth{
			Month:      month,
			MonthLabel: charts.MonthLabel(month),
			MonthIndex: i,
			FuelCost:   fuel,
			TollsCost:  tolls,
			TotalCost:  total,
		})
		points = append(points, Point{X: float64(i), Y: total})
		totalHistorical += total
	}

	fit := FitLine(points)

	lastMonth, _ := time.Parse("2006-01", months[len(months)-1])
	prediction := make([]PredictedMonth, 0, predictMonths)
	totalPredicted := 0.0
	for i := 1; i <= predictMonths; i++ {
		index := len(months) - 1 + i
		future := lastMonth.AddDate(0, i, 0)
		cost := fit.Forecast(float64(index))
		prediction = append(prediction, PredictedMonth{
			Month:         future.Format("2006-01"),
			MonthLabel:    future.Format("Jan 2006"),
			MonthIndex:    index,
			PredictedCost: cost,
			IsPrediction:  true,
		})
		totalPredicted += cost
	}

	return MonthlyPredictionChart{
		Historical: historical,
		Prediction: prediction,
		ModelStats: MonthlyModelStats{
			RSquared:       round4(fit.RSquared),
			MonthlyTrend:   round2(fit.Slope),
			TrendDirection: monthlyDirection(fit.Slope),
			DataPoints:     len(months),
		},
		Summary: &MonthlySummary{
			AvgMonthlyCost:           round2(totalHistorical / float64(len(months))),
			PredictedNextMonthsTotal: round2(totalPredicted),
		},
	}
}

func dailyDirection(slope float64) string {
	switch {
	case slope > 0:
		return TrendIncreasing
	case slope < 0:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func monthlyDirection(slope float64) string {
	switch {
	case slope > monthlyTrendDeadband:
		return TrendIncreasing
	case slope < -monthlyTrendDeadband:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func unionKeys(a, b map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func roundDecimal2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
