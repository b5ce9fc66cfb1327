package forecast

import "math"

// Point is one observation for the regression: X is a zero-based day or
// month index, Y the total cost observed at that index.
type Point struct {
	X float64
	Y float64
}

// Fit holds the closed-form least-squares line over an observed series.
type Fit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// FitLine computes the ordinary least-squares line through the points.
// RSquared is defined as 0 for a constant series (SS_tot == 0).
func FitLine(points []Point) Fit {
	n := float64(len(points))
	if n == 0 {
		return Fit{}
	}

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	meanX := sumX / n
	meanY := sumY / n

	var ssXY, ssXX float64
	for _, p := range points {
		dx := p.X - meanX
		ssXY += dx * (p.Y - meanY)
		ssXX += dx * dx
	}

	slope := 0.0
	if ssXX != 0 {
		slope = ssXY / ssXX
	}
	intercept := meanY - slope*meanX

	var ssRes, ssTot float64
	for _, p := range points {
		residual := p.Y - (slope*p.X + intercept)
		ssRes += residual * residual
		deviation := p.Y - meanY
		ssTot += deviation * deviation
	}
	rSquared := 0.0
	if ssTot != 0 {
		rSquared = 1 - ssRes/ssTot
	}

	return Fit{Slope: slope, Intercept: intercept, RSquared: rSquared}
}

// Forecast projects the fitted line to index x. Costs cannot be negative,
// so the projection is clamped at 0, then rounded to cents.
func (f Fit) Forecast(x float64) float64 {
	v := f.Slope*x + f.Intercept
	if v < 0 {
		v = 0
	}
	return round2(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
