package domain

import "time"

// BodyweightSample is one HealthMetricDaily row's (date, weight) pair,
// the only two fields the trend regression below needs.
type BodyweightSample struct {
	Date     time.Time
	WeightKg float64
}

// BodyweightTrend is the linear-regression summary fed into the health
// shaper's default scenario and the correlation tool's bodyweight series.
type BodyweightTrend struct {
	WeeklyChangeKg float64
	RSquared       float64
	StartWeightKg  float64
	EndWeightKg    float64
}

type trendPoint struct {
	daysSinceStart float64
	weightKg       float64
}

type trendFit struct {
	slope     float64
	intercept float64
	rSquared  float64
}

func (f trendFit) predict(daysSinceStart float64) float64 {
	return f.slope*daysSinceStart + f.intercept
}

// fitLinearTrend performs ordinary least squares over (x, y) points,
// falling back to a flat line through the mean when every point shares
// the same x (a single calendar day's worth of samples, in practice).
func fitLinearTrend(points []trendPoint) trendFit {
	n := float64(len(points))
	if n == 0 {
		return trendFit{}
	}

	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range points {
		sumX += p.daysSinceStart
		sumY += p.weightKg
		sumXY += p.daysSinceStart * p.weightKg
		sumX2 += p.daysSinceStart * p.daysSinceStart
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return trendFit{intercept: sumY / n}
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for _, p := range points {
		predicted := slope*p.daysSinceStart + intercept
		residual := p.weightKg - predicted
		ssRes += residual * residual
		centered := p.weightKg - meanY
		ssTot += centered * centered
	}

	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1 - (ssRes / ssTot)
	}

	return trendFit{slope: slope, intercept: intercept, rSquared: rSquared}
}

// DeriveBodyweightTrend fits a weekly rate of change to an ascending,
// date-ordered run of bodyweight samples. Fewer than two samples yields
// no trend: a single point has no slope to report.
func DeriveBodyweightTrend(samples []BodyweightSample) *BodyweightTrend {
	if len(samples) < 2 {
		return nil
	}

	start := samples[0].Date
	points := make([]trendPoint, len(samples))
	for i, sample := range samples {
		points[i] = trendPoint{
			daysSinceStart: sample.Date.Sub(start).Hours() / 24,
			weightKg:       sample.WeightKg,
		}
	}

	fit := fitLinearTrend(points)
	lastX := points[len(points)-1].daysSinceStart

	return &BodyweightTrend{
		WeeklyChangeKg: fit.slope * 7,
		RSquared:       fit.rSquared,
		StartWeightKg:  fit.predict(0),
		EndWeightKg:    fit.predict(lastX),
	}
}
