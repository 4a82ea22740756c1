package analysis

import "fmt"

// Severity classifies an insight's urgency.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Insight is one structured finding from CorrelateDomains.
type Insight struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

// CorrelationThresholds are the configurable insight cutoffs;
// every tool call builds a CorrelationInput against one Thresholds
// value, defaulting to DefaultThresholds.
type CorrelationThresholds struct {
	MinProteinPerKgBW    float64
	TargetProteinPerKgBW float64
	MinWorkoutsPerWeek   float64
}

// DefaultThresholds are the cutoffs used when a caller passes none.
var DefaultThresholds = CorrelationThresholds{
	MinProteinPerKgBW:    1.6,
	TargetProteinPerKgBW: 1.8,
	MinWorkoutsPerWeek:   3,
}

// DaySample is one date-aligned row of the cross-domain series the
// correlation tool consumes.
type DaySample struct {
	Calories     *float64
	ProteinG     *float64
	BodyweightKg *float64
}

// CorrelationInput bundles the daily series with the week count implied
// by its date range, used to derive workouts-per-week.
type CorrelationInput struct {
	Days          []DaySample
	WorkoutCount  int
	WeeksInWindow float64
}

// CorrelationResult carries the averages, protein-per-kg-bodyweight,
// and a structured insights list. The
// function never calls the model; the agent only summarises this.
type CorrelationResult struct {
	AvgCalories     float64   `json:"avg_calories"`
	AvgProteinG     float64   `json:"avg_protein_g"`
	AvgBodyweightKg float64   `json:"avg_bodyweight_kg"`
	ProteinPerKgBW  float64   `json:"protein_per_kg_bodyweight"`
	WorkoutsPerWeek float64   `json:"workouts_per_week"`
	Insights        []Insight `json:"insights"`
}

// CorrelateDomains computes averages and raises threshold-driven
// insights. It is a pure function of its input and thresholds.
func CorrelateDomains(input CorrelationInput, thresholds CorrelationThresholds) CorrelationResult {
	var calSum, calN, proSum, proN, bwSum, bwN float64
	for _, d := range input.Days {
		if d.Calories != nil {
			calSum += *d.Calories
			calN++
		}
		if d.ProteinG != nil {
			proSum += *d.ProteinG
			proN++
		}
		if d.BodyweightKg != nil {
			bwSum += *d.BodyweightKg
			bwN++
		}
	}

	result := CorrelationResult{
		AvgCalories:     safeDiv(calSum, calN),
		AvgProteinG:     safeDiv(proSum, proN),
		AvgBodyweightKg: safeDiv(bwSum, bwN),
	}

	if bwN > 0 && proN > 0 {
		result.ProteinPerKgBW = result.AvgProteinG / result.AvgBodyweightKg
	}

	weeks := input.WeeksInWindow
	if weeks <= 0 {
		weeks = 1
	}
	result.WorkoutsPerWeek = float64(input.WorkoutCount) / weeks

	var insights []Insight
	if result.ProteinPerKgBW > 0 && result.ProteinPerKgBW < thresholds.MinProteinPerKgBW {
		target := thresholds.TargetProteinPerKgBW * result.AvgBodyweightKg
		insights = append(insights, Insight{
			Type:     "INSUFFICIENT_PROTEIN",
			Severity: SeverityHigh,
			Message: fmt.Sprintf("Average protein intake is %.1fg/kg bodyweight, below the %.1fg/kg threshold",
				result.ProteinPerKgBW, thresholds.MinProteinPerKgBW),
			Recommendation: fmt.Sprintf("Target roughly %.0fg of protein per day (%.1fg/kg at %.1fkg bodyweight)",
				target, thresholds.TargetProteinPerKgBW, result.AvgBodyweightKg),
		})
	}
	if result.WorkoutsPerWeek < thresholds.MinWorkoutsPerWeek {
		insights = append(insights, Insight{
			Type:     "LOW_TRAINING_FREQUENCY",
			Severity: SeverityMedium,
			Message: fmt.Sprintf("Averaging %.1f workouts/week, below the %.0f/week target",
				result.WorkoutsPerWeek, thresholds.MinWorkoutsPerWeek),
			Recommendation: "Add one more training session per week, even a short one, to rebuild frequency",
		})
	}
	result.Insights = insights

	return result
}

func safeDiv(sum, n float64) float64 {
	if n == 0 {
		return 0
	}
	return sum / n
}
