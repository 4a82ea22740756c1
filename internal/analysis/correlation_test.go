package analysis

import "testing"

func floatPtr(f float64) *float64 { return &f }

func TestCorrelateDomains_InsufficientProtein(t *testing.T) {
	days := make([]DaySample, 0, 7)
	for i := 0; i < 7; i++ {
		days = append(days, DaySample{
			Calories:     floatPtr(2200),
			ProteinG:     floatPtr(80),
			BodyweightKg: floatPtr(80),
		})
	}

	result := CorrelateDomains(CorrelationInput{Days: days, WorkoutCount: 4, WeeksInWindow: 1}, DefaultThresholds)

	if result.AvgProteinG != 80 || result.AvgBodyweightKg != 80 {
		t.Fatalf("unexpected averages: %+v", result)
	}
	if result.ProteinPerKgBW != 1.0 {
		t.Fatalf("expected protein_per_kg_bodyweight=1.0, got %v", result.ProteinPerKgBW)
	}

	var found *Insight
	for i := range result.Insights {
		if result.Insights[i].Type == "INSUFFICIENT_PROTEIN" {
			found = &result.Insights[i]
		}
	}
	if found == nil {
		t.Fatalf("expected an INSUFFICIENT_PROTEIN insight, got %+v", result.Insights)
	}
	if found.Severity != SeverityHigh {
		t.Fatalf("expected high severity, got %v", found.Severity)
	}
}

func TestCorrelateDomains_LowTrainingFrequency(t *testing.T) {
	result := CorrelateDomains(CorrelationInput{WorkoutCount: 2, WeeksInWindow: 1}, DefaultThresholds)

	var found bool
	for _, in := range result.Insights {
		if in.Type == "LOW_TRAINING_FREQUENCY" {
			found = true
			if in.Severity != SeverityMedium {
				t.Fatalf("expected medium severity, got %v", in.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected a LOW_TRAINING_FREQUENCY insight, got %+v", result.Insights)
	}
}

func TestCorrelateDomains_NoInsightsWhenHealthy(t *testing.T) {
	days := []DaySample{{Calories: floatPtr(2500), ProteinG: floatPtr(160), BodyweightKg: floatPtr(80)}}
	result := CorrelateDomains(CorrelationInput{Days: days, WorkoutCount: 4, WeeksInWindow: 1}, DefaultThresholds)
	if len(result.Insights) != 0 {
		t.Fatalf("expected no insights, got %+v", result.Insights)
	}
}
