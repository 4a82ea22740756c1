package analysis

import (
	"reflect"
	"testing"
)

func TestDetectPlateau_InsufficientData(t *testing.T) {
	result := DetectPlateau([]float64{100, 105})
	if !result.InsufficientData {
		t.Fatalf("expected insufficient_data for 2 sessions, got %+v", result)
	}
}

func TestDetectPlateau_Stagnant(t *testing.T) {
	result := DetectPlateau([]float64{100, 100, 100})
	if !result.IsPlateau || result.Kind != PlateauStagnant {
		t.Fatalf("expected stagnant plateau, got %+v", result)
	}
	if result.WeeksStagnant != 3 {
		t.Fatalf("expected weeks_stagnant=3, got %d", result.WeeksStagnant)
	}
	if result.CurrentMax != 100 {
		t.Fatalf("expected current_max=100, got %v", result.CurrentMax)
	}
	if len(result.Recommendations) != 4 {
		t.Fatalf("expected 4 recommendations, got %d", len(result.Recommendations))
	}
}

func TestDetectPlateau_Regression(t *testing.T) {
	result := DetectPlateau([]float64{100, 95, 88})
	if !result.IsPlateau || result.Kind != PlateauRegression {
		t.Fatalf("expected regression plateau, got %+v", result)
	}
	if result.WeightLossPct != 12.0 {
		t.Fatalf("expected weight_loss_pct=12.0, got %v", result.WeightLossPct)
	}
	if len(result.Recommendations) != 4 {
		t.Fatalf("expected 4 recommendations, got %d", len(result.Recommendations))
	}
}

func TestDetectPlateau_RegressionBoundary(t *testing.T) {
	notRegression := DetectPlateau([]float64{100, 100, 90.01})
	if notRegression.Kind == PlateauRegression {
		t.Fatalf("90.01%% of first should not be a regression: %+v", notRegression)
	}

	isRegression := DetectPlateau([]float64{100, 100, 89.99})
	if isRegression.Kind != PlateauRegression {
		t.Fatalf("89.99%% of first should be a regression: %+v", isRegression)
	}
}

func TestDetectPlateau_RegressionWinsTieBreak(t *testing.T) {
	// last3 stagnant (all equal to 80) but 80 is <= 0.9*100, so regression
	// must win over stagnant per the tie-break rule.
	result := DetectPlateau([]float64{100, 80, 80, 80})
	if result.Kind != PlateauRegression {
		t.Fatalf("expected regression to win tie-break, got %+v", result)
	}
}

func TestDetectPlateau_NoPlateau(t *testing.T) {
	result := DetectPlateau([]float64{100, 102, 105})
	if result.IsPlateau {
		t.Fatalf("expected no plateau for rising progression, got %+v", result)
	}
	if result.CurrentMax != 105 {
		t.Fatalf("expected current_max=105, got %v", result.CurrentMax)
	}
}

func TestDetectPlateau_Deterministic(t *testing.T) {
	progression := []float64{100, 95, 88}
	a := DetectPlateau(progression)
	b := DetectPlateau(progression)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical results for identical input: %+v vs %+v", a, b)
	}
}
