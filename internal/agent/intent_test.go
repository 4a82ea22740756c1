package agent

import "testing"

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		message string
		want    Intent
	}{
		{"how many sets of bench press did I do this week", IntentTraining},
		{"was my protein intake high enough yesterday", IntentNutrition},
		{"what was my resting heart rate last night", IntentBiometrics},
		{"tell me a joke", IntentUnknown},
	}
	for _, c := range cases {
		if got := ClassifyIntent(c.message); got != c.want {
			t.Errorf("ClassifyIntent(%q) = %q, want %q", c.message, got, c.want)
		}
	}
}
