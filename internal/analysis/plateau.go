// Package analysis holds three deterministic functions over the bounded
// output of the shapers — plateau detection, cross-domain
// correlation, and a holistic snapshot composing both. None of the three
// call the model; the agent runtime only asks the model to summarise
// their structured output.
package analysis

import "fmt"

// PlateauWindowWeeks is the default lookback the caller should use to
// build progression before calling DetectPlateau. The inner
// stagnant/regression check itself is keyed to the last 3 sessions, not
// a calendar span — the two diverge whenever training frequency changes.
// PlateauWindowWeeks only bounds what the caller feeds in as recent
// history, not the 3-session check.
const PlateauWindowWeeks = 8

// PlateauKind classifies a detected plateau.
type PlateauKind string

const (
	PlateauStagnant   PlateauKind = "stagnant"
	PlateauRegression PlateauKind = "regression"
)

// PlateauResult is the structured verdict DetectPlateau returns.
type PlateauResult struct {
	InsufficientData bool        `json:"insufficient_data,omitempty"`
	IsPlateau        bool        `json:"is_plateau"`
	Kind             PlateauKind `json:"kind,omitempty"`
	WeeksStagnant    int         `json:"weeks_stagnant,omitempty"`
	CurrentMax       float64     `json:"current_max,omitempty"`
	WeightLossPct    float64     `json:"weight_loss_pct,omitempty"`
	Recommendations  []string    `json:"recommendations,omitempty"`
}

// recommendationCatalogue is a fixed, deterministic set of suggestions
// per plateau kind — never generated, so output stays byte-identical for
// a given input.
var recommendationCatalogue = map[PlateauKind][]string{
	PlateauStagnant: {
		"Increase weekly volume by adding one working set per session",
		"Introduce a deload week, then resume progression",
		"Vary rep range (e.g. switch from 5x5 to 4x8) for 2-3 weeks",
		"Check recovery inputs: sleep, protein intake, and overall fatigue",
	},
	PlateauRegression: {
		"Reduce load by 10% and rebuild with strict form",
		"Audit recent recovery: sleep debt and caloric deficit both blunt strength",
		"Confirm the movement pattern hasn't drifted (form check or video review)",
		"Consider a full deload week before resuming progression",
	},
}

// DetectPlateau applies the plateau rules to an ordered progression
// of per-session max working weight, most recent session last. It is a
// pure function: identical input always produces an identical result.
func DetectPlateau(progression []float64) PlateauResult {
	if len(progression) < 3 {
		return PlateauResult{InsufficientData: true}
	}

	last3 := progression[len(progression)-3:]
	maxV, minV := last3[0], last3[0]
	for _, v := range last3[1:] {
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}
	stagnant := maxV == minV

	first := progression[0]
	last := progression[len(progression)-1]
	regression := first > 0 && last <= 0.9*first

	switch {
	case regression:
		lossPct := (1 - last/first) * 100
		return PlateauResult{
			IsPlateau:       true,
			Kind:            PlateauRegression,
			CurrentMax:      last,
			WeightLossPct:   roundTo(lossPct, 1),
			Recommendations: recommendationCatalogue[PlateauRegression],
		}
	case stagnant:
		return PlateauResult{
			IsPlateau:       true,
			Kind:            PlateauStagnant,
			WeeksStagnant:   3,
			CurrentMax:      maxV,
			Recommendations: recommendationCatalogue[PlateauStagnant],
		}
	default:
		return PlateauResult{IsPlateau: false, CurrentMax: last}
	}
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int(v*mult+0.5)) / mult
}

// FormatProgressionKey renders a stable cache/log key for one exercise's
// progression query; not part of the public analysis contract, just a
// naming helper the agent tool handler reuses.
func FormatProgressionKey(userID, exerciseTitle string) string {
	return fmt.Sprintf("plateau:%s:%s", userID, exerciseTitle)
}
