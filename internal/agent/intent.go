package agent

import "strings"

// Intent is a coarse classification of what domain a user message is
// about, used only to pick which shaper scenario to warm into the first
// turn's context before the model ever runs — an optimization, never a
// substitute for the tool-calling loop itself.
type Intent string

const (
	IntentTraining   Intent = "TRAINING"
	IntentNutrition  Intent = "NUTRITION"
	IntentBiometrics Intent = "BIOMETRICS"
	IntentUnknown    Intent = ""
)

var trainingKeywords = []string{"workout", "lift", "squat", "bench", "deadlift", "set", "rep", "training", "exercise", "gym", "plateau"}
var nutritionKeywords = []string{"calorie", "protein", "carb", "fat", "meal", "eat", "diet", "macro", "nutrition"}
var biometricsKeywords = []string{"weight", "sleep", "steps", "heart rate", "resting", "bodyweight"}

// ClassifyIntent runs a rule-based keyword match over the raw user
// message rather than reaching for a model call on the fast path. Returns IntentUnknown when
// no keyword list matches, in which case the caller should fall back to
// holistic_snapshot.
func ClassifyIntent(message string) Intent {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, trainingKeywords):
		return IntentTraining
	case containsAny(lower, nutritionKeywords):
		return IntentNutrition
	case containsAny(lower, biometricsKeywords):
		return IntentBiometrics
	default:
		return IntentUnknown
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
