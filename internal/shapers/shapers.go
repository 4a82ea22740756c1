// Package shapers holds query functions whose output size is
// bounded by design, never proportional to history depth, so the agent
// runtime can hand their results straight to the model without first
// checking how much history a user has accumulated.
package shapers

import "fmt"

// Scenario selects a pre-declared aggregation recipe for a shaper.
type Scenario string

const (
	ScenarioQuickCheck      Scenario = "quick_check"
	ScenarioDefault         Scenario = "default"
	ScenarioTroubleshooting Scenario = "troubleshooting"
	ScenarioHistorical      Scenario = "historical"
)

// assertRowCap panics if got exceeds want. The cap is enforced inside
// the shaper itself, not only asserted in tests, so a regression that
// inflates a scenario's
// output is caught the moment it happens rather than silently bloating
// the agent's context window.
func assertRowCap(scenario Scenario, label string, got, want int) {
	if got > want {
		panic(fmt.Sprintf("shapers: scenario %q returned %d %s rows, exceeding the declared cap of %d", scenario, got, label, want))
	}
}
