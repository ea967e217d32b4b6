// Package matcher provides the validation strategies used to compare
// probe output against a step's expected value, and the registry that
// resolves strategy names at mission-load time.
package matcher

import "digital.vasic.missions/pkg/mission"

// Matcher compares the actual probe output against the expected
// value declared by a step. Implementations are pure functions over
// their inputs and hold no mutable state.
type Matcher interface {
	// Name returns the strategy name this matcher registers under.
	Name() string

	// Matches reports whether actual satisfies expected under the
	// given spec. The spec carries strategy-specific parameters
	// such as the pattern match mode.
	Matches(actual string, spec mission.ValidationSpec) bool
}

// Outcome is the result of evaluating a step's validation. A failed
// match is an expected learner outcome, not an error; Expected and
// Actual are carried so callers can render a diagnostic.
type Outcome struct {
	Matched  bool   `json:"matched"`
	Strategy string `json:"strategy"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Check evaluates spec against actual using the given matcher.
func Check(m Matcher, actual string, spec mission.ValidationSpec) Outcome {
	return Outcome{
		Matched:  m.Matches(actual, spec),
		Strategy: m.Name(),
		Expected: spec.Expected,
		Actual:   actual,
	}
}
