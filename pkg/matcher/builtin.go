package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"digital.vasic.missions/pkg/mission"
)

// Pattern match modes accepted by the regex strategy.
const (
	ModeFull    = "full"
	ModePartial = "partial"
)

// exactMatcher compares probe output to the expected value for
// exact equality after trimming trailing newlines, since shell
// probes almost always emit one.
type exactMatcher struct{}

func (exactMatcher) Name() string { return "exact" }

func (exactMatcher) Matches(actual string, spec mission.ValidationSpec) bool {
	return strings.TrimRight(actual, "\n") == spec.Expected
}

// containsMatcher checks that the expected value appears anywhere
// in the probe output.
type containsMatcher struct{}

func (containsMatcher) Name() string { return "contains" }

func (containsMatcher) Matches(actual string, spec mission.ValidationSpec) bool {
	return strings.Contains(actual, spec.Expected)
}

// existsMatcher treats the probe output as a boolean presence
// signal. Probes are expected to emit the literal "true" or "false"
// (e.g., `test -e path && echo true || echo false`); the expected
// value is ignored.
type existsMatcher struct{}

func (existsMatcher) Name() string { return "exists" }

func (existsMatcher) Matches(actual string, _ mission.ValidationSpec) bool {
	return strings.TrimSpace(actual) == "true"
}

// regexMatcher matches probe output against the expected value as a
// regular expression, fully or partially per the spec's mode.
type regexMatcher struct{}

func (regexMatcher) Name() string { return "regex" }

func (regexMatcher) Matches(actual string, spec mission.ValidationSpec) bool {
	re, err := regexp.Compile(spec.Expected)
	if err != nil {
		// ValidateSpec rejects broken patterns at load time, so
		// this only guards direct misuse.
		return false
	}
	trimmed := strings.TrimRight(actual, "\n")
	if spec.Mode == ModeFull {
		loc := re.FindStringIndex(trimmed)
		return loc != nil && loc[0] == 0 && loc[1] == len(trimmed)
	}
	return re.MatchString(trimmed)
}

// ValidateSpec compiles the pattern and checks the mode so broken
// specs fail when the mission loads, not mid-session.
func (regexMatcher) ValidateSpec(spec mission.ValidationSpec) error {
	if _, err := regexp.Compile(spec.Expected); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", spec.Expected, err)
	}
	switch spec.Mode {
	case "", ModeFull, ModePartial:
		return nil
	default:
		return fmt.Errorf("invalid match mode %q", spec.Mode)
	}
}
