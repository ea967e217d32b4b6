// Package mission defines the declarative mission model: an ordered
// sequence of validated steps, the sandbox environment they run in,
// and the completion payload awarded when the last step passes.
package mission

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ID uniquely identifies a mission. IDs are hierarchical path-like
// strings (e.g., "linux/basics/navigation").
type ID string

// Definition describes a mission declaratively. It is immutable once
// loaded; the engine never mutates it.
type Definition struct {
	Mission     Metadata    `yaml:"mission"`
	Environment Environment `yaml:"environment"`
	Steps       []Step      `yaml:"steps"`
	Completion  Completion  `yaml:"completion"`
}

// Metadata holds mission identity and display information.
type Metadata struct {
	ID         ID         `yaml:"id"`
	Title      string     `yaml:"title"`
	Difficulty Difficulty `yaml:"difficulty"`
}

// Environment describes the sandbox this mission runs in.
type Environment struct {
	// Image is the base container image reference
	// (e.g., "alpine:latest").
	Image string `yaml:"image"`

	// Setup holds commands executed in order inside the sandbox
	// before the first step becomes available. Any failure aborts
	// the mission start.
	Setup []string `yaml:"setup"`

	// WorkingDir is the working directory inside the sandbox.
	// Empty means the image default.
	WorkingDir string `yaml:"working_dir"`
}

// Step is a single validated unit of work within a mission.
type Step struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Hint        string         `yaml:"hint"`
	Validation  ValidationSpec `yaml:"validation"`
}

// ValidationSpec declares how a step is validated: a probe command
// executed inside the sandbox, the expected value, and the matcher
// strategy used to compare them.
type ValidationSpec struct {
	// Command is the probe executed inside the sandbox.
	Command string `yaml:"command"`

	// Expected is the value the probe output is compared against.
	Expected string `yaml:"expected"`

	// Matcher names the comparison strategy
	// (e.g., "exact", "contains", "exists", "regex").
	Matcher string `yaml:"matcher"`

	// Mode selects full or partial matching for pattern matchers.
	// Empty means partial.
	Mode string `yaml:"mode,omitempty"`
}

// Completion is the payload awarded when the final step passes.
type Completion struct {
	Message string `yaml:"message"`
	Points  int    `yaml:"xp"`
	Unlocks []ID   `yaml:"unlocks"`
}

// ValidationError describes a single schema problem found in a
// mission definition.
type ValidationError struct {
	Field   string
	Message string
	Index   int // step index, -1 if not step-scoped
}

func (e ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("steps[%d].%s: %s", e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the structural invariants of a definition and
// returns all problems found. Matcher name resolution is the
// loader's responsibility, since it owns the registry.
func (d *Definition) Validate() []ValidationError {
	var errs []ValidationError

	if d.Mission.ID == "" {
		errs = append(errs, ValidationError{
			Field: "mission.id", Message: "mission ID is required", Index: -1,
		})
	}
	if d.Mission.Title == "" {
		errs = append(errs, ValidationError{
			Field: "mission.title", Message: "mission title is required", Index: -1,
		})
	}
	if !d.Mission.Difficulty.Valid() {
		errs = append(errs, ValidationError{
			Field:   "mission.difficulty",
			Message: fmt.Sprintf("unknown difficulty: %q", d.Mission.Difficulty),
			Index:   -1,
		})
	}
	if d.Environment.Image == "" {
		errs = append(errs, ValidationError{
			Field: "environment.image", Message: "image is required", Index: -1,
		})
	}
	if len(d.Steps) == 0 {
		errs = append(errs, ValidationError{
			Field: "steps", Message: "at least one step is required", Index: -1,
		})
	}

	ids := make(map[string]bool)
	for i, s := range d.Steps {
		if s.ID == "" {
			errs = append(errs, ValidationError{
				Field: "id", Message: "step ID is required", Index: i,
			})
		} else if ids[s.ID] {
			errs = append(errs, ValidationError{
				Field: "id", Message: fmt.Sprintf("duplicate step ID: %s", s.ID), Index: i,
			})
		} else {
			ids[s.ID] = true
		}

		if s.Validation.Command == "" {
			errs = append(errs, ValidationError{
				Field: "validation.command", Message: "probe command is required", Index: i,
			})
		}
		if s.Validation.Matcher == "" {
			errs = append(errs, ValidationError{
				Field: "validation.matcher", Message: "matcher name is required", Index: i,
			})
		}
	}

	return errs
}

// Parse decodes a YAML mission definition. It does not validate;
// callers combine Parse with Validate so all schema problems are
// reported together.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode mission definition: %w", err)
	}
	return &def, nil
}
