package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *Definition {
	return &Definition{
		Mission: Metadata{
			ID:         "demo/basics/echo",
			Title:      "Echo Basics",
			Difficulty: DifficultyBeginner,
		},
		Environment: Environment{
			Image:      "alpine:latest",
			Setup:      []string{"mkdir -p /workspace"},
			WorkingDir: "/workspace",
		},
		Steps: []Step{
			{
				ID:          "say-ready",
				Title:       "Say ready",
				Description: "Create a readiness marker",
				Hint:        "echo is your friend",
				Validation: ValidationSpec{
					Command:  "cat /workspace/status",
					Expected: "ready",
					Matcher:  "exact",
				},
			},
		},
		Completion: Completion{
			Message: "Well done",
			Points:  200,
			Unlocks: []ID{"demo/basics/files"},
		},
	}
}

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Definition)
		field  string
	}{
		{
			"missing mission id",
			func(d *Definition) { d.Mission.ID = "" },
			"mission.id",
		},
		{
			"missing title",
			func(d *Definition) { d.Mission.Title = "" },
			"mission.title",
		},
		{
			"unknown difficulty",
			func(d *Definition) { d.Mission.Difficulty = "expert" },
			"mission.difficulty",
		},
		{
			"missing image",
			func(d *Definition) { d.Environment.Image = "" },
			"environment.image",
		},
		{
			"no steps",
			func(d *Definition) { d.Steps = nil },
			"steps",
		},
		{
			"missing step id",
			func(d *Definition) { d.Steps[0].ID = "" },
			"id",
		},
		{
			"duplicate step id",
			func(d *Definition) {
				d.Steps = append(d.Steps, d.Steps[0])
			},
			"id",
		},
		{
			"missing probe command",
			func(d *Definition) { d.Steps[0].Validation.Command = "" },
			"validation.command",
		},
		{
			"missing matcher",
			func(d *Definition) { d.Steps[0].Validation.Matcher = "" },
			"validation.matcher",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(def)
			errs := def.Validate()
			require.NotEmpty(t, errs)

			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected error on field %s, got %v", tt.field, errs)
		})
	}
}

func TestDefinitionValidateOK(t *testing.T) {
	assert.Empty(t, validDefinition().Validate())
}

func TestParse(t *testing.T) {
	data := []byte(`
mission:
  id: "demo/basics/echo"
  title: "Echo Basics"
  difficulty: "beginner"
environment:
  image: "alpine:latest"
  setup:
    - "mkdir -p /workspace"
  working_dir: "/workspace"
steps:
  - id: "say-ready"
    title: "Say ready"
    description: "Create a readiness marker"
    hint: "echo is your friend"
    validation:
      command: "cat /workspace/status"
      expected: "ready"
      matcher: "exact"
  - id: "make-file"
    title: "Make a file"
    description: "Create /workspace/out.txt"
    validation:
      command: "test -e /workspace/out.txt && echo true || echo false"
      matcher: "exists"
completion:
  message: "Well done"
  xp: 200
  unlocks:
    - "demo/basics/files"
`)

	def, err := Parse(data)
	require.NoError(t, err)
	assert.Empty(t, def.Validate())

	assert.Equal(t, ID("demo/basics/echo"), def.Mission.ID)
	assert.Equal(t, DifficultyBeginner, def.Mission.Difficulty)
	assert.Equal(t, "alpine:latest", def.Environment.Image)
	require.Len(t, def.Steps, 2)
	assert.Equal(t, "exact", def.Steps[0].Validation.Matcher)
	assert.Equal(t, "exists", def.Steps[1].Validation.Matcher)
	assert.Equal(t, 200, def.Completion.Points)
	assert.Equal(t, []ID{"demo/basics/files"}, def.Completion.Unlocks)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("mission: [unterminated"))
	assert.Error(t, err)
}

func TestDifficultyOrdering(t *testing.T) {
	assert.True(t, DifficultyBeginner.Less(DifficultyIntermediate))
	assert.True(t, DifficultyIntermediate.Less(DifficultyAdvanced))
	assert.False(t, DifficultyAdvanced.Less(DifficultyBeginner))
	assert.False(t, DifficultyBeginner.Less(DifficultyBeginner))
}

func TestDifficultyValid(t *testing.T) {
	assert.True(t, DifficultyAdvanced.Valid())
	assert.False(t, Difficulty("master").Valid())
}
