package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.missions/pkg/matcher"
	"digital.vasic.missions/pkg/mission"
)

const echoMissionYAML = `mission:
  id: demo/basics/echo
  title: First Words
  difficulty: beginner
environment:
  image: alpine:latest
  setup:
    - "mkdir -p /workspace"
  working_dir: /workspace
steps:
  - id: write-file
    title: Write a file
    description: Create ready.txt containing the word ready.
    hint: Try echo with a redirect.
    validation:
      command: "cat ready.txt"
      expected: "ready"
      matcher: exact
completion:
  message: Well done.
  xp: 50
  unlocks:
    - demo/basics/pipes
`

func writeMission(t *testing.T, root, id, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(id)+".yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	root := t.TempDir()
	return NewLoader(root, matcher.NewRegistry()), root
}

func TestResolveLoadsAndCaches(t *testing.T) {
	loader, root := newTestLoader(t)
	writeMission(t, root, "demo/basics/echo", echoMissionYAML)

	def, err := loader.Resolve("demo/basics/echo")
	require.NoError(t, err)
	assert.Equal(t, "First Words", def.Mission.Title)
	assert.Equal(t, mission.DifficultyBeginner, def.Mission.Difficulty)
	require.Len(t, def.Steps, 1)
	assert.Equal(t, "cat ready.txt", def.Steps[0].Validation.Command)
	assert.Equal(t, 50, def.Completion.Points)

	// A second resolve serves the cache: deleting the file must not
	// matter.
	require.NoError(t, os.Remove(filepath.Join(root, "demo/basics/echo.yml")))
	again, err := loader.Resolve("demo/basics/echo")
	require.NoError(t, err)
	assert.Same(t, def, again)
}

func TestResolveUnknownMission(t *testing.T) {
	loader, _ := newTestLoader(t)

	_, err := loader.Resolve("no/such/mission")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRejectsEscapingIDs(t *testing.T) {
	loader, _ := newTestLoader(t)

	for _, id := range []string{"", "../outside", "a/../../b"} {
		_, err := loader.Resolve(mission.ID(id))
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
	}
}

func TestResolveRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "mission: [",
			wantErr: "decode mission definition",
		},
		{
			name: "missing steps",
			yaml: "mission:\n  id: demo/bad\n  title: Bad\n  difficulty: beginner\n" +
				"environment:\n  image: alpine:latest\n",
			wantErr: "at least one step is required",
		},
		{
			name: "unknown matcher",
			yaml: "mission:\n  id: demo/bad\n  title: Bad\n  difficulty: beginner\n" +
				"environment:\n  image: alpine:latest\n" +
				"steps:\n  - id: s1\n    validation:\n      command: \"true\"\n      matcher: fuzzy\n",
			wantErr: "unknown matcher",
		},
		{
			name: "bad regex pattern",
			yaml: "mission:\n  id: demo/bad\n  title: Bad\n  difficulty: beginner\n" +
				"environment:\n  image: alpine:latest\n" +
				"steps:\n  - id: s1\n    validation:\n      command: \"true\"\n      expected: \"[\"\n      matcher: regex\n",
			wantErr: "matcher regex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, root := newTestLoader(t)
			writeMission(t, root, "demo/bad", tt.yaml)

			_, err := loader.Resolve("demo/bad")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveRejectsMismatchedID(t *testing.T) {
	loader, root := newTestLoader(t)
	writeMission(t, root, "demo/wrong-home", echoMissionYAML)

	_, err := loader.Resolve("demo/wrong-home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `declares ID "demo/basics/echo"`)
}

func TestClearCacheForcesReload(t *testing.T) {
	loader, root := newTestLoader(t)
	writeMission(t, root, "demo/basics/echo", echoMissionYAML)

	_, err := loader.Resolve("demo/basics/echo")
	require.NoError(t, err)

	loader.ClearCache("demo/basics/echo")
	require.NoError(t, os.Remove(filepath.Join(root, "demo/basics/echo.yml")))

	_, err = loader.Resolve("demo/basics/echo")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListWalksContentRoot(t *testing.T) {
	loader, root := newTestLoader(t)
	writeMission(t, root, "demo/basics/echo", echoMissionYAML)
	writeMission(t, root, "demo/basics/pipes", echoMissionYAML)
	writeMission(t, root, "linux/files", echoMissionYAML)
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	ids, err := loader.List()
	require.NoError(t, err)
	assert.Equal(t, []mission.ID{
		"demo/basics/echo",
		"demo/basics/pipes",
		"linux/files",
	}, ids)
}
