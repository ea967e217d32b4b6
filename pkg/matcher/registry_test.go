package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.missions/pkg/mission"
)

func TestRegistryResolvesBuiltins(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"exact", "contains", "exists", "regex"} {
		m, err := r.Resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, m.Name())
	}
}

func TestRegistryUnknownName(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("fuzzy")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMatcher)
}

type upperMatcher struct{}

func (upperMatcher) Name() string { return "upper" }
func (upperMatcher) Matches(actual string, _ mission.ValidationSpec) bool {
	return actual == "UPPER"
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(upperMatcher{}))
	m, err := r.Resolve("upper")
	require.NoError(t, err)
	assert.True(t, m.Matches("UPPER", mission.ValidationSpec{}))

	err = r.Register(upperMatcher{})
	assert.Error(t, err, "duplicate registration must fail")
}

func TestRegistryValidateSpec(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name    string
		spec    mission.ValidationSpec
		wantErr bool
	}{
		{"known matcher", mission.ValidationSpec{Matcher: "exact"}, false},
		{"unknown matcher", mission.ValidationSpec{Matcher: "fuzzy"}, true},
		{"regex valid", mission.ValidationSpec{Matcher: "regex", Expected: `\d+`}, false},
		{"regex broken pattern", mission.ValidationSpec{Matcher: "regex", Expected: `([`}, true},
		{"regex bad mode", mission.ValidationSpec{Matcher: "regex", Expected: `x`, Mode: "diagonal"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"contains", "exact", "exists", "regex"}, r.Names())
}
