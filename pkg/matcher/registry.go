package matcher

import (
	"fmt"
	"sort"
	"sync"

	"digital.vasic.missions/pkg/mission"
)

// ErrUnknownMatcher is wrapped by Resolve when a strategy name has
// no registration.
var ErrUnknownMatcher = fmt.Errorf("unknown matcher")

// SpecValidator is implemented by matchers whose specs carry
// parameters that can be checked ahead of time (e.g., a pattern
// that must compile). The registry calls it during ValidateSpec.
type SpecValidator interface {
	ValidateSpec(spec mission.ValidationSpec) error
}

// Registry maps strategy names to matchers. The mapping is built at
// startup; Resolve is called at mission-load time so an unknown
// strategy name never reaches an active session. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	matchers map[string]Matcher
}

// NewRegistry creates a Registry with the built-in strategies
// (exact, contains, exists, regex) pre-registered.
func NewRegistry() *Registry {
	r := &Registry{matchers: make(map[string]Matcher)}
	for _, m := range []Matcher{
		exactMatcher{},
		containsMatcher{},
		existsMatcher{},
		regexMatcher{},
	} {
		r.matchers[m.Name()] = m
	}
	return r
}

// Register adds a custom matcher. Returns an error if the name is
// already taken.
func (r *Registry) Register(m Matcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.matchers[m.Name()]; exists {
		return fmt.Errorf("matcher already registered: %s", m.Name())
	}
	r.matchers[m.Name()] = m
	return nil
}

// Resolve returns the matcher registered under name, or an error
// wrapping ErrUnknownMatcher.
func (r *Registry) Resolve(name string) (Matcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.matchers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMatcher, name)
	}
	return m, nil
}

// ValidateSpec resolves spec's matcher and, when the matcher checks
// its own parameters, validates them too. Loaders call this for
// every step so schema problems surface at load time.
func (r *Registry) ValidateSpec(spec mission.ValidationSpec) error {
	m, err := r.Resolve(spec.Matcher)
	if err != nil {
		return err
	}
	if v, ok := m.(SpecValidator); ok {
		if err := v.ValidateSpec(spec); err != nil {
			return fmt.Errorf("matcher %s: %w", spec.Matcher, err)
		}
	}
	return nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.matchers))
	for name := range r.matchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
