package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrSourceUnavailable marks a capability that is absent, an unset state
	// slot, or an integration disabled server-side.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedData marks data that could not be parsed or had an unexpected shape.
	ErrMalformedData = errors.New("malformed data")
)

// SourceKind is where an integration's MIME types come from.
type SourceKind string

const (
	SourceCapability SourceKind = "capability"
	SourceState      SourceKind = "state"
	SourceCatalog    SourceKind = "catalog"
	SourceNone       SourceKind = "none"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceCapability, SourceState, SourceCatalog, SourceNone:
		return true
	}
	return false
}

// Binding ties an integration to its source and the source's parameters.
type Binding struct {
	Integration IntegrationID
	Kind        SourceKind

	// CapabilityPaths are the nested field paths read for SourceCapability.
	// The results of all paths are unioned.
	CapabilityPaths [][]string

	// StateApp and StateKey address the slot read for SourceState.
	StateApp string
	StateKey string

	// StatePath is an optional dotted path to the records inside the state
	// document (e.g. "formats").
	StatePath string

	// DefaultOnly keeps only records flagged def=true (SourceState).
	DefaultOnly bool
}

// Tree is the host capabilities object: nested string-keyed maps.
type Tree map[string]any

// Lookup walks path through nested maps.
func (t Tree) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(t)
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// StateSlots reads server-provided initial state.
type StateSlots interface {
	// Load returns the slot value and whether the slot is set.
	Load(ctx context.Context, app, key string) (string, bool, error)
}

// SlotWriter publishes initial state.
type SlotWriter interface {
	Provide(ctx context.Context, app, key, value string) error
}

// MapSlots is an in-memory StateSlots keyed by "app/key". The zero value is
// not usable; use NewMapSlots.
type MapSlots struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapSlots creates an empty MapSlots.
func NewMapSlots() *MapSlots {
	return &MapSlots{values: make(map[string]string)}
}

// Load implements StateSlots.
func (m *MapSlots) Load(_ context.Context, app, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[slotName(app, key)]
	return v, ok, nil
}

// Provide implements SlotWriter.
func (m *MapSlots) Provide(_ context.Context, app, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[slotName(app, key)] = value
	return nil
}

func slotName(app, key string) string {
	return app + "/" + key
}

// stringList flattens a capability or state value into MIME strings.
// Strings, lists of strings and objects whose values are strings are accepted;
// anything else contributes nothing.
func stringList(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Tree:
		return m, true
	default:
		return nil, false
	}
}

func splitPath(dotted string) []string {
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSourceUnavailable, fmt.Sprintf(format, args...))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedData, fmt.Sprintf(format, args...))
}
