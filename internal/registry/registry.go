// Package registry wraps the host file-action registry.
//
// The host contract only offers listing and registration. Registry adds exact-id
// lookup and explicit disablement on top of any Host.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/officeswitcher/officeswitcher/internal/action"
)

// ErrDuplicateID is returned when an action id is already registered.
var ErrDuplicateID = errors.New("action id already registered")

// Host is the host's live action registry.
type Host interface {
	// Actions returns the registered actions in registration order.
	Actions() []*action.Action
	// Register adds an action. Implementations reject duplicate ids.
	Register(a *action.Action) error
}

// Registry provides lookup and disablement over a Host.
type Registry struct {
	host Host
}

// New wraps host.
func New(host Host) *Registry {
	return &Registry{host: host}
}

// Lookup returns the registered action whose id equals id exactly.
func (r *Registry) Lookup(id string) (*action.Action, bool) {
	for _, a := range r.host.Actions() {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Register submits a to the host. A second action with an existing id is rejected
// here even if the host itself would accept it.
func (r *Registry) Register(a *action.Action) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("register: action id is required")
	}
	if _, ok := r.Lookup(a.ID); ok {
		return fmt.Errorf("register %q: %w", a.ID, ErrDuplicateID)
	}
	if err := r.host.Register(a); err != nil {
		return fmt.Errorf("register %q: %w", a.ID, err)
	}
	return nil
}

// Disable suppresses the action with the given id. Returns false if no such
// action is registered.
func (r *Registry) Disable(id string) bool {
	a, ok := r.Lookup(id)
	if !ok {
		return false
	}
	a.Suppress()
	return true
}

// Memory is an in-memory Host. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	actions []*action.Action
}

// NewMemory creates a Memory host pre-populated with actions.
func NewMemory(actions ...*action.Action) *Memory {
	m := &Memory{}
	for _, a := range actions {
		_ = m.Register(a)
	}
	return m
}

// Actions implements Host. The returned slice is a copy.
func (m *Memory) Actions() []*action.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*action.Action, len(m.actions))
	copy(out, m.actions)
	return out
}

// Register implements Host.
func (m *Memory) Register(a *action.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.actions {
		if existing.ID == a.ID {
			return ErrDuplicateID
		}
	}
	m.actions = append(m.actions, a)
	return nil
}
