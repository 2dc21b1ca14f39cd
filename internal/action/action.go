package action

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Node is a file-system entry being acted upon.
type Node struct {
	Path   string `json:"path" yaml:"path"`
	FileID int64  `json:"fileid" yaml:"fileid"`
	Mime   string `json:"mime" yaml:"mime"`
}

// View identifies the file-manager view the selection was made in.
type View struct {
	ID string `json:"id" yaml:"id"`
}

// Outcome is the result an action reports back to the host after Exec.
type Outcome int

const (
	// OutcomeDeferred leaves the result to the host (the action finishes later).
	OutcomeDeferred Outcome = iota
	// OutcomeSucceeded reports that the action completed.
	OutcomeSucceeded
	// OutcomeFailed reports that the action could not run.
	OutcomeFailed
	// OutcomeShowChildren asks the host to show the action's sub-menu.
	OutcomeShowChildren
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeDeferred:
		return "deferred"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeShowChildren:
		return "show_children"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// EnabledFunc reports whether an action applies to the selected nodes.
type EnabledFunc func(nodes []Node, view View) bool

// ExecFunc runs an action against one node.
type ExecFunc func(ctx context.Context, node Node, view View, dir string) (Outcome, error)

// Action is a file action registered with the host.
//
// The zero value is not usable; ID must be set and at least one of Predicate
// or Handler should be provided.
type Action struct {
	ID          string
	DisplayName string
	IconSVG     string

	// Predicate decides enablement. A nil predicate is treated as always enabled.
	Predicate EnabledFunc

	// Handler executes the action.
	Handler Handler

	// Parent groups this action under an umbrella entry.
	Parent string

	// Order sorts actions in menus; lower comes first.
	Order int

	suppressed atomic.Bool
}

// Enabled reports whether the action applies to the selection.
// Suppressed actions are never enabled.
func (a *Action) Enabled(nodes []Node, view View) bool {
	if a.suppressed.Load() {
		return false
	}
	if a.Predicate == nil {
		return true
	}
	return a.Predicate(nodes, view)
}

// Exec runs the action's handler. An action without a handler defers to the host.
func (a *Action) Exec(ctx context.Context, node Node, view View, dir string) (Outcome, error) {
	if a.Handler == nil {
		return OutcomeDeferred, nil
	}
	return a.Handler.Exec(ctx, node, view, dir)
}

// Suppress disables the action permanently. Safe to call more than once.
func (a *Action) Suppress() {
	a.suppressed.Store(true)
}

// Suppressed reports whether Suppress has been called.
func (a *Action) Suppressed() bool {
	return a.suppressed.Load()
}

// SingleNodeMime returns a predicate that is true iff exactly one node is selected
// and its MIME type satisfies has.
func SingleNodeMime(has func(mime string) bool) EnabledFunc {
	return func(nodes []Node, _ View) bool {
		if len(nodes) != 1 {
			return false
		}
		return has(nodes[0].Mime)
	}
}

// AnyEnabled returns a predicate that is the disjunction of the children's
// Enabled methods. children is called on every evaluation so later changes to
// the child list or their suppression state are observed.
func AnyEnabled(children func() []*Action) EnabledFunc {
	return func(nodes []Node, view View) bool {
		for _, child := range children() {
			if child.Enabled(nodes, view) {
				return true
			}
		}
		return false
	}
}
