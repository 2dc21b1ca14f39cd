package action

import (
	"context"
	"fmt"
)

// HandlerKind names a Handler variant.
type HandlerKind string

const (
	KindNative  HandlerKind = "native"
	KindViewer  HandlerKind = "viewer"
	KindSubmenu HandlerKind = "submenu"
)

// Handler executes an action. Implementations are the closed set of variants
// below; callers switch on Kind or on the concrete type.
type Handler interface {
	Kind() HandlerKind
	Exec(ctx context.Context, node Node, view View, dir string) (Outcome, error)
}

// Opener opens a node in the generic in-app viewer using the named handler.
type Opener interface {
	OpenNode(ctx context.Context, node Node, view View, dir, handler string) error
}

// NativeDelegate forwards execution to an action the integration registered itself.
type NativeDelegate struct {
	Action *Action
}

// Kind implements Handler.
func (NativeDelegate) Kind() HandlerKind { return KindNative }

// Exec runs the delegate's own handler, even if the delegate is suppressed.
func (d NativeDelegate) Exec(ctx context.Context, node Node, view View, dir string) (Outcome, error) {
	if d.Action == nil {
		return OutcomeFailed, fmt.Errorf("native delegate has no action")
	}
	return d.Action.Exec(ctx, node, view, dir)
}

// ViewerFallback opens the node through the viewer bridge.
type ViewerFallback struct {
	Opener  Opener
	Handler string
}

// Kind implements Handler.
func (ViewerFallback) Kind() HandlerKind { return KindViewer }

// Exec opens the viewer and returns immediately; closing is driven by the user.
func (v ViewerFallback) Exec(ctx context.Context, node Node, view View, dir string) (Outcome, error) {
	if v.Opener == nil {
		return OutcomeFailed, fmt.Errorf("viewer fallback for %q has no opener", v.Handler)
	}
	if err := v.Opener.OpenNode(ctx, node, view, dir, v.Handler); err != nil {
		return OutcomeFailed, fmt.Errorf("open %s with %s: %w", node.Path, v.Handler, err)
	}
	return OutcomeDeferred, nil
}

// Submenu is the umbrella handler; it only asks the host to show the children.
type Submenu struct{}

// Kind implements Handler.
func (Submenu) Kind() HandlerKind { return KindSubmenu }

// Exec implements Handler.
func (Submenu) Exec(context.Context, Node, View, string) (Outcome, error) {
	return OutcomeShowChildren, nil
}

// HandlerFunc adapts a plain function into a native-kind Handler. Integrations
// registering their own actions use it.
type HandlerFunc ExecFunc

// Kind implements Handler.
func (HandlerFunc) Kind() HandlerKind { return KindNative }

// Exec implements Handler.
func (f HandlerFunc) Exec(ctx context.Context, node Node, view View, dir string) (Outcome, error) {
	return f(ctx, node, view, dir)
}
