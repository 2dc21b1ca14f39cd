package engine

import (
	"context"

	"github.com/officeswitcher/officeswitcher/internal/action"
	"github.com/officeswitcher/officeswitcher/internal/capability"
	"github.com/officeswitcher/officeswitcher/internal/icon"
	"github.com/officeswitcher/officeswitcher/internal/registry"
)

// Locate returns the action registered under id, or nil when id is empty or absent.
func Locate(reg *registry.Registry, id string) *action.Action {
	if id == "" {
		return nil
	}
	a, ok := reg.Lookup(id)
	if !ok {
		return nil
	}
	return a
}

// ChildID returns the action id synthesized for integration under umbrella.
func ChildID(umbrella string, integration capability.IntegrationID) string {
	return umbrella + "-" + string(integration)
}

// synthesize registers one action per integration with a non-empty MIME set,
// in configured order, and returns the registered actions.
func (e *Engine) synthesize(ctx context.Context, r *Report, resolved map[capability.IntegrationID]capability.Result, icons icon.Fetcher) []*action.Action {
	var children []*action.Action
	for _, in := range e.integrations {
		res := resolved[in.ID()]
		line := IntegrationReport{
			Integration: string(in.ID()),
			Source:      string(in.Binding.Kind),
			Status:      StatusSkipped,
			Mimes:       res.Mimes.Sorted(),
		}
		if line.Mimes == nil {
			line.Mimes = []string{}
		}

		if res.Mimes.Empty() {
			if res.Err != nil {
				e.diagnose(r, sourceError(in.ID(), res.Err))
			}
			r.Integrations = append(r.Integrations, line)
			continue
		}

		native := Locate(e.registry, in.NativeAction)
		if in.NativeAction != "" && native == nil {
			e.diagnose(r, &PassError{
				Code:        ErrCodeActionLookupMiss,
				Integration: string(in.ID()),
				Message:     "native action " + in.NativeAction + " not registered, using viewer",
			})
		}

		svg, err := icon.OrFallback(ctx, icons, string(in.ID()))
		if err != nil {
			e.diagnose(r, &PassError{
				Code:        ErrCodeIconFetchFailed,
				Integration: string(in.ID()),
				Message:     "using fallback icon",
				Err:         err,
			})
		}

		a := e.buildChild(in, res.Mimes, native, svg)
		line.ActionID = a.ID
		line.Exec = string(a.Handler.Kind())
		if native != nil {
			line.NativeAction = native.ID
		}
		line.IconFallback = svg == icon.Fallback

		if err := e.registry.Register(a); err != nil {
			e.diagnose(r, &PassError{
				Code:        ErrCodeRegistrationFailed,
				Integration: string(in.ID()),
				Message:     "action not registered",
				Err:         err,
			})
			line.Status = StatusFailed
			r.Integrations = append(r.Integrations, line)
			continue
		}

		line.Status = StatusRegistered
		r.Integrations = append(r.Integrations, line)
		children = append(children, a)
	}
	return children
}

// buildChild creates the integration's action. The exec variant is fixed here:
// a native delegate when the integration registered its own action, the viewer otherwise.
func (e *Engine) buildChild(in Integration, mimes capability.MimeSet, native *action.Action, svg string) *action.Action {
	var h action.Handler
	if native != nil {
		h = action.NativeDelegate{Action: native}
	} else {
		h = action.ViewerFallback{Opener: e.opener, Handler: string(in.ID())}
	}
	return &action.Action{
		ID:          ChildID(e.umbrellaID, in.ID()),
		DisplayName: e.labels.OpenWithApp(string(in.ID())),
		IconSVG:     svg,
		Predicate:   action.SingleNodeMime(mimes.Has),
		Handler:     h,
		Parent:      e.umbrellaID,
	}
}

// registerUmbrella registers the umbrella over children. No children, no umbrella.
func (e *Engine) registerUmbrella(r *Report, children []*action.Action) {
	if len(children) == 0 {
		e.logger.Debug("no usable integration, umbrella not registered", "pass", r.PassID)
		return
	}

	umbrella := &action.Action{
		ID:          e.umbrellaID,
		DisplayName: e.labels.OpenWith(),
		IconSVG:     icon.Fallback,
		Predicate:   action.AnyEnabled(func() []*action.Action { return children }),
		Handler:     action.Submenu{},
		Order:       e.umbrellaOrder,
	}
	if err := e.registry.Register(umbrella); err != nil {
		e.diagnose(r, &PassError{
			Code:    ErrCodeRegistrationFailed,
			Message: "umbrella not registered",
			Err:     err,
		})
		return
	}

	ids := make([]string, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}
	r.Umbrella = &UmbrellaReport{
		ActionID: umbrella.ID,
		Order:    umbrella.Order,
		Children: ids,
	}
}
