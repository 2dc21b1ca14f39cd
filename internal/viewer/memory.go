package viewer

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Entry is one history entry of a MemoryRouter.
type Entry struct {
	Route  string
	Params map[string]string
	Query  map[string]string
}

// MemoryRouter is an in-memory Router and Navigation with a history stack.
// Back and Forward fire popstate listeners like a browser would.
type MemoryRouter struct {
	mu        sync.Mutex
	history   []Entry
	index     int
	listeners map[int]func()
	nextID    int
}

// NewMemoryRouter starts with a single history entry.
func NewMemoryRouter(route string, params, query map[string]string) *MemoryRouter {
	return &MemoryRouter{
		history:   []Entry{{Route: route, Params: copyMap(params), Query: copyMap(query)}},
		listeners: make(map[int]func()),
	}
}

// Query implements Router. The returned map is a copy.
func (r *MemoryRouter) Query() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyMap(r.history[r.index].Query)
}

// Params implements Router. The returned map is a copy.
func (r *MemoryRouter) Params() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyMap(r.history[r.index].Params)
}

// Current returns a copy of the current entry.
func (r *MemoryRouter) Current() Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.history[r.index]
	return Entry{Route: e.Route, Params: copyMap(e.Params), Query: copyMap(e.Query)}
}

// Len returns the number of history entries.
func (r *MemoryRouter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// GoToRoute implements Router. replace overwrites the current entry; otherwise
// a new entry is pushed and forward history is dropped.
func (r *MemoryRouter) GoToRoute(route *string, params, query map[string]string, replace bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := r.history[r.index].Route
	if route != nil {
		name = *route
	}
	e := Entry{Route: name, Params: copyMap(params), Query: copyMap(query)}
	if replace {
		r.history[r.index] = e
		return
	}
	r.history = append(r.history[:r.index+1], e)
	r.index++
}

// OnPopState implements Navigation.
func (r *MemoryRouter) OnPopState(fn func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// Listeners returns the number of registered popstate listeners.
func (r *MemoryRouter) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Back moves one entry back and fires popstate. Returns false at the start.
func (r *MemoryRouter) Back() bool {
	return r.move(-1)
}

// Forward moves one entry forward and fires popstate. Returns false at the end.
func (r *MemoryRouter) Forward() bool {
	return r.move(1)
}

func (r *MemoryRouter) move(delta int) bool {
	r.mu.Lock()
	next := r.index + delta
	if next < 0 || next >= len(r.history) {
		r.mu.Unlock()
		return false
	}
	r.index = next
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, r.listeners[id])
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return true
}

// LogViewer is a Viewer that writes open/close events to a writer. The
// callbacks of the last open are kept so callers can simulate user input.
type LogViewer struct {
	mu      sync.Mutex
	w       io.Writer
	open    bool
	handler string
	opts    Options
}

// NewLogViewer writes to w.
func NewLogViewer(w io.Writer) *LogViewer {
	return &LogViewer{w: w}
}

// OpenWith implements Viewer.
func (v *LogViewer) OpenWith(handler string, opts Options) error {
	v.mu.Lock()
	v.open = true
	v.handler = handler
	v.opts = opts
	v.mu.Unlock()
	fmt.Fprintf(v.w, "viewer: open %s with %s\n", opts.Path, handler)
	return nil
}

// Close implements Viewer. Closing a closed viewer does nothing.
func (v *LogViewer) Close() {
	v.mu.Lock()
	wasOpen := v.open
	v.open = false
	v.mu.Unlock()
	if wasOpen {
		fmt.Fprintln(v.w, "viewer: closed")
	}
}

// IsOpen reports whether the viewer is showing a file.
func (v *LogViewer) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

// Options returns the options of the last open.
func (v *LogViewer) Options() Options {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opts
}

// LogBus is an EventBus that writes events to a writer.
type LogBus struct {
	W io.Writer
}

// Emit implements EventBus.
func (b LogBus) Emit(event string, payload any) {
	fmt.Fprintf(b.W, "event: %s %v\n", event, payload)
}

// FormatQuery renders a query deterministically for display.
func FormatQuery(q map[string]string) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+q[k])
	}
	return strings.Join(parts, "&")
}
