// Package viewer opens nodes in the host's generic in-app viewer and keeps the
// browser history and URL query consistent while the viewer is open.
//
// Opening pushes a history entry carrying openfile=true so direct links and
// back/forward work. A popstate listener closes the viewer once the query no
// longer carries openfile=true. Closing from inside the viewer strips openfile
// and editing from the query, restoring the pre-open URL shape.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/officeswitcher/officeswitcher/internal/action"
)

// Query keys recognized by the bridge.
const (
	QueryDir      = "dir"
	QueryOpenFile = "openfile"
	QueryEditing  = "editing"
)

// EventEditorToggle is emitted on every popstate with the editing flag.
const EventEditorToggle = "editor:toggle"

// Router is the host navigation primitive.
type Router interface {
	Query() map[string]string
	Params() map[string]string
	// GoToRoute navigates. A nil route keeps the current route name.
	GoToRoute(route *string, params, query map[string]string, replace bool)
}

// Navigation delivers back/forward signals.
type Navigation interface {
	// OnPopState registers fn and returns a function that removes it.
	OnPopState(fn func()) (remove func())
}

// Options are passed to the viewer when opening a file.
type Options struct {
	Path    string
	OnPrev  func(node action.Node)
	OnNext  func(node action.Node)
	OnClose func()
}

// Viewer is the host's generic in-app viewer.
type Viewer interface {
	OpenWith(handler string, opts Options) error
	Close()
}

// EventBus broadcasts host events.
type EventBus interface {
	Emit(event string, payload any)
}

// Bridge opens nodes in the viewer. Only the most recent session keeps its
// popstate listener; opening again disposes the previous one.
type Bridge struct {
	router Router
	nav    Navigation
	viewer Viewer
	bus    EventBus
	logger *slog.Logger

	mu     sync.Mutex
	active *Session
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = l }
}

// WithEventBus sets the bus that receives editor toggle events.
func WithEventBus(bus EventBus) BridgeOption {
	return func(b *Bridge) { b.bus = bus }
}

// NewBridge creates a Bridge.
func NewBridge(router Router, nav Navigation, v Viewer, opts ...BridgeOption) *Bridge {
	b := &Bridge{router: router, nav: nav, viewer: v, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open shows node in the viewer using handler and returns the session that
// owns the popstate listener. It returns as soon as the viewer was asked to
// open. If the viewer fails, the session is still returned and stays open.
func (b *Bridge) Open(_ context.Context, node action.Node, view action.View, dir, handler string) (*Session, error) {
	s := &Session{bridge: b, handler: handler, open: true}

	b.mu.Lock()
	prev := b.active
	if prev != nil && prev.Open() {
		s.dir, s.hadDir = prev.dir, prev.hadDir
	} else {
		s.dir, s.hadDir = b.router.Query()[QueryDir]
	}
	b.active = s
	b.mu.Unlock()
	if prev != nil {
		prev.Dispose()
	}

	remove := b.nav.OnPopState(s.onPopState)
	s.mu.Lock()
	s.remove = remove
	s.mu.Unlock()

	b.pushHistory(node, view, dir)

	err := b.viewer.OpenWith(handler, Options{
		Path:    node.Path,
		OnPrev:  func(n action.Node) { b.pushHistory(n, view, dir) },
		OnNext:  func(n action.Node) { b.pushHistory(n, view, dir) },
		OnClose: s.onViewerClosed,
	})
	if err != nil {
		b.logger.Debug("viewer failed to open", "handler", handler, "path", node.Path, "error", err)
		return s, fmt.Errorf("viewer open %s: %w", node.Path, err)
	}
	return s, nil
}

// OpenNode implements action.Opener.
func (b *Bridge) OpenNode(ctx context.Context, node action.Node, view action.View, dir, handler string) error {
	_, err := b.Open(ctx, node, view, dir, handler)
	return err
}

// Active returns the current session, or nil.
func (b *Bridge) Active() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// pushHistory records that node is open in view, keeping the other query keys.
func (b *Bridge) pushHistory(node action.Node, view action.View, dir string) {
	query := copyMap(b.router.Query())
	editing := "false"
	if query[QueryEditing] == "true" {
		editing = "true"
	}
	query[QueryDir] = dir
	query[QueryOpenFile] = "true"
	query[QueryEditing] = editing

	params := map[string]string{
		"view":   view.ID,
		"fileid": strconv.FormatInt(node.FileID, 10),
	}
	b.router.GoToRoute(nil, params, query, true)
}

// restoreQuery removes the viewer keys from the query, puts back the dir
// the route had before s opened, and navigates there.
func (b *Bridge) restoreQuery(s *Session) {
	query := copyMap(b.router.Query())
	delete(query, QueryOpenFile)
	delete(query, QueryEditing)
	if s.hadDir {
		query[QueryDir] = s.dir
	} else {
		delete(query, QueryDir)
	}
	b.router.GoToRoute(nil, copyMap(b.router.Params()), query, false)
}

func (b *Bridge) release(s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == s {
		b.active = nil
	}
}

// Session is one open viewer. Its popstate listener lives until Dispose.
type Session struct {
	bridge  *Bridge
	handler string
	remove  func()

	// dir as it was before the viewer opened.
	dir    string
	hadDir bool

	mu       sync.Mutex
	open     bool
	disposed bool
}

// Open reports whether the viewer for this session is still open.
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Disposed reports whether the popstate listener has been removed.
func (s *Session) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose removes the popstate listener. Calling it again is a no-op.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	remove := s.remove
	s.mu.Unlock()

	if remove != nil {
		remove()
	}
	s.bridge.release(s)
}

// Close closes the viewer if it is still open and disposes the session.
func (s *Session) Close() {
	s.mu.Lock()
	wasOpen := s.open
	s.open = false
	s.mu.Unlock()

	if wasOpen {
		s.bridge.viewer.Close()
	}
	s.Dispose()
}

func (s *Session) onPopState() {
	query := s.bridge.router.Query()
	if s.bridge.bus != nil {
		s.bridge.bus.Emit(EventEditorToggle, query[QueryEditing] == "true")
	}
	if query[QueryOpenFile] != "true" {
		s.Close()
	}
}

// onViewerClosed runs when the viewer closes itself.
func (s *Session) onViewerClosed() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()

	s.bridge.restoreQuery(s)
	s.Dispose()
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
