package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Aggregator resolves integration bindings to MIME sets.
type Aggregator struct {
	tree    Tree
	slots   StateSlots
	catalog *Catalog
	logger  *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCapabilities sets the host capabilities object.
func WithCapabilities(t Tree) Option {
	return func(a *Aggregator) { a.tree = t }
}

// WithStateSlots sets the initial-state backend.
func WithStateSlots(s StateSlots) Option {
	return func(a *Aggregator) { a.slots = s }
}

// WithCatalog sets the bundled catalog.
func WithCatalog(c *Catalog) Option {
	return func(a *Aggregator) { a.catalog = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// NewAggregator creates an Aggregator. Unset sources behave as absent.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Resolve returns the MIME set for b. The set is always usable; a non-nil
// error is a diagnostic explaining why it is empty (ErrSourceUnavailable or
// ErrMalformedData).
func (a *Aggregator) Resolve(ctx context.Context, b Binding) (MimeSet, error) {
	switch b.Kind {
	case SourceCapability:
		return a.fromCapabilities(b)
	case SourceState:
		return a.fromState(ctx, b)
	case SourceCatalog:
		set := a.catalog.DefaultMimes(b.Integration)
		if set.Empty() {
			return set, unavailable("no default formats for %s in catalog", b.Integration)
		}
		return set, nil
	case SourceNone, "":
		return MimeSet{}, unavailable("%s has no capability source", b.Integration)
	default:
		return MimeSet{}, malformed("unknown source kind %q", b.Kind)
	}
}

// Result is one integration's resolution outcome.
type Result struct {
	Mimes MimeSet
	Err   error
}

// ResolveAll resolves bindings concurrently. Failures are isolated per
// integration and reported in the result map, never returned.
func (a *Aggregator) ResolveAll(ctx context.Context, bindings []Binding) map[IntegrationID]Result {
	var (
		mu  sync.Mutex
		out = make(map[IntegrationID]Result, len(bindings))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range bindings {
		b := b
		g.Go(func() error {
			set, err := a.Resolve(gctx, b)
			if err != nil {
				a.logger.Debug("capability source yielded no mimes",
					"integration", b.Integration,
					"source", b.Kind,
					"error", err,
				)
			}
			mu.Lock()
			out[b.Integration] = Result{Mimes: set, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Aggregator) fromCapabilities(b Binding) (MimeSet, error) {
	paths := b.CapabilityPaths
	if len(paths) == 0 {
		paths = [][]string{{string(b.Integration), "mimetypes"}}
	}
	set := MimeSet{}
	for _, p := range paths {
		v, ok := a.tree.Lookup(p...)
		if !ok {
			continue
		}
		set = set.Union(NewMimeSet(stringList(v)...))
	}
	if set.Empty() {
		return set, unavailable("capability %v not reported", paths)
	}
	return set, nil
}

func (a *Aggregator) fromState(ctx context.Context, b Binding) (MimeSet, error) {
	if a.slots == nil {
		return MimeSet{}, unavailable("no state backend for %s/%s", b.StateApp, b.StateKey)
	}
	raw, ok, err := a.slots.Load(ctx, b.StateApp, b.StateKey)
	if err != nil {
		return MimeSet{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if !ok {
		return MimeSet{}, unavailable("state slot %s/%s is not set", b.StateApp, b.StateKey)
	}
	mimes, err := ParseFormats([]byte(raw), b.StatePath, b.DefaultOnly)
	if err != nil {
		return MimeSet{}, err
	}
	set := NewMimeSet(mimes...)
	if set.Empty() {
		return set, unavailable("state slot %s/%s lists no mimes", b.StateApp, b.StateKey)
	}
	return set, nil
}

// ParseFormats extracts MIME types from a server-provided format document.
//
// The records live at path (dotted, empty for the root) and may be an object
// keyed by anything or an array. Each record's "mime" field is a string, a list
// of strings or an object of strings. Records without a mime field are skipped.
// With defaultOnly, records whose "def" is not true are skipped.
func ParseFormats(data []byte, path string, defaultOnly bool) ([]string, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, malformed("invalid JSON: %v", err)
	}

	cur := doc
	for _, key := range splitPath(path) {
		m, ok := asMap(cur)
		if !ok {
			return nil, malformed("path %q: %q is not an object", path, key)
		}
		if cur, ok = m[key]; !ok {
			return nil, unavailable("path %q not present", path)
		}
	}

	var records []any
	switch c := cur.(type) {
	case map[string]any:
		for _, r := range c {
			records = append(records, r)
		}
	case []any:
		records = c
	default:
		return nil, malformed("records at %q are %T, want object or array", path, cur)
	}

	var mimes []string
	for _, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		field, ok := rec["mime"]
		if !ok {
			continue
		}
		if defaultOnly {
			if def, _ := rec["def"].(bool); !def {
				continue
			}
		}
		mimes = append(mimes, stringList(field)...)
	}
	return mimes, nil
}

// PublishFile reads a format document from path and provides it in the slot
// app/key. The document must be valid JSON.
func PublishFile(ctx context.Context, w SlotWriter, app, key, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("publish %s/%s: %w", app, key, err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("publish %s/%s: %w", app, key, malformed("%s is not valid JSON", path))
	}
	return w.Provide(ctx, app, key, string(data))
}
