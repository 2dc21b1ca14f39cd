package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/officeswitcher/officeswitcher/internal/action"
	"github.com/officeswitcher/officeswitcher/internal/capability"
	"github.com/officeswitcher/officeswitcher/internal/config"
	"github.com/officeswitcher/officeswitcher/internal/icon"
	"github.com/officeswitcher/officeswitcher/internal/labels"
	"github.com/officeswitcher/officeswitcher/internal/registry"
)

// maxIconFetches bounds concurrent icon requests during prefetch.
const maxIconFetches = 4

// DefaultLegacyActions are the native action ids the switcher supersedes.
var DefaultLegacyActions = []string{"onlyoffice-open", "onlyoffice-open-def", "thinkfreeEditorAction"}

// Integration is one configured office integration.
type Integration struct {
	Binding capability.Binding

	// NativeAction is the id of the action the integration registers itself,
	// empty if it never does.
	NativeAction string
}

// ID returns the integration id.
func (in Integration) ID() capability.IntegrationID {
	return in.Binding.Integration
}

// Journal records completed passes. Implemented by store.Store.
type Journal interface {
	WritePass(ctx context.Context, r *Report) error
}

// Engine runs one resolution and registration pass.
//
// Resolution and icon prefetch run concurrently per integration. Registration
// is serial in configured order, the umbrella follows its children, and legacy
// suppression runs last.
//
// Thread-safety: Run may be called once; later calls return ErrAlreadyRan.
type Engine struct {
	registry     *registry.Registry
	aggregator   *capability.Aggregator
	integrations []Integration

	legacy        []string
	umbrellaID    string
	umbrellaOrder int

	icons   icon.Fetcher
	labels  *labels.Labeler
	opener  action.Opener
	journal Journal
	passIDs PassIDGenerator
	seq     Sequencer
	logger  *slog.Logger

	ran atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIcons sets the icon fetcher. The engine wraps it in a per-pass cache.
// Without one every action gets icon.Fallback.
func WithIcons(f icon.Fetcher) Option {
	return func(e *Engine) { e.icons = f }
}

// WithLabels sets the labeler used for display names.
func WithLabels(l *labels.Labeler) Option {
	return func(e *Engine) { e.labels = l }
}

// WithOpener sets the viewer used by integrations without a native action.
func WithOpener(o action.Opener) Option {
	return func(e *Engine) { e.opener = o }
}

// WithJournal records each pass.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithPassIDs sets the pass id generator. Default: UUIDv7Generator.
func WithPassIDs(g PassIDGenerator) Option {
	return func(e *Engine) { e.passIDs = g }
}

// WithSequencer sets the diagnostic sequencer. Default: a fresh Clock.
func WithSequencer(s Sequencer) Option {
	return func(e *Engine) { e.seq = s }
}

// WithLegacyActions replaces the legacy action ids to suppress.
func WithLegacyActions(ids ...string) Option {
	return func(e *Engine) { e.legacy = append([]string(nil), ids...) }
}

// WithUmbrella sets the umbrella id and sort order.
func WithUmbrella(id string, order int) Option {
	return func(e *Engine) {
		if id != "" {
			e.umbrellaID = id
		}
		e.umbrellaOrder = order
	}
}

// New creates an Engine over reg and agg for the given integrations.
//
// The integrations slice is copied; its order is the registration order.
func New(reg *registry.Registry, agg *capability.Aggregator, integrations []Integration, opts ...Option) *Engine {
	e := &Engine{
		registry:      reg,
		aggregator:    agg,
		integrations:  append([]Integration(nil), integrations...),
		legacy:        append([]string(nil), DefaultLegacyActions...),
		umbrellaID:    config.DefaultUmbrellaID,
		umbrellaOrder: config.DefaultUmbrellaOrder,
		labels:        labels.New("", nil),
		passIDs:       UUIDv7Generator{},
		seq:           NewClock(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the pass and returns its Report.
//
// Per-integration failures are diagnostics in the Report, not errors. Run
// returns ErrAlreadyRan on re-entry, and a journal error after the pass has
// otherwise completed.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	if !e.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRan
	}

	report := &Report{
		PassID:      e.passIDs.Generate(),
		Suppressed:  []string{},
		Missing:     []string{},
		Diagnostics: []Diagnostic{},
	}
	e.logger.Info("resolution pass started",
		"pass", report.PassID,
		"integrations", len(e.integrations),
	)

	bindings := make([]capability.Binding, len(e.integrations))
	for i, in := range e.integrations {
		bindings[i] = in.Binding
	}
	resolved := e.aggregator.ResolveAll(ctx, bindings)

	var icons icon.Fetcher
	if e.icons != nil {
		cache := icon.NewCache(e.icons)
		e.prefetchIcons(ctx, cache, resolved)
		icons = cache
	}

	children := e.synthesize(ctx, report, resolved, icons)
	e.registerUmbrella(report, children)
	e.suppress(report)

	e.logger.Info("resolution pass finished",
		"pass", report.PassID,
		"registered", len(report.Registered()),
		"suppressed", len(report.Suppressed),
		"diagnostics", len(report.Diagnostics),
	)

	if e.journal != nil {
		if err := e.journal.WritePass(ctx, report); err != nil {
			e.logger.Warn("failed to journal pass", "pass", report.PassID, "error", err)
			return report, fmt.Errorf("journal pass %s: %w", report.PassID, err)
		}
	}
	return report, nil
}

// prefetchIcons warms cache for every integration that will get an action.
// Errors stay in the cache and surface during synthesis.
func (e *Engine) prefetchIcons(ctx context.Context, cache *icon.Cache, resolved map[capability.IntegrationID]capability.Result) {
	var g errgroup.Group
	g.SetLimit(maxIconFetches)
	for _, in := range e.integrations {
		if resolved[in.ID()].Mimes.Empty() {
			continue
		}
		id := string(in.ID())
		g.Go(func() error {
			_, _ = cache.Fetch(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
}

// diagnose records pe in the report and logs it at debug level.
func (e *Engine) diagnose(r *Report, pe *PassError) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Seq:         e.seq.Next(),
		Code:        pe.Code,
		Integration: pe.Integration,
		Message:     pe.Detail(),
	})
	e.logger.Debug("pass diagnostic",
		"pass", r.PassID,
		"code", pe.Code,
		"integration", pe.Integration,
		"error", pe,
	)
}
