package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/officeswitcher/officeswitcher/internal/action"
	"github.com/officeswitcher/officeswitcher/internal/capability"
	"github.com/officeswitcher/officeswitcher/internal/config"
	"github.com/officeswitcher/officeswitcher/internal/engine"
	"github.com/officeswitcher/officeswitcher/internal/icon"
	"github.com/officeswitcher/officeswitcher/internal/registry"
	"github.com/officeswitcher/officeswitcher/internal/store"
	"github.com/officeswitcher/officeswitcher/internal/testutil"
	"github.com/officeswitcher/officeswitcher/internal/viewer"
)

// defaultView is the view id steps run in unless they name one.
const defaultView = "files"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Report is the pass report returned by the engine.
	Report *engine.Report `json:"report"`

	// Checks records what each step observed, in step order.
	Checks []Check `json:"checks"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Journal is the pass as read back from the journal.
	Journal *engine.Report `json:"-"`
}

// Check is what one step observed.
type Check struct {
	Step    int      `json:"step"`
	Kind    string   `json:"kind"`
	Enabled []string `json:"enabled,omitempty"`
	Action  string   `json:"action,omitempty"`
	Outcome string   `json:"outcome,omitempty"`
	Error   string   `json:"error,omitempty"`
	Query   string   `json:"query,omitempty"`
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Harness holds the collaborators of one scenario run.
type Harness struct {
	registry *registry.Registry
	host     *registry.Memory
	router   *viewer.MemoryRouter
	viewer   *viewer.LogViewer
	store    *store.Store
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory registry and a fresh in-memory
// SQLite journal. Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Load configuration and build the host (capabilities, state, actions)
// 2. Run one engine pass, journaled
// 3. Replay steps against the registered actions
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg, err := loadConfig(scenario)
	if err != nil {
		return nil, err
	}
	catalog, err := cfg.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	slots := capability.NewMapSlots()
	for _, s := range scenario.State {
		if err := slots.Provide(ctx, s.App, s.Key, s.Value); err != nil {
			return nil, fmt.Errorf("failed to provide state %s/%s: %w", s.App, s.Key, err)
		}
	}

	existing := make([]*action.Action, 0, len(scenario.ExistingActions))
	for _, id := range scenario.ExistingActions {
		existing = append(existing, existingAction(id))
	}
	host := registry.NewMemory(existing...)

	router := viewer.NewMemoryRouter(defaultView, map[string]string{"view": defaultView}, scenario.Query)
	lv := viewer.NewLogViewer(io.Discard)

	h := &Harness{
		registry: registry.New(host),
		host:     host,
		router:   router,
		viewer:   lv,
		store:    st,
		logger:   logger,
	}

	agg := capability.NewAggregator(
		capability.WithCapabilities(capability.Tree(scenario.Capabilities)),
		capability.WithStateSlots(slots),
		capability.WithCatalog(catalog),
		capability.WithLogger(logger),
	)
	integrations, opts := engine.FromConfig(cfg)
	opts = append(opts,
		engine.WithLogger(logger),
		engine.WithOpener(viewer.NewBridge(router, router, lv, viewer.WithLogger(logger))),
		engine.WithJournal(st),
		engine.WithPassIDs(testutil.NewFixedPassIDs(scenario.PassID)),
		engine.WithSequencer(testutil.NewDeterministicClock()),
	)
	if scenario.Icons != nil {
		opts = append(opts, engine.WithIcons(icon.Static(scenario.Icons)))
	}

	report, err := engine.New(h.registry, agg, integrations, opts...).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("pass failed: %w", err)
	}

	result := &Result{Pass: true, Report: report, Checks: []Check{}}
	for i, step := range scenario.Steps {
		result.Checks = append(result.Checks, h.executeStep(ctx, i+1, step, result))
	}

	if result.Journal, err = st.ReadPass(ctx, report.PassID); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	actx := &AssertionContext{Registry: h.registry}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func loadConfig(s *Scenario) (*config.Config, error) {
	if s.Config == "" {
		return config.Default()
	}
	cfg, err := config.Load(s.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// existingAction is a host-registered action that always succeeds.
func existingAction(id string) *action.Action {
	return &action.Action{
		ID:          id,
		DisplayName: id,
		Handler: action.HandlerFunc(func(context.Context, action.Node, action.View, string) (action.Outcome, error) {
			return action.OutcomeSucceeded, nil
		}),
	}
}

func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) Check {
	view := action.View{ID: step.View}
	if view.ID == "" {
		view.ID = defaultView
	}

	switch {
	case step.Select != nil:
		check := Check{Step: n, Kind: "select"}
		for _, a := range h.host.Actions() {
			if a.Enabled(step.Select, view) {
				check.Enabled = append(check.Enabled, a.ID)
			}
		}
		if step.ExpectEnabled != nil && !slices.Equal(step.ExpectEnabled, check.Enabled) {
			result.AddError(fmt.Sprintf("step %d: enabled %v, want %v", n, check.Enabled, step.ExpectEnabled))
		}
		return check

	case step.Exec != "":
		check := Check{Step: n, Kind: "exec", Action: step.Exec}
		a, ok := h.registry.Lookup(step.Exec)
		if !ok {
			check.Error = "action not registered"
			result.AddError(fmt.Sprintf("step %d: action %s not registered", n, step.Exec))
			return check
		}
		out, err := a.Exec(ctx, *step.Node, view, step.Dir)
		check.Outcome = out.String()
		if err != nil {
			check.Error = err.Error()
		}
		check.Query = viewer.FormatQuery(h.router.Query())
		if step.ExpectOutcome != "" && step.ExpectOutcome != check.Outcome {
			result.AddError(fmt.Sprintf("step %d: outcome %s, want %s", n, check.Outcome, step.ExpectOutcome))
		}
		return check

	default:
		check := Check{Step: n, Kind: "close"}
		opts := h.viewer.Options()
		if !h.viewer.IsOpen() || opts.OnClose == nil {
			check.Error = "no open viewer"
			result.AddError(fmt.Sprintf("step %d: no open viewer to close", n))
			return check
		}
		h.viewer.Close()
		opts.OnClose()
		check.Query = viewer.FormatQuery(h.router.Query())
		return check
	}
}
