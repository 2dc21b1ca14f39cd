package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/officeswitcher/officeswitcher/internal/action"
	"github.com/officeswitcher/officeswitcher/internal/capability"
	"github.com/officeswitcher/officeswitcher/internal/config"
	"github.com/officeswitcher/officeswitcher/internal/engine"
	"github.com/officeswitcher/officeswitcher/internal/icon"
	"github.com/officeswitcher/officeswitcher/internal/registry"
	"github.com/officeswitcher/officeswitcher/internal/store"
)

// PassOptions holds the flags shared by commands that run a pass.
type PassOptions struct {
	*RootOptions
	Config       string
	Capabilities string
	Publish      []string // integration=file
	Existing     []string // native action ids the host already registered
	Database     string
	IconsURL     string
	Locale       string

	// PassIDs allows overriding the pass id generator (for testing).
	// If nil, the engine uses UUIDv7Generator.
	PassIDs engine.PassIDGenerator
}

func (o *PassOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Config, "config", "c", "", "configuration file (default: built-in)")
	cmd.Flags().StringVar(&o.Capabilities, "capabilities", "", "capabilities document (YAML or JSON), overrides capabilities_file")
	cmd.Flags().StringArrayVar(&o.Publish, "publish", nil, "publish a format file into an integration's state slot (integration=file)")
	cmd.Flags().StringSliceVar(&o.Existing, "existing", nil, "native action ids already registered by the host")
	cmd.Flags().StringVar(&o.Database, "db", "", "journal database, overrides journal")
	cmd.Flags().StringVar(&o.IconsURL, "icons-url", "", "server base URL for app icons, overrides icons.base_url")
	cmd.Flags().StringVar(&o.Locale, "locale", "", "display-name locale, overrides locale")
}

// stateBackend is a state slot store the CLI can both fill and read.
type stateBackend interface {
	capability.StateSlots
	capability.SlotWriter
}

// passEnv is the host one pass runs against.
type passEnv struct {
	cfg      *config.Config
	host     *registry.Memory
	registry *registry.Registry
	engine   *engine.Engine
	closers  []func() error
}

// Close releases the journal and the state backend.
func (e *passEnv) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	return errors.Join(errs...)
}

// newPassEnv loads configuration, fills the state backend, opens the journal
// and builds an engine over a fresh in-memory host. Errors are ExitErrors.
func newPassEnv(ctx context.Context, opts *PassOptions, opener action.Opener, logger *slog.Logger) (*passEnv, error) {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Locale != "" {
		cfg.Locale = opts.Locale
	}

	env := &passEnv{cfg: cfg}
	fail := func(msg string, err error) (*passEnv, error) {
		_ = env.Close()
		return nil, WrapExitError(ExitCommandError, msg, err)
	}

	tree, err := cfg.LoadCapabilities()
	if opts.Capabilities != "" {
		tree, err = config.LoadTree(opts.Capabilities)
	}
	if err != nil {
		return fail("failed to load capabilities", err)
	}
	catalog, err := cfg.LoadCatalog()
	if err != nil {
		return fail("failed to load catalog", err)
	}

	slots, err := openState(ctx, cfg, env)
	if err != nil {
		return fail("failed to open state backend", err)
	}
	if err := cfg.PublishSlots(ctx, slots); err != nil {
		return fail("failed to publish state", err)
	}
	if err := publishFlags(ctx, cfg, slots, opts.Publish); err != nil {
		return fail("failed to publish state", err)
	}

	existing := make([]*action.Action, 0, len(opts.Existing))
	for _, id := range opts.Existing {
		existing = append(existing, nativeAction(id, logger))
	}
	env.host = registry.NewMemory(existing...)
	env.registry = registry.New(env.host)

	agg := capability.NewAggregator(
		capability.WithCapabilities(tree),
		capability.WithStateSlots(slots),
		capability.WithCatalog(catalog),
		capability.WithLogger(logger),
	)
	integrations, engineOpts := engine.FromConfig(cfg)
	engineOpts = append(engineOpts, engine.WithLogger(logger), engine.WithOpener(opener))

	if base := firstNonEmpty(opts.IconsURL, cfg.Icons.BaseURL); base != "" {
		engineOpts = append(engineOpts, engine.WithIcons(iconFetcher(cfg.Icons.Mode, base)))
	}
	if opts.PassIDs != nil {
		engineOpts = append(engineOpts, engine.WithPassIDs(opts.PassIDs))
	}

	journal := opts.Database
	if journal == "" && cfg.Journal != "" {
		journal = cfg.Resolve(cfg.Journal)
	}
	if journal != "" {
		logger.Debug("opening journal", "path", journal)
		st, err := store.Open(journal)
		if err != nil {
			return fail("failed to open journal", err)
		}
		env.closers = append(env.closers, st.Close)
		engineOpts = append(engineOpts, engine.WithJournal(st))
	}

	env.engine = engine.New(env.registry, agg, integrations, engineOpts...)
	return env, nil
}

func iconFetcher(mode, base string) icon.Fetcher {
	if mode == config.IconsReference {
		return icon.NewReferenceFetcher(base)
	}
	return icon.NewHTTPFetcher(base)
}

// loadConfig reads path, or the built-in configuration when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.Default()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "built-in configuration is invalid", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openState returns the configured state backend. A redis backend is pinged
// so an unreachable server fails before the pass.
func openState(ctx context.Context, cfg *config.Config, env *passEnv) (stateBackend, error) {
	if cfg.State.Backend != "redis" {
		return capability.NewMapSlots(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.State.Redis.Addr,
		DB:   cfg.State.Redis.DB,
	})
	env.closers = append(env.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis %s: %w", cfg.State.Redis.Addr, err)
	}
	return capability.NewRedisSlots(client, cfg.State.Redis.Prefix), nil
}

// publishFlags publishes each integration=file pair into the integration's state slot.
func publishFlags(ctx context.Context, cfg *config.Config, w capability.SlotWriter, pairs []string) error {
	for _, pair := range pairs {
		id, file, ok := strings.Cut(pair, "=")
		if !ok || id == "" || file == "" {
			return fmt.Errorf("invalid --publish %q: want integration=file", pair)
		}
		ref, err := stateRef(cfg, id)
		if err != nil {
			return err
		}
		if err := capability.PublishFile(ctx, w, ref.App, ref.Key, file); err != nil {
			return err
		}
	}
	return nil
}

func stateRef(cfg *config.Config, id string) (*config.StateRef, error) {
	for _, in := range cfg.Integrations {
		if in.ID != id {
			continue
		}
		if in.State == nil {
			return nil, fmt.Errorf("integration %s has no state slot", id)
		}
		return in.State, nil
	}
	return nil, fmt.Errorf("unknown integration %s", id)
}

// nativeAction stands in for an action an integration registered itself.
func nativeAction(id string, logger *slog.Logger) *action.Action {
	return &action.Action{
		ID:          id,
		DisplayName: id,
		Handler: action.HandlerFunc(func(_ context.Context, node action.Node, _ action.View, _ string) (action.Outcome, error) {
			logger.Info("native action ran", "action", id, "path", node.Path)
			return action.OutcomeSucceeded, nil
		}),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
