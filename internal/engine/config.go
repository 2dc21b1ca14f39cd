package engine

import (
	"github.com/officeswitcher/officeswitcher/internal/config"
	"github.com/officeswitcher/officeswitcher/internal/labels"
)

// FromConfig converts cfg into the integration table and the engine options it
// implies (umbrella, labels, legacy ids). An unset legacy list keeps
// DefaultLegacyActions; an explicitly empty one suppresses nothing.
func FromConfig(cfg *config.Config) ([]Integration, []Option) {
	bindings := cfg.Bindings()
	native := cfg.NativeActions()

	integrations := make([]Integration, len(bindings))
	for i, b := range bindings {
		integrations[i] = Integration{Binding: b, NativeAction: native[string(b.Integration)]}
	}

	opts := []Option{
		WithUmbrella(cfg.UmbrellaID(), cfg.UmbrellaOrder()),
		WithLabels(labels.New(cfg.Locale, cfg.AppNames())),
	}
	if cfg.LegacyActions != nil {
		opts = append(opts, WithLegacyActions(cfg.LegacyActions...))
	}
	return integrations, opts
}
