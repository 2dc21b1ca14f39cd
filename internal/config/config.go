// Package config loads the office switcher configuration.
//
// Configuration is YAML, decoded strictly (unknown fields are rejected), checked
// against an embedded CUE schema, then validated for cross-field rules.
// The configuration compiled into the binary describes the four known
// integrations and the legacy actions they supersede.
package config

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/officeswitcher/officeswitcher/internal/capability"
)

//go:embed default.yaml
var defaultYAML []byte

// Default umbrella settings.
const (
	DefaultUmbrellaID    = "office-switcher"
	DefaultUmbrellaOrder = -99999
)

// Config is the full switcher configuration.
type Config struct {
	Locale           string        `yaml:"locale,omitempty"`
	Icons            Icons         `yaml:"icons,omitempty"`
	State            State         `yaml:"state,omitempty"`
	CapabilitiesFile string        `yaml:"capabilities_file,omitempty"`
	CatalogFile      string        `yaml:"catalog_file,omitempty"`
	Journal          string        `yaml:"journal,omitempty"`
	Umbrella         Umbrella      `yaml:"umbrella,omitempty"`
	Integrations     []Integration `yaml:"integrations"`
	LegacyActions    []string      `yaml:"legacy_actions,omitempty"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// Icons configures icon retrieval. An empty BaseURL disables fetching.
type Icons struct {
	BaseURL string `yaml:"base_url,omitempty"`
	Mode    string `yaml:"mode,omitempty"` // "inline" (default) | "reference"
}

// Icon modes.
const (
	IconsInline    = "inline"
	IconsReference = "reference"
)

// State configures the initial-state backend.
type State struct {
	Backend string `yaml:"backend,omitempty"` // "memory" (default) | "redis"
	Redis   Redis  `yaml:"redis,omitempty"`
	Slots   []Slot `yaml:"slots,omitempty"`
}

// Redis addresses the redis state backend.
type Redis struct {
	Addr   string `yaml:"addr,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	DB     int    `yaml:"db,omitempty"`
}

// Slot is a state slot published before the pass, from an inline value or a file.
type Slot struct {
	App   string `yaml:"app"`
	Key   string `yaml:"key"`
	Value string `yaml:"value,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Umbrella configures the umbrella action.
type Umbrella struct {
	ID    string `yaml:"id,omitempty"`
	Order *int   `yaml:"order,omitempty"`
}

// Integration binds one office integration to its MIME source.
type Integration struct {
	ID              string     `yaml:"id"`
	Name            string     `yaml:"name,omitempty"`
	Source          string     `yaml:"source"`
	CapabilityPaths [][]string `yaml:"capability_paths,omitempty"`
	State           *StateRef  `yaml:"state,omitempty"`
	NativeAction    string     `yaml:"native_action,omitempty"`
}

// StateRef addresses a server-provided JSON state slot.
type StateRef struct {
	App         string `yaml:"app"`
	Key         string `yaml:"key"`
	Path        string `yaml:"path,omitempty"`
	DefaultOnly bool   `yaml:"default_only,omitempty"`
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	return Parse(defaultYAML, "")
}

// Load reads, schema-checks and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes configuration YAML. dir is used to resolve relative file paths.
func Parse(data []byte, dir string) (*Config, error) {
	if err := CheckSchema(data); err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.dir = dir

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, &Errors{List: errs}
	}
	return &cfg, nil
}

// UmbrellaID returns the configured umbrella id or the default.
func (c *Config) UmbrellaID() string {
	if c.Umbrella.ID != "" {
		return c.Umbrella.ID
	}
	return DefaultUmbrellaID
}

// UmbrellaOrder returns the configured umbrella sort order or the default.
func (c *Config) UmbrellaOrder() int {
	if c.Umbrella.Order != nil {
		return *c.Umbrella.Order
	}
	return DefaultUmbrellaOrder
}

// Resolve returns path resolved against the configuration file's directory.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Bindings converts the integration table to capability bindings, in order.
func (c *Config) Bindings() []capability.Binding {
	out := make([]capability.Binding, 0, len(c.Integrations))
	for _, in := range c.Integrations {
		b := capability.Binding{
			Integration:     capability.IntegrationID(in.ID),
			Kind:            capability.SourceKind(in.Source),
			CapabilityPaths: in.CapabilityPaths,
		}
		if in.State != nil {
			b.StateApp = in.State.App
			b.StateKey = in.State.Key
			b.StatePath = in.State.Path
			b.DefaultOnly = in.State.DefaultOnly
		}
		out = append(out, b)
	}
	return out
}

// NativeActions maps integration ids to the id of the action they register themselves.
func (c *Config) NativeActions() map[string]string {
	out := make(map[string]string)
	for _, in := range c.Integrations {
		if in.NativeAction != "" {
			out[in.ID] = in.NativeAction
		}
	}
	return out
}

// AppNames maps integration ids to configured display names.
func (c *Config) AppNames() map[string]string {
	out := make(map[string]string)
	for _, in := range c.Integrations {
		if in.Name != "" {
			out[in.ID] = in.Name
		}
	}
	return out
}

// LoadCapabilities reads the capabilities tree (YAML or JSON). An unset file
// yields an empty tree.
func (c *Config) LoadCapabilities() (capability.Tree, error) {
	if c.CapabilitiesFile == "" {
		return capability.Tree{}, nil
	}
	return LoadTree(c.Resolve(c.CapabilitiesFile))
}

// LoadCatalog returns the configured catalog or the bundled one.
func (c *Config) LoadCatalog() (*capability.Catalog, error) {
	if c.CatalogFile == "" {
		return capability.DefaultCatalog()
	}
	return capability.LoadCatalog(c.Resolve(c.CatalogFile))
}

// PublishSlots provides every configured slot to w.
func (c *Config) PublishSlots(ctx context.Context, w capability.SlotWriter) error {
	for _, s := range c.State.Slots {
		if s.File != "" {
			if err := capability.PublishFile(ctx, w, s.App, s.Key, c.Resolve(s.File)); err != nil {
				return err
			}
			continue
		}
		if err := w.Provide(ctx, s.App, s.Key, s.Value); err != nil {
			return err
		}
	}
	return nil
}

// LoadTree reads a YAML or JSON document into a capabilities tree.
func LoadTree(path string) (capability.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capabilities: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse capabilities: %w", err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return capability.Tree(tree), nil
}
