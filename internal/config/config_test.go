package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officeswitcher/officeswitcher/internal/capability"
)

func codes(t *testing.T, err error) []string {
	t.Helper()
	var verrs *Errors
	require.True(t, errors.As(err, &verrs), "expected *Errors, got %v", err)
	out := make([]string, 0, len(verrs.List))
	for _, v := range verrs.List {
		out = append(out, v.Code)
	}
	return out
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "office-switcher", cfg.UmbrellaID())
	assert.Equal(t, -99999, cfg.UmbrellaOrder())
	assert.Equal(t, []string{"onlyoffice-open", "onlyoffice-open-def", "thinkfreeEditorAction"}, cfg.LegacyActions)

	bindings := cfg.Bindings()
	require.Len(t, bindings, 4)
	ids := make([]capability.IntegrationID, len(bindings))
	for i, b := range bindings {
		ids[i] = b.Integration
	}
	assert.Equal(t, []capability.IntegrationID{"richdocuments", "onlyoffice", "officeonline", "thinkfree"}, ids)

	assert.Equal(t, capability.SourceCapability, bindings[0].Kind)
	assert.Len(t, bindings[0].CapabilityPaths, 2)
	assert.Equal(t, capability.SourceCatalog, bindings[1].Kind)
	assert.Equal(t, capability.SourceState, bindings[3].Kind)
	assert.Equal(t, "office_switcher", bindings[3].StateApp)
	assert.Equal(t, "thinkfree_supported_formats", bindings[3].StateKey)

	assert.Equal(t, map[string]string{
		"onlyoffice": "onlyoffice-open",
		"thinkfree":  "thinkfreeEditorAction",
	}, cfg.NativeActions())
	assert.Equal(t, "Nextcloud Office", cfg.AppNames()["richdocuments"])
}

func TestParse_UmbrellaDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
integrations:
  - id: richdocuments
    source: capability
`), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultUmbrellaID, cfg.UmbrellaID())
	assert.Equal(t, DefaultUmbrellaOrder, cfg.UmbrellaOrder())
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no integrations", "locale: en\n"},
		{"empty integrations", "integrations: []\n"},
		{"unknown source", "integrations:\n  - id: x\n    source: guess\n"},
		{"bad id", "integrations:\n  - id: Bad-Id\n    source: none\n"},
		{"unknown field", "integrations:\n  - id: x\n    source: none\n    colour: red\n"},
		{"bad backend", "state:\n  backend: etcd\nintegrations:\n  - id: x\n    source: none\n"},
		{"bad icon url", "icons:\n  base_url: ftp://host\nintegrations:\n  - id: x\n    source: none\n"},
		{"bad icon mode", "icons:\n  mode: embed\nintegrations:\n  - id: x\n    source: none\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "")
			require.Error(t, err)
			for _, c := range codes(t, err) {
				assert.Equal(t, ErrSchema, c)
			}
		})
	}
}

func TestParse_SchemaErrorHasLine(t *testing.T) {
	_, err := Parse([]byte("integrations:\n  - id: x\n    source: guess\n"), "")
	require.Error(t, err)

	var verrs *Errors
	require.ErrorAs(t, err, &verrs)
	require.NotEmpty(t, verrs.List)
	assert.Contains(t, verrs.List[0].Field, "source")
}

func TestValidate_CrossFieldRules(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "duplicate integration",
			cfg: Config{Integrations: []Integration{
				{ID: "a", Source: "none"},
				{ID: "a", Source: "none"},
			}},
			want: []string{ErrDuplicateIntegration},
		},
		{
			name: "state without reference",
			cfg:  Config{Integrations: []Integration{{ID: "a", Source: "state"}}},
			want: []string{ErrStateRefMissing},
		},
		{
			name: "reference without state",
			cfg: Config{Integrations: []Integration{
				{ID: "a", Source: "catalog", State: &StateRef{App: "x", Key: "y"}},
			}},
			want: []string{ErrStateRefUnexpected},
		},
		{
			name: "paths on catalog source",
			cfg: Config{Integrations: []Integration{
				{ID: "a", Source: "catalog", CapabilityPaths: [][]string{{"a", "mimetypes"}}},
			}},
			want: []string{ErrPathsUnexpected},
		},
		{
			name: "native action collides with child id",
			cfg: Config{Integrations: []Integration{
				{ID: "a", Source: "none", NativeAction: "office-switcher-a"},
			}},
			want: []string{ErrActionIDCollision},
		},
		{
			name: "redis without address",
			cfg: Config{
				State:        State{Backend: "redis"},
				Integrations: []Integration{{ID: "a", Source: "none"}},
			},
			want: []string{ErrRedisAddrMissing},
		},
		{
			name: "slot with value and file",
			cfg: Config{
				State:        State{Slots: []Slot{{App: "a", Key: "k", Value: "{}", File: "f.json"}}},
				Integrations: []Integration{{ID: "a", Source: "none"}},
			},
			want: []string{ErrSlotAmbiguous},
		},
		{
			name: "collects all errors",
			cfg: Config{
				Integrations:  []Integration{{ID: "a", Source: "state"}, {ID: "a", Source: "none"}},
				LegacyActions: []string{"x", "x"},
			},
			want: []string{ErrStateRefMissing, ErrDuplicateIntegration, ErrDuplicateLegacy},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&tt.cfg)
			got := make([]string, len(errs))
			for i, e := range errs {
				got[i] = e.Code
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "integrations[0].id", Message: "bad", Code: "E101"}
	assert.Equal(t, "[E101] integrations[0].id: bad", e.Error())
	e.Line = 4
	assert.Equal(t, "[E101] line 4: integrations[0].id: bad", e.Error())
}

func TestLoad_ResolvesRelativeFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "caps.yaml"), []byte(`
richdocuments:
  mimetypes: [application/vnd.oasis.opendocument.text]
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "formats.json"), []byte(`[{"mime":"text/csv"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "switcher.yaml"), []byte(`
capabilities_file: caps.yaml
state:
  slots:
    - app: office_switcher
      key: thinkfree_supported_formats
      file: formats.json
    - app: office_switcher
      key: inline
      value: "[]"
integrations:
  - id: richdocuments
    source: capability
`), 0o644))

	cfg, err := Load(filepath.Join(dir, "switcher.yaml"))
	require.NoError(t, err)

	tree, err := cfg.LoadCapabilities()
	require.NoError(t, err)
	v, ok := tree.Lookup("richdocuments", "mimetypes")
	require.True(t, ok)
	assert.Equal(t, []any{"application/vnd.oasis.opendocument.text"}, v)

	slots := capability.NewMapSlots()
	require.NoError(t, cfg.PublishSlots(context.Background(), slots))
	raw, ok, err := slots.Load(context.Background(), "office_switcher", "thinkfree_supported_formats")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"mime":"text/csv"}]`, raw)

	raw, ok, err = slots.Load(context.Background(), "office_switcher", "inline")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", raw)

	cat, err := cfg.LoadCatalog()
	require.NoError(t, err)
	assert.True(t, cat.DefaultMimes("onlyoffice").Len() > 0)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
