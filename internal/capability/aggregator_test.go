package capability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mimeODT  = "application/vnd.oasis.opendocument.text"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func TestMimeSet(t *testing.T) {
	s := NewMimeSet(" Text/Plain ", "text/plain", "", "image/png")

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("TEXT/PLAIN"))
	assert.False(t, s.Has("application/pdf"))
	assert.Equal(t, []string{"image/png", "text/plain"}, s.Sorted())

	u := s.Union(NewMimeSet("application/pdf"))
	assert.Equal(t, 3, u.Len())
	assert.Equal(t, 2, s.Len(), "union does not mutate the receiver")

	var zero MimeSet
	assert.True(t, zero.Empty())
	assert.False(t, zero.Has("text/plain"))
}

func TestTree_Lookup(t *testing.T) {
	tree := Tree{"richdocuments": map[string]any{"mimetypes": []any{mimeODT}}}

	v, ok := tree.Lookup("richdocuments", "mimetypes")
	require.True(t, ok)
	assert.Equal(t, []any{mimeODT}, v)

	_, ok = tree.Lookup("richdocuments", "missing")
	assert.False(t, ok)
	_, ok = tree.Lookup("richdocuments", "mimetypes", "deeper")
	assert.False(t, ok)

	var empty Tree
	_, ok = empty.Lookup("anything")
	assert.False(t, ok)
}

func TestResolve_CapabilityUnionsPaths(t *testing.T) {
	agg := NewAggregator(WithCapabilities(Tree{
		"richdocuments": map[string]any{
			"mimetypes":              []any{mimeODT, mimeDOCX},
			"mimetypesNoDefaultOpen": []any{mimeDOCX, "image/svg+xml", 42},
		},
	}))

	set, err := agg.Resolve(context.Background(), Binding{
		Integration: "richdocuments",
		Kind:        SourceCapability,
		CapabilityPaths: [][]string{
			{"richdocuments", "mimetypes"},
			{"richdocuments", "mimetypesNoDefaultOpen"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Has("image/svg+xml"))
}

func TestResolve_CapabilityDefaultPath(t *testing.T) {
	agg := NewAggregator(WithCapabilities(Tree{
		"officeonline": map[string]any{"mimetypes": []any{mimeDOCX}},
	}))

	set, err := agg.Resolve(context.Background(), Binding{Integration: "officeonline", Kind: SourceCapability})
	require.NoError(t, err)
	assert.True(t, set.Has(mimeDOCX))
}

func TestResolve_CapabilityAbsent(t *testing.T) {
	agg := NewAggregator()

	set, err := agg.Resolve(context.Background(), Binding{Integration: "officeonline", Kind: SourceCapability})
	assert.True(t, set.Empty())
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestResolve_StateSlot(t *testing.T) {
	ctx := context.Background()
	slots := NewMapSlots()
	require.NoError(t, slots.Provide(ctx, "office_switcher", "thinkfree_supported_formats",
		`{"docx":{"mime":"`+mimeDOCX+`"},"xlsx":{"mime":["`+mimeXLSX+`"]},"bad":{"ext":"x"}}`))
	agg := NewAggregator(WithStateSlots(slots))

	set, err := agg.Resolve(ctx, Binding{
		Integration: "thinkfree",
		Kind:        SourceState,
		StateApp:    "office_switcher",
		StateKey:    "thinkfree_supported_formats",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{mimeDOCX, mimeXLSX}, set.Sorted())
}

func TestResolve_StateSlotUnset(t *testing.T) {
	agg := NewAggregator(WithStateSlots(NewMapSlots()))

	set, err := agg.Resolve(context.Background(), Binding{
		Integration: "thinkfree", Kind: SourceState,
		StateApp: "office_switcher", StateKey: "thinkfree_supported_formats",
	})
	assert.True(t, set.Empty())
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestResolve_StateSlotMalformed(t *testing.T) {
	ctx := context.Background()
	slots := NewMapSlots()
	require.NoError(t, slots.Provide(ctx, "office_switcher", "thinkfree_supported_formats", `{"docx":`))
	agg := NewAggregator(WithStateSlots(slots))

	set, err := agg.Resolve(ctx, Binding{
		Integration: "thinkfree", Kind: SourceState,
		StateApp: "office_switcher", StateKey: "thinkfree_supported_formats",
	})
	assert.True(t, set.Empty())
	assert.True(t, errors.Is(err, ErrMalformedData))
}

func TestResolve_StateDefaultOnlyWithPath(t *testing.T) {
	ctx := context.Background()
	slots := NewMapSlots()
	require.NoError(t, slots.Provide(ctx, "onlyoffice", "settings", `{
		"formats": {
			"docx": {"mime": ["`+mimeDOCX+`"], "def": true},
			"odt":  {"mime": ["`+mimeODT+`"], "def": false},
			"txt":  {"def": true}
		}
	}`))
	agg := NewAggregator(WithStateSlots(slots))

	set, err := agg.Resolve(ctx, Binding{
		Integration: "onlyoffice", Kind: SourceState,
		StateApp: "onlyoffice", StateKey: "settings",
		StatePath: "formats", DefaultOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{mimeDOCX}, set.Sorted())
}

func TestResolve_Catalog(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	agg := NewAggregator(WithCatalog(cat))

	set, err := agg.Resolve(context.Background(), Binding{Integration: "onlyoffice", Kind: SourceCatalog})
	require.NoError(t, err)
	assert.True(t, set.Has(mimeDOCX))
	assert.True(t, set.Has(mimeXLSX))
	assert.False(t, set.Has(mimeODT), "non-default formats are excluded")

	set, err = agg.Resolve(context.Background(), Binding{Integration: "thinkfree", Kind: SourceCatalog})
	assert.True(t, set.Empty())
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestResolve_None(t *testing.T) {
	set, err := NewAggregator().Resolve(context.Background(), Binding{Integration: "x", Kind: SourceNone})
	assert.True(t, set.Empty())
	assert.Error(t, err)
}

func TestResolveAll_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	slots := NewMapSlots()
	require.NoError(t, slots.Provide(ctx, "office_switcher", "a_formats", `not json`))
	require.NoError(t, slots.Provide(ctx, "office_switcher", "b_formats", `{"odt":{"mime":"`+mimeODT+`"}}`))
	agg := NewAggregator(WithStateSlots(slots))

	results := agg.ResolveAll(ctx, []Binding{
		{Integration: "a", Kind: SourceState, StateApp: "office_switcher", StateKey: "a_formats"},
		{Integration: "b", Kind: SourceState, StateApp: "office_switcher", StateKey: "b_formats"},
		{Integration: "c", Kind: SourceNone},
	})

	require.Len(t, results, 3)
	assert.True(t, errors.Is(results["a"].Err, ErrMalformedData))
	assert.True(t, results["a"].Mimes.Empty())
	require.NoError(t, results["b"].Err)
	assert.True(t, results["b"].Mimes.Has(mimeODT))
	assert.True(t, results["c"].Mimes.Empty())
}

func TestParseFormats_Shapes(t *testing.T) {
	mimes, err := ParseFormats([]byte(`[{"mime":"a/b"},{"mime":{"x":"c/d"}},"junk",{"nomime":1}]`), "", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/b", "c/d"}, mimes)

	_, err = ParseFormats([]byte(`"just a string"`), "", false)
	assert.True(t, errors.Is(err, ErrMalformedData))

	_, err = ParseFormats([]byte(`{"settings":{}}`), "settings.formats", false)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestPublishFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	good := filepath.Join(dir, "supported_formats.json")
	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"odt":{"mime":"`+mimeODT+`"}}`), 0644))
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0644))
	slots := NewMapSlots()

	require.NoError(t, PublishFile(ctx, slots, "office_switcher", "thinkfree_supported_formats", good))
	v, ok, err := slots.Load(ctx, "office_switcher", "thinkfree_supported_formats")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, v, mimeODT)

	err = PublishFile(ctx, slots, "office_switcher", "other", bad)
	assert.True(t, errors.Is(err, ErrMalformedData))

	assert.Error(t, PublishFile(ctx, slots, "office_switcher", "other", filepath.Join(dir, "missing.json")))
}

func TestParseCatalog_Strict(t *testing.T) {
	_, err := ParseCatalog([]byte("formats:\n  - integration: x\n    mimes: [a/b]\n"))
	assert.Error(t, err, "unknown field rejected")

	_, err = ParseCatalog([]byte("formats:\n  - mime: [a/b]\n"))
	assert.Error(t, err, "integration required")
}
