package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/officeswitcher/officeswitcher/internal/engine"
)

// createTestStore creates a new file-backed store with a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReport creates a report shaped like a richdocuments-only pass.
func createTestReport(passID string) *engine.Report {
	return &engine.Report{
		PassID: passID,
		Integrations: []engine.IntegrationReport{
			{
				Integration:  "richdocuments",
				Source:       "capability",
				Status:       engine.StatusRegistered,
				ActionID:     "office-switcher-richdocuments",
				Exec:         "viewer",
				Mimes:        []string{"application/vnd.oasis.opendocument.text"},
				IconFallback: true,
			},
			{
				Integration:  "onlyoffice",
				Source:       "catalog",
				Status:       engine.StatusRegistered,
				ActionID:     "office-switcher-onlyoffice",
				Exec:         "native",
				NativeAction: "onlyoffice-open",
				Mimes:        []string{"text/csv"},
			},
			{
				Integration: "thinkfree",
				Source:      "state",
				Status:      engine.StatusSkipped,
				Mimes:       []string{},
			},
		},
		Umbrella: &engine.UmbrellaReport{
			ActionID: "office-switcher",
			Order:    -99999,
			Children: []string{"office-switcher-richdocuments", "office-switcher-onlyoffice"},
		},
		Suppressed: []string{"onlyoffice-open"},
		Missing:    []string{"onlyoffice-open-def", "thinkfreeEditorAction"},
		Diagnostics: []engine.Diagnostic{
			{Seq: 1, Code: engine.ErrCodeSourceUnavailable, Integration: "thinkfree", Message: "no mime types resolved: source unavailable: state slot office_switcher/thinkfree_supported_formats is not set"},
			{Seq: 2, Code: engine.ErrCodeActionLookupMiss, Message: "legacy action onlyoffice-open-def not registered"},
		},
	}
}
