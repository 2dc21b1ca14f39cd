package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officeswitcher/officeswitcher/internal/engine"
	"github.com/officeswitcher/officeswitcher/internal/testutil"
)

// reportResponse is CLIResponse with a typed report payload.
type reportResponse struct {
	Status string        `json:"status"`
	PassID string        `json:"pass_id"`
	Data   engine.Report `json:"data"`
}

func decodeReport(t *testing.T, out string) engine.Report {
	t.Helper()
	var resp reportResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, resp.Data.PassID, resp.PassID)
	return resp.Data
}

func TestResolve_TextOutput(t *testing.T) {
	out, err := execute(t, "resolve", "--capabilities", "testdata/caps.json")
	require.NoError(t, err)

	assert.Contains(t, out, "office-switcher-richdocuments (viewer, 3 mime types)")
	assert.Contains(t, out, "office-switcher-onlyoffice")
	assert.Contains(t, out, "Umbrella: office-switcher (order -99999) -> office-switcher-richdocuments, office-switcher-onlyoffice")
	assert.Contains(t, out, "Suppressed: none")
	assert.Contains(t, out, "Missing legacy: onlyoffice-open, onlyoffice-open-def, thinkfreeEditorAction")
	assert.Contains(t, out, "ACTION_LOOKUP_MISS onlyoffice: native action onlyoffice-open not registered, using viewer")
}

func TestResolve_JSONOutput(t *testing.T) {
	out, err := execute(t, "--format", "json", "resolve", "--capabilities", "testdata/caps.json")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t,
		[]string{"office-switcher-richdocuments", "office-switcher-onlyoffice", "office-switcher"},
		report.Registered())

	line, ok := report.Integration("richdocuments")
	require.True(t, ok)
	assert.Equal(t, []string{
		"application/vnd.oasis.opendocument.spreadsheet",
		"application/vnd.oasis.opendocument.text",
		"image/svg+xml",
	}, line.Mimes)
}

func TestResolve_FixedPassID(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	opts := &PassOptions{
		RootOptions:  &RootOptions{Format: "json"},
		Capabilities: "testdata/caps.json",
		PassIDs:      testutil.NewFixedPassIDs("pass-fixed"),
	}
	require.NoError(t, runResolve(opts, cmd))

	assert.Equal(t, "pass-fixed", decodeReport(t, out.String()).PassID)
}

func TestResolve_ConfigFileWithSlots(t *testing.T) {
	out, err := execute(t, "--format", "json", "resolve",
		"--config", "testdata/switcher.yaml",
		"--existing", "thinkfreeEditorAction",
	)
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t,
		[]string{"office-switcher-richdocuments", "office-switcher-thinkfree", "office-switcher"},
		report.Registered())
	assert.Equal(t, []string{"thinkfreeEditorAction"}, report.Suppressed)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Diagnostics)

	line, ok := report.Integration("thinkfree")
	require.True(t, ok)
	assert.Equal(t, "native", line.Exec)
	assert.Equal(t, "thinkfreeEditorAction", line.NativeAction)
	assert.Equal(t, []string{"application/haansofthwp", "application/pdf", "application/x-hwp"}, line.Mimes)
}

func TestResolve_PublishFlag(t *testing.T) {
	out, err := execute(t, "--format", "json", "resolve",
		"--publish", "thinkfree=testdata/thinkfree_formats.json",
	)
	require.NoError(t, err)

	report := decodeReport(t, out)
	line, ok := report.Integration("thinkfree")
	require.True(t, ok)
	assert.Equal(t, engine.StatusRegistered, line.Status)
	assert.Equal(t, "viewer", line.Exec, "no native action registered")
}

func TestResolve_PublishErrors(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"malformed pair", "thinkfree", "want integration=file"},
		{"unknown integration", "nextcloud=testdata/thinkfree_formats.json", "unknown integration nextcloud"},
		{"integration without state", "richdocuments=testdata/thinkfree_formats.json", "integration richdocuments has no state slot"},
		{"missing file", "thinkfree=testdata/nope.json", "publish office_switcher/thinkfree_supported_formats"},
		{"invalid json", "thinkfree=testdata/switcher.yaml", "malformed data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "resolve", "--publish", tt.arg)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "failed to publish state")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolve_InvalidConfig(t *testing.T) {
	_, err := execute(t, "resolve", "--config", "testdata/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
	assert.Contains(t, err.Error(), "E101")
}

func TestResolve_IconModes(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tests := []struct {
		mode         string
		wantFallback bool
	}{
		{"inline", true},
		{"reference", false},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "switcher.yaml")
			content := fmt.Sprintf(`
icons:
  base_url: %q
  mode: %s
integrations:
  - id: richdocuments
    source: capability
    capability_paths:
      - [richdocuments, mimetypes]
`, srv.URL, tt.mode)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			out, err := execute(t, "--format", "json", "resolve",
				"--config", path, "--capabilities", "testdata/caps.json")
			require.NoError(t, err)

			r := decodeReport(t, out)
			line, ok := r.Integration("richdocuments")
			require.True(t, ok)
			assert.Equal(t, tt.wantFallback, line.IconFallback)
		})
	}
}

func writeRedisConfig(t *testing.T, addr string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "switcher.yaml")
	content := fmt.Sprintf(`
state:
  backend: redis
  redis:
    addr: %q
    prefix: test
integrations:
  - id: thinkfree
    source: state
    state:
      app: office_switcher
      key: thinkfree_supported_formats
legacy_actions: []
`, addr)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolve_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("test:office_switcher:thinkfree_supported_formats", `{"pdf": {"mime": "application/pdf"}}`))

	out, err := execute(t, "--format", "json", "resolve", "--config", writeRedisConfig(t, mr.Addr()))
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, []string{"office-switcher-thinkfree", "office-switcher"}, report.Registered())
	assert.Empty(t, report.Missing, "empty legacy list suppresses nothing")
}

func TestResolve_RedisPublish(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := execute(t, "resolve",
		"--config", writeRedisConfig(t, mr.Addr()),
		"--publish", "thinkfree=testdata/thinkfree_formats.json",
	)
	require.NoError(t, err)

	v, err := mr.Get("test:office_switcher:thinkfree_supported_formats")
	require.NoError(t, err)
	assert.Contains(t, v, "application/pdf")
}

func TestResolve_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := execute(t, "resolve", "--config", writeRedisConfig(t, addr))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open state backend")
}
