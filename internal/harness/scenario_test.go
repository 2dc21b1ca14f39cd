package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content to a scenario file in a fresh directory.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
capabilities:
  richdocuments:
    mimetypes: [application/vnd.oasis.opendocument.text]
steps:
  - select:
      - {path: /a.odt, fileid: 3, mime: application/vnd.oasis.opendocument.text}
    expect_enabled: [office-switcher-richdocuments, office-switcher]
  - exec: office-switcher-richdocuments
    node: {path: /a.odt, fileid: 3, mime: application/vnd.oasis.opendocument.text}
    dir: /
assertions:
  - type: registered
    actions: [office-switcher-richdocuments, office-switcher]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Empty(t, scenario.Config)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, int64(3), scenario.Steps[0].Select[0].FileID)
	assert.Equal(t, "office-switcher-richdocuments", scenario.Steps[1].Exec)
	require.NotNil(t, scenario.Steps[1].Node)
	assert.Equal(t, "/a.odt", scenario.Steps[1].Node.Path)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_ResolvesConfigRelativeToScenario(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/richdocuments_only.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "config.yaml"), scenario.Config)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "Misspelled assertions key"
assertion:
  - type: registered
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "missing name",
			content: `
description: "x"
assertions: [{type: registered}]
`,
			want: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
assertions: [{type: registered}]
`,
			want: "description is required",
		},
		{
			name: "no assertions",
			content: `
name: x
description: "x"
`,
			want: "assertions list is required",
		},
		{
			name: "missing config",
			content: `
name: x
description: "x"
config: nowhere.yaml
assertions: [{type: registered}]
`,
			want: "config file not found",
		},
		{
			name: "state without key",
			content: `
name: x
description: "x"
state: [{app: office_switcher}]
assertions: [{type: registered}]
`,
			want: "state[0]: app and key are required",
		},
		{
			name: "exec without node",
			content: `
name: x
description: "x"
steps: [{exec: office-switcher}]
assertions: [{type: registered}]
`,
			want: "steps[0]: node is required for exec",
		},
		{
			name: "step with two kinds",
			content: `
name: x
description: "x"
steps:
  - select: [{path: /a, fileid: 1, mime: text/plain}]
    close: true
assertions: [{type: registered}]
`,
			want: "steps[0]: exactly one of select, exec and close is required",
		},
		{
			name: "empty step",
			content: `
name: x
description: "x"
steps: [{dir: /}]
assertions: [{type: registered}]
`,
			want: "steps[0]: exactly one of select, exec and close is required",
		},
		{
			name: "suppressed without actions",
			content: `
name: x
description: "x"
assertions: [{type: suppressed}]
`,
			want: "actions list is required for suppressed",
		},
		{
			name: "diagnostic without code",
			content: `
name: x
description: "x"
assertions: [{type: diagnostic, integration: thinkfree}]
`,
			want: "code is required for diagnostic",
		},
		{
			name: "unknown assertion",
			content: `
name: x
description: "x"
assertions: [{type: trace_contains}]
`,
			want: `unknown assertion type "trace_contains"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
