package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMixedSummary(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, false).Render(mixedSummary())

	g := goldie.New(t)
	g.Assert(t, "render_mixed", buf.Bytes())
}

func TestRenderVerboseShowsPassingStepsAndHints(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, true).Render(mixedSummary())
	out := buf.String()

	assert.Contains(t, out, "✅ initialize")
	assert.Contains(t, out, "💡 Start it with: nixai mcp-server start")
}

func TestRenderAllGreenVerdict(t *testing.T) {
	s := mixedSummary()
	s.Probes = s.Probes[:1]
	s.Scenarios = s.Scenarios[:1]
	s.ProbesFailed, s.ProbesSkipped = 0, 0
	s.ScenariosFailed, s.ScenariosAborted = 0, 0
	s.Overall = true

	var buf bytes.Buffer
	NewRenderer(&buf, false).Render(s)

	assert.Contains(t, buf.String(), "🎉 All checks passed")
	assert.NotContains(t, buf.String(), "💔")
}

func TestWriteJSONRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	s := mixedSummary()

	path, err := s.WriteJSON(dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "mcpdiag-report-"))
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Summary
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, s.RunID, loaded.RunID)
	assert.Equal(t, s.Target, loaded.Target)
	assert.Len(t, loaded.Probes, 3)
	assert.Len(t, loaded.Scenarios, 3)
	assert.False(t, loaded.Overall)
}
