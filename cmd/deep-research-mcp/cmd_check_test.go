package main

import (
	"bytes"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

func TestCheckCommandInvalidFormat(t *testing.T) {
	cmd := newCheckCommand()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetArgs([]string{"--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml": expected text or json`)
}

func TestConnectionRows(t *testing.T) {
	t.Run("configured and working", func(t *testing.T) {
		rows := connectionRows(research.ConnectionResult{
			APIKeyConfigured:   true,
			APIKeyFormat:       "sk-p...xyz (standard format)",
			Connection:         "working",
			ModelCount:         42,
			DeepResearchModels: []string{"o3-deep-research", "o4-mini-deep-research"},
		})
		require.Len(t, rows, 3)

		assert.Equal(t, "API key", rows[0].name)
		assert.Equal(t, "✅", rows[0].icon)
		assert.Equal(t, "sk-p...xyz (standard format)", rows[0].detail)

		assert.Equal(t, "✅", rows[1].icon)
		assert.Equal(t, "42 model(s) visible", rows[1].detail)

		assert.Equal(t, "✅", rows[2].icon)
		assert.Equal(t, "2 research-capable model(s)", rows[2].detail)
	})

	t.Run("missing key", func(t *testing.T) {
		rows := connectionRows(research.ConnectionResult{
			Connection: "failed",
			Err:        "OPENAI_API_KEY not set",
		})
		assert.Equal(t, "❌", rows[0].icon)
		assert.Equal(t, "not configured (set OPENAI_API_KEY)", rows[0].detail)
		assert.Equal(t, "❌", rows[1].icon)
		assert.Equal(t, "OPENAI_API_KEY not set", rows[1].detail)
		assert.Equal(t, "—", rows[2].icon)
		assert.Empty(t, rows[2].detail)
	})

	t.Run("working but no research models", func(t *testing.T) {
		rows := connectionRows(research.ConnectionResult{
			APIKeyConfigured: true,
			APIKeyFormat:     "sk-p...xyz (standard format)",
			Connection:       "working",
			ModelCount:       3,
		})
		assert.Equal(t, "⚠️", rows[2].icon)
		assert.Equal(t, "no research-capable models visible", rows[2].detail)
	})
}

func TestDisplayConnectionReport(t *testing.T) {
	var buf bytes.Buffer
	displayConnectionReport(&buf, research.KindResponses, research.ConnectionResult{
		APIKeyConfigured:   true,
		APIKeyFormat:       "sk-p...xyz (standard format)",
		Connection:         "working",
		ModelCount:         42,
		DeepResearchModels: []string{"o3-deep-research"},
	})
	out := buf.String()

	assert.Contains(t, out, "Deep Research Connection Check")
	assert.Contains(t, out, "Provider: responses")
	assert.Contains(t, out, "API key")
	assert.Contains(t, out, "42 model(s) visible")
	assert.Contains(t, out, "Deep research models:")
	assert.Contains(t, out, "  • o3-deep-research")
}

func TestDisplayConnectionReportFailed(t *testing.T) {
	var buf bytes.Buffer
	displayConnectionReport(&buf, research.KindResponses, research.ConnectionResult{
		Connection: "failed",
		Err:        "connection refused",
	})
	out := buf.String()

	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "not configured (set OPENAI_API_KEY)")
	assert.NotContains(t, out, "Deep research models:")
}

func TestDisplayConnectionReportManualProvider(t *testing.T) {
	var buf bytes.Buffer
	displayConnectionReport(&buf, research.KindManual, research.ConnectionResult{})
	out := buf.String()

	assert.Contains(t, out, "Provider: manual")
	assert.Contains(t, out, "no API calls")
	assert.NotContains(t, out, "Status")
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "abc  ", padRight("abc", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))

	// Emoji are wider than one column; the padded width must come out even.
	padded := padRight("✅", 7)
	assert.Equal(t, 7, runewidth.StringWidth(padded))
}
