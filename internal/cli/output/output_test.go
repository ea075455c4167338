package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "auto", "text", "markdown", "json"} {
		_, err := ParseMode(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseMode("yaml")
	assert.Error(t, err)
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		tty  bool
		want Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
	}
	for _, tt := range tests {
		r, _, _ := newTestRenderer(tt.mode, tt.tty)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode=%q tty=%v", tt.mode, tt.tty)
	}
}

func TestRenderer_Markdown(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeAuto, false)

	r.Header(1, "Pipeline")
	r.Success("Stage_events")
	r.Muted("done")
	r.Error("boom")
	r.Table([]string{"table", "count"}, [][]string{{"songs", "2"}, {"users", "3"}})

	s := out.String()
	assert.Contains(t, s, "# Pipeline\n")
	assert.Contains(t, s, "- Stage_events\n")
	assert.Contains(t, s, "_done_")
	assert.Contains(t, s, "| songs | 2 |")
	assert.NotContains(t, s, "\x1b[")
	assert.Equal(t, "**Error:** boom\n", errOut.String())
}

func TestRenderer_Text(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, true)

	r.Header(2, "Level 0")
	r.Success("ok")
	r.Error("failed")
	r.Table([]string{"table"}, [][]string{{"songs"}})

	s := out.String()
	assert.Contains(t, s, "Level 0")
	assert.Contains(t, s, "✓ ok")
	assert.Contains(t, s, "songs")
	assert.True(t, strings.ContainsAny(s, "┌─"), "text tables are box drawn")
	assert.Contains(t, errOut.String(), "✗ failed")
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(CheckOutput{Passed: true, Tables: []CheckResult{{Table: "songs", Count: 2, Passed: true}}}))
	assert.Contains(t, out.String(), `"passed": true`)

	out.Reset()
	require.NoError(t, r.JSONLine(map[string]string{"a": "b"}))
	assert.Equal(t, "{\"a\":\"b\"}\n", out.String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "## Summary", FormatHeader(2, "Summary"))
	assert.Equal(t, "# X", FormatHeader(0, "X"))
	assert.Equal(t, "- **Tasks:** 9", FormatKeyValue("Tasks", "9"))
	assert.Equal(t, "- a\n- b", FormatList([]string{"a", "b"}))
}
