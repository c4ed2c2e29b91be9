package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Status(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing a status message
	w.Status("🔍", "Searching index")

	// Then output contains icon and message
	output := buf.String()
	assert.Contains(t, output, "🔍")
	assert.Contains(t, output, "Searching index")
}

func TestWriter_Status_EmptyIcon(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing a status message without an icon
	w.Status("", "continuing")

	// Then the message is indented to align with iconed lines
	assert.Equal(t, "   continuing\n", buf.String())
}

func TestWriter_Success(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing success
	w.Success("Indexed 42 files")

	// Then output contains checkmark and message
	output := buf.String()
	assert.Contains(t, output, "✅")
	assert.Contains(t, output, "Indexed 42 files")
}

func TestWriter_Warning(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing warning
	w.Warning("Dump file unreadable")

	// Then output contains warning icon and message
	output := buf.String()
	assert.Contains(t, output, "⚠️")
	assert.Contains(t, output, "Dump file unreadable")
}

func TestWriter_Error(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing error
	w.Error("Index is locked")

	// Then output contains error icon and message
	output := buf.String()
	assert.Contains(t, output, "❌")
	assert.Contains(t, output, "Index is locked")
}

func TestWriter_Code(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing code block
	w.Code("symdex index ./dumps")

	// Then output is indented
	output := buf.String()
	assert.Contains(t, output, "  symdex index ./dumps")
}

func TestWriter_Line(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing a result line
	w.Line("com.shop.OrderService")

	// Then the line prints verbatim
	assert.Equal(t, "com.shop.OrderService\n", buf.String())
}

func TestWriter_Progress(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing progress
	w.Progress(5, 10, "Indexing dumps")

	// Then output contains progress indicators
	output := buf.String()
	assert.Contains(t, output, "50%")
	assert.Contains(t, output, "Indexing dumps")
}

func TestWriter_Progress_ZeroTotal_NoOutput(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing progress with zero total
	// Then should not panic
	assert.NotPanics(t, func() {
		w.Progress(5, 0, "Processing")
	})
	assert.Empty(t, buf.String())
}

func TestWriter_Statusf(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing formatted status
	w.Statusf("📁", "Found %d dump files", 42)

	// Then output contains formatted message
	output := buf.String()
	assert.Contains(t, output, "Found 42 dump files")
}

func TestProgressBar_Render(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		width   int
		filled  int
	}{
		{"empty", 0, 10, 10, 0},
		{"half", 5, 10, 10, 5},
		{"full", 10, 10, 10, 10},
		{"over", 15, 10, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderProgressBar(tt.current, tt.total, tt.width)

			filledCount := strings.Count(bar, "█")
			assert.Equal(t, tt.filled, filledCount)
			assert.Equal(t, tt.width, len([]rune(bar)))
		})
	}
}

func TestWriter_Newline(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When printing newline
	w.Newline()

	// Then output is a newline
	assert.Equal(t, "\n", buf.String())
}

func TestWriter_QuietSuppressesStatus(t *testing.T) {
	// Given a quiet writer
	var buf bytes.Buffer
	w := New(&buf, WithQuiet(true))

	// When printing status, progress and code
	w.Status("🔍", "Searching")
	w.Success("done")
	w.Progress(1, 2, "working")
	w.Code("symdex index")
	w.Newline()

	// Then nothing is written
	assert.Empty(t, buf.String())
	assert.True(t, w.Quiet())
}

func TestWriter_QuietKeepsWarningsErrorsAndLines(t *testing.T) {
	// Given a quiet writer
	var buf bytes.Buffer
	w := New(&buf, WithQuiet(true))

	// When printing a warning, an error and a result line
	w.Warning("stale manifest entry")
	w.Error("index locked")
	w.Line("com.shop.OrderService")

	// Then all three still print
	output := buf.String()
	assert.Contains(t, output, "stale manifest entry")
	assert.Contains(t, output, "index locked")
	assert.Contains(t, output, "com.shop.OrderService")
}

func TestWriter_JSONSuppressesEverythingButEmitJSON(t *testing.T) {
	// Given a JSON-mode writer
	var buf bytes.Buffer
	w := New(&buf, WithJSON(true))

	// When printing human-readable output
	w.Status("🔍", "Searching")
	w.Warning("stale")
	w.Error("locked")
	w.Line("com.shop.OrderService")
	w.Progress(1, 2, "working")

	// Then stdout stays empty
	assert.Empty(t, buf.String())
	assert.True(t, w.JSON())

	// When emitting the result
	err := w.EmitJSON(map[string]any{"fqn": "com.shop.OrderService"})

	// Then only the JSON document is written
	require.NoError(t, err)
	assert.JSONEq(t, `{"fqn": "com.shop.OrderService"}`, buf.String())
}

func TestWriter_EmitJSON_Indents(t *testing.T) {
	// Given a writer
	var buf bytes.Buffer
	w := New(&buf)

	// When emitting a slice
	err := w.EmitJSON([]string{"a", "b"})

	// Then the output is indented and newline-terminated
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"a\",\n  \"b\"\n]\n", buf.String())
}

func TestWriter_DimAndHighlight_NoTTY(t *testing.T) {
	// Given a writer on a buffer (not a terminal)
	var buf bytes.Buffer
	w := New(&buf)

	// When rendering helper styles
	// Then text passes through without escape codes
	assert.Equal(t, "file.jsonl", w.Dim("file.jsonl"))
	assert.Equal(t, "OrderService", w.Highlight("OrderService"))
}

func TestIsTTY_NilWriter(t *testing.T) {
	assert.False(t, IsTTY(nil))
}

func TestIsTTY_Buffer(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTTY(&buf))
}

func TestDetectNoColor(t *testing.T) {
	// Given NO_COLOR is set
	t.Setenv("NO_COLOR", "1")

	// Then detection reports true
	assert.True(t, DetectNoColor())
}

func TestGetStyles(t *testing.T) {
	// When requesting styles with and without color
	colored := GetStyles(false)
	plain := GetStyles(true)

	// Then the plain styles render text unchanged
	assert.Equal(t, "x", plain.Success.Render("x"))
	assert.NotNil(t, colored.Success)
}
