// Package output provides consistent CLI output formatting with colors and progress indicators.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Writer provides formatted output for CLI commands.
type Writer struct {
	out     io.Writer
	styles  Styles
	quiet   bool
	json    bool
	noColor bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithQuiet suppresses status and progress output. Warnings, errors
// and result lines still print.
func WithQuiet(quiet bool) Option {
	return func(w *Writer) {
		w.quiet = quiet
	}
}

// WithJSON switches the writer to JSON result mode. Everything except
// EmitJSON is suppressed so stdout stays machine-parseable.
func WithJSON(jsonMode bool) Option {
	return func(w *Writer) {
		w.json = jsonMode
	}
}

// WithNoColor disables styling regardless of terminal detection.
func WithNoColor(noColor bool) Option {
	return func(w *Writer) {
		w.noColor = noColor
	}
}

// New creates a new output Writer. Styles are enabled only when out is
// a terminal and NO_COLOR is unset.
func New(out io.Writer, opts ...Option) *Writer {
	w := &Writer{out: out}
	for _, opt := range opts {
		opt(w)
	}
	w.styles = GetStyles(w.noColor || !IsTTY(out) || DetectNoColor())
	return w
}

// Quiet reports whether status output is suppressed.
func (w *Writer) Quiet() bool {
	return w.quiet
}

// JSON reports whether results should be emitted as JSON.
func (w *Writer) JSON() bool {
	return w.json
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if w.quiet || w.json {
		return
	}
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	w.Status(icon, msg)
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", w.styles.Success.Render(msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message. Warnings print even in quiet mode.
func (w *Writer) Warning(msg string) {
	if w.json {
		return
	}
	_, _ = fmt.Fprintf(w.out, "⚠️  %s\n", w.styles.Warning.Render(msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message. Errors print even in quiet mode.
func (w *Writer) Error(msg string) {
	if w.json {
		return
	}
	_, _ = fmt.Fprintf(w.out, "❌ %s\n", w.styles.Error.Render(msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Line prints a plain result line. Result lines print even in quiet
// mode; they are the command's output.
func (w *Writer) Line(msg string) {
	if w.json {
		return
	}
	_, _ = fmt.Fprintln(w.out, msg)
}

// Linef prints a formatted result line.
func (w *Writer) Linef(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...))
}

// EmitJSON writes v as indented JSON followed by a newline.
func (w *Writer) EmitJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Code prints a code block with indentation.
func (w *Writer) Code(content string) {
	if w.quiet || w.json {
		return
	}
	_, _ = fmt.Fprintln(w.out)
	// Indent each line
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	if w.quiet || w.json {
		return
	}
	_, _ = fmt.Fprintln(w.out)
}

// Dim renders s in the dim style, for secondary annotations.
func (w *Writer) Dim(s string) string {
	return w.styles.Dim.Render(s)
}

// Highlight renders s in the accent style, for primary results.
func (w *Writer) Highlight(s string) string {
	return w.styles.Highlight.Render(s)
}

// Progress prints a progress bar with message.
func (w *Writer) Progress(current, total int, msg string) {
	if w.quiet || w.json {
		return
	}
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)

	// Use carriage return for in-place updates
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)

	// Add newline when complete
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// ProgressDone completes a progress line with newline.
func (w *Writer) ProgressDone() {
	if w.quiet || w.json {
		return
	}
	_, _ = fmt.Fprintln(w.out)
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))

	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	// Check if it's a file that's a terminal
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
