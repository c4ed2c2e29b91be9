// Package ui provides the interactive symbol picker behind
// `symdex search --pick`.
//
// The picker is a bubbletea list over ranked search results. Enter
// confirms the highlighted symbol, Esc dismisses the list. Callers are
// expected to fall back to plain output when the terminal is not
// interactive; NewPicker enforces that by refusing non-TTY sinks.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codenav/symdex/internal/output"
	"github.com/codenav/symdex/internal/schema"
)

// ErrCanceled is returned by Run when the user dismisses the picker
// without confirming a symbol.
var ErrCanceled = errors.New("selection canceled")

// Picker displays search results as an interactive list.
type Picker struct {
	out     io.Writer
	title   string
	noColor bool
}

// PickerOption configures a Picker.
type PickerOption func(*Picker)

// WithTitle overrides the list title shown above the results.
func WithTitle(title string) PickerOption {
	return func(p *Picker) {
		p.title = title
	}
}

// WithPickerNoColor disables styling regardless of terminal detection.
func WithPickerNoColor(noColor bool) PickerOption {
	return func(p *Picker) {
		p.noColor = noColor
	}
}

// NewPicker creates a picker writing to out.
// Returns an error if out is not a TTY.
func NewPicker(out io.Writer, opts ...PickerOption) (*Picker, error) {
	if !output.IsTTY(out) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	p := &Picker{
		out:   out,
		title: "Select a symbol",
	}
	for _, opt := range opts {
		opt(p)
	}
	if output.DetectNoColor() {
		p.noColor = true
	}
	return p, nil
}

// Run displays the picker and blocks until the user confirms or
// cancels. It returns the confirmed symbol, or ErrCanceled when the
// user dismissed the list.
func (p *Picker) Run(symbols []schema.FqnIndex) (schema.FqnIndex, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to pick from")
	}

	model := newPickerModel(symbols, p.title, p.noColor)

	// Use alternate screen buffer for proper clearing between renders
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if f, ok := p.out.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("picker failed: %w", err)
	}

	m, ok := final.(pickerModel)
	if !ok || m.canceled || m.choice == nil {
		return nil, ErrCanceled
	}
	return m.choice, nil
}
