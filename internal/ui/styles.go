package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/codenav/symdex/internal/output"
)

// Initial dimensions used until the first WindowSizeMsg arrives.
const (
	defaultWidth  = 80
	defaultHeight = 24
)

// docStyle frames the list within the terminal.
var docStyle = lipgloss.NewStyle().Margin(1, 2)

// titleStyle renders the list title.
func titleStyle(noColor bool) lipgloss.Style {
	if noColor {
		return lipgloss.NewStyle().Bold(true)
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(output.ColorLime))
}

// newItemDelegate builds the two-line item renderer. The selected
// entry carries the lime accent, descriptions stay gray.
func newItemDelegate(noColor bool) list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	if noColor {
		base := lipgloss.NewStyle().Padding(0, 0, 0, 2)
		selected := lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			Padding(0, 0, 0, 1)
		d.Styles.NormalTitle = base
		d.Styles.NormalDesc = base
		d.Styles.SelectedTitle = selected
		d.Styles.SelectedDesc = selected
		d.Styles.DimmedTitle = base
		d.Styles.DimmedDesc = base
		d.Styles.FilterMatch = lipgloss.NewStyle().Underline(true)
		return d
	}

	d.Styles.SelectedTitle = d.Styles.SelectedTitle.
		Foreground(lipgloss.Color(output.ColorLime)).
		BorderLeftForeground(lipgloss.Color(output.ColorLime))
	d.Styles.SelectedDesc = d.Styles.SelectedDesc.
		Foreground(lipgloss.Color(output.ColorLimeDim)).
		BorderLeftForeground(lipgloss.Color(output.ColorLime))
	d.Styles.NormalDesc = d.Styles.NormalDesc.
		Foreground(lipgloss.Color(output.ColorGray))
	return d
}
