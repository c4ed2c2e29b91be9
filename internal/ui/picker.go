package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codenav/symdex/internal/schema"
)

// item adapts an index entry to the list item interface.
type item struct {
	sym schema.FqnIndex
}

// Title implements list.DefaultItem.
func (i item) Title() string { return i.sym.FQN() }

// Description implements list.DefaultItem.
func (i item) Description() string {
	desc := i.sym.Kind().Label()
	if f := i.sym.SourceFile(); f != nil && f.URI != "" {
		desc += "  " + f.URI
	}
	return desc
}

// FilterValue implements list.Item. Filtering matches on the fqn.
func (i item) FilterValue() string { return i.sym.FQN() }

// pickerModel is the bubbletea model for the symbol picker.
type pickerModel struct {
	list     list.Model
	choice   schema.FqnIndex
	canceled bool
	quitting bool
}

// newPickerModel creates a picker model over the given symbols,
// ordered as ranked by the search.
func newPickerModel(symbols []schema.FqnIndex, title string, noColor bool) pickerModel {
	items := make([]list.Item, 0, len(symbols))
	for _, sym := range symbols {
		items = append(items, item{sym: sym})
	}

	l := list.New(items, newItemDelegate(noColor), defaultWidth, defaultHeight)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Styles.Title = titleStyle(noColor)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}

	return pickerModel{list: l}
}

// Init implements tea.Model.
func (m pickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.canceled = true
			m.quitting = true
			return m, tea.Quit
		}

		// While the filter input is focused, keys belong to the list.
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if it, ok := m.list.SelectedItem().(item); ok {
				m.choice = it.sym
			}
			m.quitting = true
			return m, tea.Quit

		case "esc":
			// First esc clears an applied filter, second one cancels.
			if m.list.FilterState() == list.FilterApplied {
				break
			}
			m.canceled = true
			m.quitting = true
			return m, tea.Quit

		case "q":
			m.canceled = true
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}
	return docStyle.Render(m.list.View())
}
