package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/improbable"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newBrowseCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <path>",
		Short: "Browse the entities of a snapshot interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("browse needs a terminal; use dump instead")
			}
			p := tea.NewProgram(newBrowseModel(rootOpts.reg, args[0]), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
}

type browseState int

const (
	stateList browseState = iota
	stateFilter
	stateDetail
)

type browseModel struct {
	err      error
	reg      *component.Registry
	path     string
	entities []entityDump
	visible  []int
	filter   textinput.Model
	selected int
	state    browseState
	loaded   bool
}

type loadedMsg struct {
	err      error
	entities []entityDump
}

func newBrowseModel(reg *component.Registry, path string) *browseModel {
	filter := textinput.New()
	filter.Prompt = "filter: "
	filter.Placeholder = "entity type or component"
	filter.Width = 40
	return &browseModel{
		reg:    reg,
		path:   path,
		filter: filter,
		state:  stateList,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return m.load
}

func (m *browseModel) load() tea.Msg {
	entities, err := readSnapshot(m.reg, m.path)
	return loadedMsg{entities: entities, err: err}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateList {
				m.state = stateFilter
				return m, m.filter.Focus()
			}

		case "enter":
			if m.state == stateList && len(m.visible) > 0 {
				m.state = stateDetail
			}

		case "esc":
			m.state = stateList
		}

	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.entities = msg.entities
		m.applyFilter()
	}

	return m, nil
}

func (m *browseModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter", "esc":
		m.filter.Blur()
		m.state = stateList
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *browseModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for i, e := range m.entities {
		if query == "" || matches(e, query) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func matches(e entityDump, query string) bool {
	if strings.Contains(strconv.FormatInt(e.ID, 10), query) {
		return true
	}
	if strings.Contains(strings.ToLower(entityType(e)), query) {
		return true
	}
	for _, c := range e.Components {
		if strings.Contains(strings.ToLower(c.Name), query) {
			return true
		}
	}
	return false
}

func entityType(e entityDump) string {
	for _, c := range e.Components {
		if md, ok := c.Value.(improbable.Metadata); ok {
			return md.EntityType
		}
	}
	return ""
}

func (m *browseModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Loading snapshot..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Snapshot"))
	b.WriteString(" ")
	b.WriteString(m.path)
	b.WriteString(fmt.Sprintf(" (%d entities)\n\n", len(m.entities)))

	switch m.state {
	case stateList, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		if len(m.visible) == 0 {
			b.WriteString("No matching entities.\n")
		}
		for i, idx := range m.visible {
			line := m.formatEntity(m.entities[idx])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateFilter {
			b.WriteString(helpStyle.Render("enter apply • esc done"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter show • / filter • q quit"))
		}

	case stateDetail:
		e := m.entities[m.visible[m.selected]]
		b.WriteString(fmt.Sprintf("Entity %s\n\n", idStyle.Render(strconv.FormatInt(e.ID, 10))))
		for _, c := range e.Components {
			b.WriteString(nameStyle.Render(c.Name))
			b.WriteString(" ")
			b.WriteString(idStyle.Render(fmt.Sprintf("#%d", c.ID)))
			b.WriteString("\n")
			switch {
			case c.Error != "":
				b.WriteString("    " + errorStyle.Render(c.Error) + "\n")
			case c.Value != nil:
				b.WriteString(fmt.Sprintf("    %+v\n", c.Value))
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
	}

	return b.String()
}

func (m *browseModel) formatEntity(e entityDump) string {
	label := idStyle.Render(strconv.FormatInt(e.ID, 10))
	if t := entityType(e); t != "" {
		label += " " + nameStyle.Render(t)
	}
	return fmt.Sprintf("%s  %d components", label, len(e.Components))
}
