package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// errPickCancelled is returned when the user leaves the picker without choosing.
var errPickCancelled = errors.New("no relation kind chosen")

var (
	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
)

type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Quit   key.Binding
}

var pickerKeys = pickerKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Choose: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "cancel"),
	),
}

func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Choose, k.Quit}
}

func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// kindPicker asks which relation an ambiguous connection should become.
type kindPicker struct {
	title      string
	candidates []schema.EdgeKind
	cursor     int
	chosen     schema.EdgeKind
	cancelled  bool
	help       help.Model
	keys       pickerKeyMap
}

func newKindPicker(title string, candidates []schema.EdgeKind) kindPicker {
	return kindPicker{
		title:      title,
		candidates: candidates,
		help:       help.New(),
		keys:       pickerKeys,
	}
}

func (m kindPicker) Init() tea.Cmd {
	return nil
}

func (m kindPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.candidates)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Choose):
			m.chosen = m.candidates[m.cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m kindPicker) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	for i, k := range m.candidates {
		line := string(k)
		if d, err := schema.Describe(k); err == nil {
			line = fmt.Sprintf("%-15s %s", k, dimStyle.Render(d.Label))
		}
		if i == m.cursor {
			b.WriteString(cursorStyle.Render(line))
		} else {
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}

// pickKind runs the picker on the given terminal streams.
func pickKind(in io.Reader, out io.Writer, title string, candidates []schema.EdgeKind) (schema.EdgeKind, error) {
	p := tea.NewProgram(newKindPicker(title, candidates), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("running picker: %w", err)
	}
	m := final.(kindPicker)
	if m.cancelled || m.chosen == "" {
		return "", errPickCancelled
	}
	return m.chosen, nil
}
