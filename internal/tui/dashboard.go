// Package tui provides an optional live-updating terminal dashboard for a
// fuzzing run, shown when --tui is passed. The supervisor's stats line
// through slog is still written either way.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Snapshot is the set of numbers the dashboard renders at any moment.
type Snapshot struct {
	TotalExecutions int64
	TotalCoverage   int64
	CorpusLength    int
	ExecsPerSecond  int
}

// tickMsg drives the periodic redraw.
type tickMsg time.Time

// SnapshotMsg pushes a fresh Snapshot into the model from outside.
type SnapshotMsg Snapshot

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle = lipgloss.NewStyle().Bold(true)
)

// Model is the bubbletea model backing the dashboard.
type Model struct {
	name string
	snap Snapshot
}

// NewModel returns a dashboard model for the named target.
func NewModel(name string) Model {
	return Model{name: name}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		if v.String() == "ctrl+c" || v.String() == "q" {
			return m, tea.Quit
		}
	case SnapshotMsg:
		m.snap = Snapshot(v)
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	row := func(label string, value interface{}) string {
		return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(fmt.Sprint(value)))
	}
	out := titleStyle.Render("corefuzz — "+m.name) + "\n\n"
	out += row("executions", m.snap.TotalExecutions)
	out += row("coverage", m.snap.TotalCoverage)
	out += row("corpus", m.snap.CorpusLength)
	out += row("exec/s", m.snap.ExecsPerSecond)
	out += "\n" + labelStyle.Render("press q to quit")
	return out
}
