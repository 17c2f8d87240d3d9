// Package ui is the terminal progress screen.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hacksstv/encoder"
)

const (
	barWidth = 40
	history  = 6
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onAirStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("196")).Padding(0, 1)
	fullStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

type eventMsg encoder.Event

// finishedMsg tells the model the encoder has stopped.
type finishedMsg struct{}

type job struct {
	id      encoder.JobID
	mode    string
	state   encoder.EventKind
	line    int
	lines   int
	err     error
	started time.Time
	ended   time.Time
}

// Model is the bubbletea model. Feed it through Listener.
type Model struct {
	title    string
	current  *job
	done     []job
	pending  int
	finished bool
	quitting bool
}

// New returns a model showing title above the progress display.
func New(title string) Model {
	return Model{title: title}
}

// Listener forwards encoder events to p.
func Listener(p *tea.Program) encoder.Listener {
	return func(ev encoder.Event) { p.Send(eventMsg(ev)) }
}

// Finished makes p show its final state and exit.
func Finished(p *tea.Program) {
	p.Send(finishedMsg{})
}

// Quitting reports whether the user asked to stop.
func (m Model) Quitting() bool { return m.quitting }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case finishedMsg:
		m.finished = true
		return m, tea.Quit
	case eventMsg:
		m.apply(encoder.Event(msg))
	}
	return m, nil
}

func (m *Model) apply(ev encoder.Event) {
	m.pending = ev.Pending
	switch ev.Kind {
	case encoder.EventQueued:
		return
	case encoder.EventStarted:
		m.current = &job{id: ev.Job, mode: ev.Protocol.String(), state: ev.Kind, lines: ev.Lines, started: ev.Time}
		return
	}

	j := m.current
	if j == nil || j.id != ev.Job {
		j = &job{id: ev.Job, mode: ev.Protocol.String(), lines: ev.Lines}
	}
	j.state = ev.Kind
	j.line = ev.Line
	if ev.Lines > 0 {
		j.lines = ev.Lines
	}
	if !ev.Kind.Terminal() {
		return
	}
	j.err = ev.Err
	j.ended = ev.Time
	m.done = append(m.done, *j)
	if len(m.done) > history {
		m.done = m.done[len(m.done)-history:]
	}
	if j == m.current {
		m.current = nil
	}
}

func progressBar(line, lines int) string {
	filled := 0
	if lines > 0 {
		filled = min(line*barWidth/lines, barWidth)
	}
	return fullStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", barWidth-filled))
}

func (j job) result() string {
	switch j.state {
	case encoder.EventCompleted:
		return okStyle.Render("sent")
	case encoder.EventFailed:
		if j.err == nil {
			return errStyle.Render("failed")
		}
		return errStyle.Render("failed: " + j.err.Error())
	default:
		return dimStyle.Render(j.state.String())
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if j := m.current; j != nil {
		b.WriteString(onAirStyle.Render("ON AIR"))
		fmt.Fprintf(&b, " %s\n", j.mode)
		b.WriteString(progressBar(j.line, j.lines))
		fmt.Fprintf(&b, " %d/%d\n", j.line, j.lines)
	} else {
		b.WriteString(dimStyle.Render("idle"))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "queued: %d\n", m.pending)

	if len(m.done) > 0 {
		var rows []string
		for i := len(m.done) - 1; i >= 0; i-- {
			j := m.done[i]
			took := ""
			if !j.started.IsZero() && !j.ended.IsZero() {
				took = j.ended.Sub(j.started).Round(time.Second).String()
			}
			rows = append(rows, fmt.Sprintf("%-14s %-6s %s", j.mode, took, j.result()))
		}
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
		b.WriteString("\n")
	}

	if !m.finished && !m.quitting {
		b.WriteString(dimStyle.Render("\nq to stop"))
		b.WriteString("\n")
	}
	return b.String()
}
