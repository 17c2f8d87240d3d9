package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hacksstv/encoder"
	"hacksstv/sstv"
)

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m, cmd
}

func TestModelTracksCurrentJob(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	at := time.Unix(0, 0)
	base := encoder.Event{Job: id, Protocol: sstv.Robot36, Lines: 240}
	ev := func(kind encoder.EventKind, line, pending int, when time.Time) tea.Msg {
		e := base
		e.Kind, e.Line, e.Pending, e.Time = kind, line, pending, when
		return eventMsg(e)
	}

	m, _ := send(t, New("hacksstv"),
		ev(encoder.EventQueued, 0, 1, at),
		ev(encoder.EventStarted, 0, 0, at),
		ev(encoder.EventLine, 120, 0, at),
	)
	require.NotNil(t, m.current)
	assert.Equal(t, 120, m.current.line)
	view := m.View()
	assert.Contains(t, view, "ON AIR")
	assert.Contains(t, view, "Robot 36")
	assert.Contains(t, view, "120/240")

	m, _ = send(t, m, ev(encoder.EventCompleted, 240, 0, at.Add(36*time.Second)))
	assert.Nil(t, m.current)
	require.Len(t, m.done, 1)
	view = m.View()
	assert.Contains(t, view, "idle")
	assert.Contains(t, view, "sent")
	assert.Contains(t, view, "36s")
}

func TestModelKeepsRecentHistory(t *testing.T) {
	t.Parallel()

	m := New("t")
	for range history + 3 {
		m, _ = send(t, m, eventMsg(encoder.Event{Kind: encoder.EventDiscarded, Job: uuid.New(), Protocol: sstv.PD50}))
	}
	assert.Len(t, m.done, history)

	m, _ = send(t, m, eventMsg(encoder.Event{Kind: encoder.EventFailed, Job: uuid.New(), Protocol: sstv.Martin2,
		Err: errors.New("sink closed")}))
	assert.Contains(t, m.View(), "failed: sink closed")
}

func TestModelQuits(t *testing.T) {
	t.Parallel()

	m, cmd := send(t, New("t"), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, m.Quitting())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	m, cmd = send(t, New("t"), finishedMsg{})
	assert.False(t, m.Quitting())
	require.NotNil(t, cmd)
	assert.NotContains(t, m.View(), "q to stop")
}

func TestProgressBar(t *testing.T) {
	t.Parallel()

	assert.Contains(t, progressBar(0, 0), "░")
	assert.NotContains(t, progressBar(10, 10), "░")
}
