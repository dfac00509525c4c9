package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/capture"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// stopTimeout bounds how long finalizing the audio device may take.
const stopTimeout = 10 * time.Second

// RecorderOptions configures the recording screen.
type RecorderOptions struct {
	Title   string
	Initial string
	// Changes switches to watch mode: the code comes from an external
	// editor instead of the built-in text area.
	Changes <-chan string
	Source  string
}

type (
	elapsedTickMsg time.Time
	fileChangedMsg string
	watchClosedMsg struct{}
	stoppedMsg     struct {
		s   *session.Session
		err error
	}
)

// RecorderModel is the Bubble Tea model for a live recording. The recorder
// must already be started.
type RecorderModel struct {
	rec      *capture.Recorder
	opts     RecorderOptions
	editor   textarea.Model
	view     viewport.Model
	width    int
	height   int
	ready    bool
	stopping bool
	status   string

	result *session.Session
	err    error
}

// NewRecorder creates the recording screen around a started recorder.
func NewRecorder(rec *capture.Recorder, opts RecorderOptions) RecorderModel {
	ta := textarea.New()
	ta.CharLimit = 0
	ta.ShowLineNumbers = true
	ta.Placeholder = "Start typing…"
	ta.SetValue(opts.Initial)
	ta.Focus()
	return RecorderModel{rec: rec, opts: opts, editor: ta}
}

func (m RecorderModel) watching() bool { return m.opts.Changes != nil }

// Result returns the sealed session and the stop error, if any.
func (m RecorderModel) Result() (*session.Session, error) { return m.result, m.err }

func elapsedTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return elapsedTickMsg(t) })
}

func waitForChange(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return fileChangedMsg(c)
	}
}

func (m RecorderModel) stop() tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		s, err := rec.Stop(ctx)
		return stoppedMsg{s: s, err: err}
	}
}

func (m RecorderModel) Init() tea.Cmd {
	cmds := []tea.Cmd{elapsedTick()}
	if m.watching() {
		cmds = append(cmds, waitForChange(m.opts.Changes))
	} else {
		cmds = append(cmds, textarea.Blink)
	}
	return tea.Batch(cmds...)
}

func (m RecorderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// title(1) + statusBar(1)
		h := max(m.height-2, 1)
		m.editor.SetWidth(m.width)
		m.editor.SetHeight(h)
		if !m.ready {
			m.view = viewport.New(m.width, h)
			m.view.SetContent(renderCode(m.rec.Content()))
		} else {
			m.view.Width = m.width
			m.view.Height = h
		}
		m.ready = true
		return m, nil

	case elapsedTickMsg:
		if m.stopping {
			return m, nil
		}
		return m, elapsedTick()

	case fileChangedMsg:
		m.rec.EditorChanged(string(msg))
		m.view.SetContent(renderCode(string(msg)))
		return m, waitForChange(m.opts.Changes)

	case watchClosedMsg:
		return m, nil

	case stoppedMsg:
		m.result, m.err = msg.s, msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if m.stopping {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+s", "ctrl+c":
			m.stopping = true
			m.status = "finalizing audio…"
			m.editor.Blur()
			return m, m.stop()
		case "ctrl+p":
			return m.togglePause()
		}
		if m.watching() {
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}
		if m.rec.State() != capture.Recording {
			return m, nil
		}
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		m.rec.EditorChanged(m.editor.Value())
		return m, cmd
	}

	if !m.watching() {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m RecorderModel) togglePause() (tea.Model, tea.Cmd) {
	switch m.rec.State() {
	case capture.Recording:
		if err := m.rec.Pause(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = ""
		m.editor.Blur()
		return m, nil
	case capture.Paused:
		if err := m.rec.Resume(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = ""
		return m, m.editor.Focus()
	}
	return m, nil
}

func (m RecorderModel) View() string {
	if !m.ready {
		return "Loading…"
	}

	badge := recBadgeStyle.Render("● REC")
	if m.rec.State() == capture.Paused {
		badge = pausedBadgeStyle.Render("❚❚ PAUSED")
	}
	name := m.opts.Title
	if m.watching() {
		name += "  " + dimStyle.Render("watching "+m.opts.Source)
	}
	title := lipgloss.JoinHorizontal(lipgloss.Top,
		badge,
		titleStyle.Width(max(m.width-lipgloss.Width(badge), 0)).Render(
			timeStyle.Render(clock(m.rec.Elapsed()))+"  "+name),
	)

	body := m.editor.View()
	if m.watching() {
		body = m.view.View()
	}

	left := "  ctrl+p pause/resume  ctrl+s stop"
	if m.status != "" {
		left = "  " + errorStyle.Render(m.status)
	}
	right := fmt.Sprintf("%d snapshots", m.rec.EventCount())
	return lipgloss.JoinVertical(lipgloss.Left, title, body, statusBar(m.width, left, right))
}

// RunRecorder shows the recording screen until the user stops, and returns
// the sealed session. The recorder must already be started.
func RunRecorder(rec *capture.Recorder, opts RecorderOptions) (*session.Session, error) {
	final, err := tea.NewProgram(NewRecorder(rec, opts), tea.WithAltScreen()).Run()
	if err != nil {
		if st := rec.State(); st == capture.Recording || st == capture.Paused {
			ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			s, stopErr := rec.Stop(ctx)
			if s != nil {
				return s, fmt.Errorf("terminal UI failed: %w", err)
			}
			return nil, stopErr
		}
		return nil, err
	}
	return final.(RecorderModel).Result()
}
