package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/playback"
)

const (
	frameInterval = time.Second / 30
	seekStep      = 5 * time.Second
)

type frameMsg time.Time

// PlayerModel is the Bubble Tea model for replaying a walkthrough.
type PlayerModel struct {
	eng    *playback.Engine
	title  string
	view   viewport.Model
	bar    progress.Model
	width  int
	height int
	ready  bool
	status string
}

// NewPlayer creates the playback screen for an open engine.
func NewPlayer(eng *playback.Engine, title string) PlayerModel {
	return PlayerModel{
		eng:   eng,
		title: title,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m PlayerModel) Init() tea.Cmd { return frame() }

func (m *PlayerModel) refresh() {
	if m.ready {
		m.view.SetContent(renderCode(m.eng.Displayed()))
	}
}

func (m *PlayerModel) seek(ms int64) {
	if err := m.eng.Seek(ms); err != nil {
		m.status = err.Error()
	}
	m.refresh()
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// title(1) + progress(1) + statusBar(1)
		h := max(m.height-3, 1)
		if !m.ready {
			m.view = viewport.New(m.width, h)
		} else {
			m.view.Width = m.width
			m.view.Height = h
		}
		m.bar.Width = max(m.width-18, 10)
		m.ready = true
		m.refresh()
		return m, nil

	case frameMsg:
		if _, changed := m.eng.Tick(); changed {
			m.refresh()
		}
		return m, frame()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if err := m.eng.Toggle(); err != nil {
				m.status = err.Error()
			}
			return m, nil
		case "s":
			if err := m.eng.Stop(); err != nil {
				m.status = err.Error()
			}
			m.refresh()
			return m, nil
		case "left", "h":
			m.seek(m.eng.Position() - seekStep.Milliseconds())
			return m, nil
		case "right", "l":
			m.seek(m.eng.Position() + seekStep.Milliseconds())
			return m, nil
		case "home":
			m.seek(0)
			return m, nil
		case "end":
			m.seek(m.eng.Duration())
			return m, nil
		}
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m PlayerModel) View() string {
	if !m.ready {
		return "Loading…"
	}

	badge := pausedBadgeStyle.Render("❚❚")
	if m.eng.Playing() {
		badge = playBadgeStyle.Render("▶")
	}
	title := lipgloss.JoinHorizontal(lipgloss.Top,
		badge,
		titleStyle.Width(max(m.width-lipgloss.Width(badge), 0)).Render(m.title),
	)

	pos := time.Duration(m.eng.Position()) * time.Millisecond
	total := time.Duration(m.eng.Duration()) * time.Millisecond
	progressRow := " " + m.bar.ViewAs(m.eng.Progress()) + "  " +
		timeStyle.Render(clock(pos)) + dimStyle.Render(" / "+clock(total))

	left := "  space play/pause  ←/→ 5s  home/end  s stop  q quit"
	if err := m.eng.Err(); err != nil {
		left = "  " + errorStyle.Render(err.Error())
	} else if m.status != "" {
		left = "  " + errorStyle.Render(m.status)
	}
	pct := fmt.Sprintf("%3.0f%%", m.view.ScrollPercent()*100)

	return lipgloss.JoinVertical(lipgloss.Left, title, m.view.View(), progressRow, statusBar(m.width, left, pct))
}

// RunPlayer shows the playback screen until the user quits.
func RunPlayer(eng *playback.Engine, title string) error {
	_, err := tea.NewProgram(NewPlayer(eng, title), tea.WithAltScreen()).Run()
	return err
}
