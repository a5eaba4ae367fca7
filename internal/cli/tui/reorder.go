// Package tui implements the interactive gallery reorder view.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smelek/gallerysync/internal/gallery"
	"github.com/smelek/gallerysync/internal/models"
)

// ReorderKeyMap defines key bindings for the reorder view
type ReorderKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Grab   key.Binding
	Cancel key.Binding
	Edit   key.Binding
	Quit   key.Binding
}

var ReorderKeys = ReorderKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Grab: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "grab/drop"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel drag"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "toggle edit mode"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	grabbedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// noticeMsg carries an engine notice into the update loop.
type noticeMsg models.Notice

// ChannelNotifier bridges engine notices to the bubbletea program. It never
// blocks: notices overflowing the buffer are dropped.
type ChannelNotifier struct {
	ch chan models.Notice
}

// NewChannelNotifier creates a notifier with a small buffer.
func NewChannelNotifier() *ChannelNotifier {
	return &ChannelNotifier{ch: make(chan models.Notice, 16)}
}

// Notify implements gallery.Notifier.
func (n *ChannelNotifier) Notify(notice models.Notice) {
	select {
	case n.ch <- notice:
	default:
	}
}

func (n *ChannelNotifier) wait() tea.Msg {
	return noticeMsg(<-n.ch)
}

// Model is the reorder view. The cursor walks the list; grabbing an item
// starts a drag session, moving the cursor hovers, dropping commits the move
// through the engine.
type Model struct {
	engine  *gallery.Engine
	session *gallery.ReorderSession
	notices *ChannelNotifier

	cursor     int
	message    string
	messageErr bool
}

// NewModel creates a reorder model over a loaded engine. The notifier must be
// the one the engine was built with.
func NewModel(engine *gallery.Engine, notices *ChannelNotifier) *Model {
	return &Model{
		engine:  engine,
		session: gallery.NewReorderSession(),
		notices: notices,
	}
}

// Init starts listening for engine notices
func (m *Model) Init() tea.Cmd {
	return m.notices.wait
}

// Update handles messages for the reorder view
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case noticeMsg:
		m.message = msg.Message
		m.messageErr = msg.Level == models.NoticeError
		return m, m.notices.wait

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, ReorderKeys.Quit):
			// Abandon any in-progress drag and let commits settle.
			m.session.DragLeave()
			m.session.DragEnd(nil)
			m.engine.Wait()
			return m, tea.Quit

		case key.Matches(msg, ReorderKeys.Up):
			m.moveCursor(-1)
			return m, nil

		case key.Matches(msg, ReorderKeys.Down):
			m.moveCursor(1)
			return m, nil

		case key.Matches(msg, ReorderKeys.Grab):
			m.toggleGrab()
			return m, nil

		case key.Matches(msg, ReorderKeys.Cancel):
			if m.session.Active() {
				m.session.DragLeave()
				m.session.DragEnd(nil)
				m.message = "Drag cancelled"
				m.messageErr = false
			}
			return m, nil

		case key.Matches(msg, ReorderKeys.Edit):
			m.engine.ToggleEditMode()
			return m, nil
		}
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	n := len(m.engine.Items())
	if n == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.session.Active() {
		m.session.DragOver(m.cursor)
	}
}

func (m *Model) toggleGrab() {
	if len(m.engine.Items()) == 0 {
		return
	}

	if !m.session.Active() {
		if !m.engine.IsEditable() {
			m.message = "You do not have permission to edit this gallery"
			m.messageErr = true
			return
		}
		m.session.DragStart(m.cursor)
		return
	}

	m.session.DragOver(m.cursor)
	m.session.DragEnd(func(from, to int) {
		if err := m.engine.ApplyMove(from, to); err != nil {
			m.message = err.Error()
			m.messageErr = true
		}
	})
}

// View renders the reorder view
func (m *Model) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Gallery '%s'", m.engine.Key())
	if m.engine.IsAdmin() {
		title += "  [admin]"
	} else if m.engine.IsEditable() {
		title += "  [edit mode]"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	items := m.engine.Items()
	if len(items) == 0 {
		b.WriteString(dimStyle.Render("No items in this gallery."))
		b.WriteString("\n")
	}

	for i, it := range items {
		line := fmt.Sprintf("%3d  %s  %s", i, shortID(it.ID), it.URL)
		if it.IsBefore {
			line += "  [before]"
		}
		if it.IsAfter {
			line += "  [after]"
		}

		switch {
		case m.session.Active() && m.session.Source() == i:
			b.WriteString(grabbedStyle.Render("⇅ " + line))
		case i == m.cursor:
			b.WriteString(cursorStyle.Render("> " + line))
		default:
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.message != "" {
		if m.messageErr {
			b.WriteString(errorStyle.Render(m.message))
		} else {
			b.WriteString(successStyle.Render(m.message))
		}
		b.WriteString("\n")
	}

	help := "j/k move · space grab/drop · esc cancel · e edit mode · q quit"
	b.WriteString(dimStyle.Render(help))
	b.WriteString("\n")

	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
