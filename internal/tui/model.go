// Package tui is the BubbleTea chat window attached to a running daemon.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"setsuna/internal/bus"
	"setsuna/internal/history"
	"setsuna/internal/ipc"
)

var (
	youStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	setsunaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type line struct {
	who  string
	text string
	at   time.Time
}

type busEventMsg bus.Event

type busGoneMsg struct{ err error }

type ctlResultMsg struct {
	resp ipc.Response
	err  error
}

// Model is the chat window model.
type Model struct {
	socketPath string
	client     *bus.Client

	viewport viewport.Model
	input    textinput.Model
	keys     KeyMap

	lines  []line
	state  string
	status string
	width  int
	height int
	ready  bool
}

// New builds the chat model. Pass the daemon's recent history for the
// initial backlog; client streams live events.
func New(socketPath string, client *bus.Client, backlog []history.Entry) Model {
	input := textinput.New()
	input.Placeholder = "話しかけてみよう…"
	input.Focus()

	m := Model{
		socketPath: socketPath,
		client:     client,
		input:      input,
		keys:       DefaultKeyMap(),
		state:      "idle",
	}

	for _, e := range backlog {
		who := "you"
		if e.Role == history.RoleAssistant {
			who = "setsuna"
		}
		m.lines = append(m.lines, line{who: who, text: e.Content, at: e.Time()})
	}
	return m
}

// Init starts the bus read loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitEvent())
}

func (m Model) waitEvent() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ev, err := client.Read()
		if err != nil {
			return busGoneMsg{err: err}
		}
		return busEventMsg(ev)
	}
}

func (m Model) sendCtl(req ipc.Request) tea.Cmd {
	socketPath := m.socketPath
	return func() tea.Msg {
		resp, err := ipc.Send(socketPath, req)
		return ctlResultMsg{resp: resp, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		vpHeight := msg.Height - 4
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.refreshViewport()
		return m, nil

	case busEventMsg:
		m.applyEvent(bus.Event(msg))
		return m, m.waitEvent()

	case busGoneMsg:
		m.status = "event feed lost: " + msg.err.Error()
		return m, nil

	case ctlResultMsg:
		if msg.err != nil {
			m.status = "daemon unreachable: " + msg.err.Error()
		} else if !msg.resp.OK {
			m.status = msg.resp.Detail
		} else {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Send):
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.sendCtl(ipc.Request{Cmd: ipc.CmdSay, Text: text})

		case key.Matches(msg, m.keys.Talk):
			return m, m.sendCtl(ipc.Request{Cmd: ipc.CmdTrigger})

		case key.Matches(msg, m.keys.Cancel):
			return m, m.sendCtl(ipc.Request{Cmd: ipc.CmdCancel})

		case key.Matches(msg, m.keys.Clear):
			m.lines = nil
			m.refreshViewport()
			return m, nil
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) applyEvent(ev bus.Event) {
	switch ev.Kind {
	case bus.KindState:
		m.state = ev.Text
	case bus.KindYou:
		m.lines = append(m.lines, line{who: "you", text: ev.Text, at: ev.At})
	case bus.KindSetsuna:
		m.lines = append(m.lines, line{who: "setsuna", text: ev.Text, at: ev.At})
	case bus.KindError:
		m.lines = append(m.lines, line{who: "error", text: ev.Text, at: ev.At})
	}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	var b strings.Builder
	for _, l := range m.lines {
		stamp := faintStyle.Render(humanize.Time(l.at))
		switch l.who {
		case "you":
			b.WriteString(youStyle.Render("あなた") + " " + stamp + "\n" + l.text + "\n\n")
		case "setsuna":
			b.WriteString(setsunaStyle.Render("せつな") + " " + stamp + "\n" + l.text + "\n\n")
		default:
			b.WriteString(errStyle.Render("⚠ "+l.text) + "\n\n")
		}
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// View renders the chat window.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	status := statusStyle.Render("● " + m.state)
	if m.status != "" {
		status += "  " + errStyle.Render(m.status)
	}
	help := faintStyle.Render("enter send · ctrl+t voice · ctrl+g cancel · ctrl+c quit")

	return fmt.Sprintf("%s\n%s\n%s  %s",
		m.viewport.View(),
		m.input.View(),
		status,
		help,
	)
}
