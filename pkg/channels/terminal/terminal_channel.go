// Package terminal is the interactive terminal front-end: a prompt that
// blocks with a spinner while a turn runs.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"graddirector/pkg/api"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// ChannelID is the gateway id of the terminal channel.
const ChannelID = "terminal"

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd166")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff71ce"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8c8d"))
)

type (
	replyMsg    string
	workingMsg  bool
	turnDoneMsg struct{}
)

// TerminalChannel runs a bubbletea program on the process terminal.
type TerminalChannel struct {
	in      io.Reader
	out     io.Writer
	session api.SessionContext

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTerminalChannel creates the channel; nil streams mean stdin/stdout.
func NewTerminalChannel(in io.Reader, out io.Writer) *TerminalChannel {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "you"
	}
	id := uuid.NewString()
	return &TerminalChannel{
		in:  in,
		out: out,
		session: api.SessionContext{
			ChannelID: ChannelID,
			UserID:    user,
			ChatID:    id,
			Username:  user,
		},
		done: make(chan struct{}),
	}
}

func (c *TerminalChannel) ID() string { return ChannelID }

// Done is closed when the user quits the prompt.
func (c *TerminalChannel) Done() <-chan struct{} { return c.done }

func (c *TerminalChannel) Start(cctx api.ChannelContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.program != nil {
		return errors.New("terminal already started")
	}
	c.program = tea.NewProgram(newModel(cctx, c.session), tea.WithInput(c.in), tea.WithOutput(c.out))
	go func() {
		defer close(c.done)
		if _, err := c.program.Run(); err != nil {
			slog.Error("Terminal UI stopped", "error", err)
		}
	}()
	return nil
}

func (c *TerminalChannel) Stop() error {
	c.mu.Lock()
	p := c.program
	c.mu.Unlock()
	if p == nil {
		return nil
	}
	p.Quit()
	<-c.done
	return nil
}

func (c *TerminalChannel) send(msg tea.Msg) error {
	c.mu.Lock()
	p := c.program
	c.mu.Unlock()
	if p == nil {
		return errors.New("terminal not started")
	}
	select {
	case <-c.done:
		return errors.New("terminal closed")
	default:
	}
	p.Send(msg)
	return nil
}

func (c *TerminalChannel) Send(_ api.SessionContext, message string) error {
	return c.send(replyMsg(message))
}

// SendSignal toggles the spinner.
func (c *TerminalChannel) SendSignal(_ api.SessionContext, signal string) error {
	switch signal {
	case api.SignalThinking:
		return c.send(workingMsg(true))
	case api.SignalDone:
		return c.send(workingMsg(false))
	}
	return nil
}

// model is the bubbletea state. Input is ignored while a turn runs.
type model struct {
	cctx    api.ChannelContext
	session api.SessionContext
	input   textinput.Model
	spinner spinner.Model
	working bool
}

func newModel(cctx api.ChannelContext, session api.SessionContext) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Ask about VCU CS graduate programs (/clear to reset, ctrl+c to quit)"
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	return model{cctx: cctx, session: session, input: input, spinner: sp}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.Println(helpStyle.Render("VCU CS Grad Director. Type a question and press enter.")),
	)
}

// submit runs the turn off the event loop; the reply arrives as replyMsg.
func (m model) submit(text string) tea.Cmd {
	cctx, session := m.cctx, m.session
	return func() tea.Msg {
		cctx.OnMessage(ChannelID, &api.UnifiedMessage{Session: session, Content: text})
		return turnDoneMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.working {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if text == "/quit" || text == "/exit" {
				return m, tea.Quit
			}
			m.input.Reset()
			m.working = true
			return m, tea.Batch(
				tea.Println(userStyle.Render("You: ")+text),
				m.spinner.Tick,
				m.submit(text),
			)
		}
		if m.working {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case replyMsg:
		style := assistantStyle
		if strings.HasPrefix(string(msg), "❌") {
			style = errorStyle
		}
		return m, tea.Println(style.Render("Grad Director: ") + string(msg) + "\n")

	case workingMsg:
		m.working = bool(msg)
		if m.working {
			return m, m.spinner.Tick
		}
		return m, nil

	case turnDoneMsg:
		m.working = false
		return m, nil

	case spinner.TickMsg:
		if !m.working {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.working {
		return fmt.Sprintf("%s %s\n", m.spinner.View(), helpStyle.Render("Thinking..."))
	}
	return m.input.View() + "\n"
}
