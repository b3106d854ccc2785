package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"intentrouter/internal/domain"
	"intentrouter/internal/service"
)

// RouterPort is the TUI-facing subset of the router service.
type RouterPort interface {
	Route(ctx context.Context, text, role string) (*service.Routed, error)
	Warm() bool
}

type routedMsg struct {
	text   string
	role   string
	routed *service.Routed
	err    error
}

// Model is the Bubble Tea model for the interactive console.
type Model struct {
	ctx      context.Context
	service  RouterPort
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	roles    []string
	roleIdx  int
	routed   *service.Routed
	lastText string
	status   string
	cursor   int
	busy     bool
	ready    bool
}

// New creates the console. roles are cycled with Tab; the empty string
// means no role. Classifications run under ctx, each bounded by timeout.
func New(ctx context.Context, svc RouterPort, roles []string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	if len(roles) == 0 {
		roles = []string{""}
	}
	return Model{
		ctx:      ctx,
		service:  svc,
		timeout:  timeout,
		input:    ti,
		viewport: viewport.New(0, 0),
		roles:    roles,
		status:   "Enter classifies, Tab switches role, ↑/↓ browse decisions.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) role() string { return m.roles[m.roleIdx] }

func (m Model) classify(text string) tea.Cmd {
	ctx, svc, role, timeout := m.ctx, m.service, m.role(), m.timeout
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		routed, err := svc.Route(ctx, text, role)
		return routedMsg{text: text, role: role, routed: routed, err: err}
	}
}

// Update handles key, window and classification events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header lines, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderDecisions())
		return m, nil
	case routedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.routed = nil
		} else {
			m.routed = msg.routed
			m.cursor = 0
			m.lastText = msg.text
			m.status = fmt.Sprintf("%d decision(s) via %s in %s", len(msg.routed.Decisions), msg.routed.Path, msg.routed.Took.Round(time.Millisecond))
		}
		m.viewport.SetContent(m.renderDecisions())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" && !m.busy {
				m.busy = true
				m.status = "Classifying..."
				return m, m.classify(text)
			}
		case "tab":
			m.roleIdx = (m.roleIdx + 1) % len(m.roles)
			return m, nil
		case "down":
			if n := m.decisionCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderDecisions())
				return m, nil
			}
		case "up":
			if n := m.decisionCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderDecisions())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) decisionCount() int {
	if m.routed == nil {
		return 0
	}
	return len(m.routed.Decisions)
}

// View renders the console.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Intent Router")
	info := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		fmt.Sprintf("role: %s   profiles: %s", displayRole(m.role()), warmth(m.service.Warm())))
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + info + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderDecisions() string {
	if m.decisionCount() == 0 {
		return "No decisions yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%q\n\n", m.lastText)
	for i, d := range m.routed.Decisions {
		line := fmt.Sprintf("%-22s %.3f %s", d.Category, d.Score, bar(d.Score, 20))
		if d.Category == domain.FallbackCategory && len(m.routed.Decisions) == 1 {
			line += "  (fallback)"
		}
		if i == m.cursor {
			line = highlightStyle.Render("› " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func bar(score float64, width int) string {
	n := int(score*float64(width) + 0.5)
	n = min(max(n, 0), width)
	return strings.Repeat("█", n) + strings.Repeat("·", width-n)
}

func displayRole(r string) string {
	if r == "" {
		return "(none)"
	}
	return r
}

func warmth(warm bool) string {
	if warm {
		return "warm"
	}
	return "cold"
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
