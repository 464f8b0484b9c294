// Package tui implements the interactive document chat interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docchat/internal/domain"
)

// ChatPort is the TUI-facing subset of the service.
type ChatPort interface {
	Answer(ctx context.Context, apiKey, sessionID, question string, k int) (<-chan domain.Fragment, error)
	SessionInfo(id string) (*domain.Session, error)
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	service   ChatPort
	apiKey    string
	sessionID string
	topK      int

	input    textinput.Model
	viewport viewport.Model

	transcript []string
	answering  bool
	cancel     context.CancelFunc
	status     string
	header     string
	preview    string
	ready      bool
}

type streamStartedMsg struct{ ch <-chan domain.Fragment }

type fragmentMsg struct {
	text string
	ch   <-chan domain.Fragment
}

type streamDoneMsg struct{}

type streamErrMsg struct{ err error }

// New creates a chat model bound to an ingested session.
func New(service ChatPort, apiKey string, sess *domain.Session, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the document"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:   service,
		apiKey:    apiKey,
		sessionID: sess.ID,
		topK:      topK,
		input:     ti,
		viewport:  vp,
		header:    fmt.Sprintf("%s — %d chunks", sess.SourceName, sess.ChunkCount()),
		preview:   sess.Preview,
		status:    "Indexed. Ask away.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + preview, status, input box, spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEsc && m.answering {
			m.finishAnswer("Canceled.")
			return m, nil
		}
		if msg.String() == "enter" && !m.answering {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				break
			}
			m.input.SetValue("")
			m.transcript = append(m.transcript, youStyle.Render("You: ")+q, botStyle.Render("Assistant: "))
			m.answering = true
			m.status = "Thinking..."
			m.refresh()
			var ctx context.Context
			ctx, m.cancel = context.WithCancel(context.Background())
			return m, m.startAnswer(ctx, q)
		}

	case streamStartedMsg:
		m.status = "Streaming answer..."
		return m, waitForFragment(msg.ch)

	case fragmentMsg:
		m.transcript[len(m.transcript)-1] += msg.text
		m.refresh()
		return m, waitForFragment(msg.ch)

	case streamDoneMsg:
		m.finishAnswer("Done. Ask another question.")
		return m, nil

	case streamErrMsg:
		m.finishAnswer("Error: " + msg.err.Error())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(m.header)
	preview := previewStyle.Render(m.preview)
	transcript := transcriptStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + preview + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) startAnswer(ctx context.Context, question string) tea.Cmd {
	service, key, id, k := m.service, m.apiKey, m.sessionID, m.topK
	return func() tea.Msg {
		ch, err := service.Answer(ctx, key, id, question, k)
		if err != nil {
			return streamErrMsg{err}
		}
		return streamStartedMsg{ch}
	}
}

func waitForFragment(ch <-chan domain.Fragment) tea.Cmd {
	return func() tea.Msg {
		frag, ok := <-ch
		if !ok {
			return streamDoneMsg{}
		}
		if frag.Err != nil {
			return streamErrMsg{frag.Err}
		}
		return fragmentMsg{text: frag.Text, ch: ch}
	}
}

func (m *Model) finishAnswer(status string) {
	m.answering = false
	m.status = status
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No questions yet."
	}
	return strings.Join(m.transcript, "\n")
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	previewStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	youStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
