// Package tui is the terminal chat client.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
	"github.com/zhouzirui/fund-faq/widget/internal/model/example"
	"github.com/zhouzirui/fund-faq/widget/internal/render"
	chatsvc "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
)

const (
	headerHeight = 2
	footerHeight = 5
)

// Config 是终端客户端的展示参数。
type Config struct {
	Title       string
	LoadingText string
	// Markdown 为 true 时用 glamour 渲染回答。
	Markdown   bool
	Hyperlinks bool
}

// replyMsg carries the outcome of one request back into the event loop.
type replyMsg struct {
	generation int
	resolved   chatsvc.Resolved
}

// Model is the bubbletea model of the chat client.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	asker    chatsvc.Asker
	examples example.Store
	cfg      Config

	state      chatsvc.State
	sessionID  string
	generation int

	input    textinput.Model
	viewport viewport.Model
	renderer *render.Terminal
	ready    bool
	width    int
	height   int
}

// New creates the model. Requests run under ctx and are cancelled when the user quits.
func New(ctx context.Context, asker chatsvc.Asker, examples example.Store, cfg Config) Model {
	if cfg.LoadingText == "" {
		cfg.LoadingText = "Loading..."
	}
	ctx, cancel := context.WithCancel(ctx)

	ti := textinput.New()
	ti.Placeholder = "Type your question... (Enter to send, Esc to quit)"
	ti.Prompt = "› "
	ti.CharLimit = 2000
	ti.Focus()

	m := Model{
		ctx:       ctx,
		cancel:    cancel,
		asker:     asker,
		examples:  examples,
		cfg:       cfg,
		sessionID: uuid.NewString(),
		input:     ti,
		viewport:  viewport.New(80, 20),
	}
	m.renderer = m.newRenderer(80)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Messages returns the current conversation.
func (m Model) Messages() []chat.Message {
	return m.state.Messages
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			return m.submit(m.input.Value())
		case "ctrl+l":
			m.state = chatsvc.State{}
			m.sessionID = uuid.NewString()
			m.generation++
			m.input.Reset()
			m.refresh()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		default:
			if n, ok := functionKey(key); ok {
				if ex, found := m.examples.At(n - 1); found {
					return m.submit(ex.Query)
				}
				return m, nil
			}
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = max(msg.Width, 20)
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		m.input.Width = max(msg.Width-8, 10)
		m.renderer = m.newRenderer(m.viewport.Width)
		m.ready = true
		m.refresh()
		return m, nil

	case replyMsg:
		// 清空对话后到达的旧回复直接丢弃。
		if msg.generation != m.generation {
			return m, nil
		}
		m.state = chatsvc.Reduce(m.state, msg.resolved)
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(query string) (tea.Model, tea.Cmd) {
	action, ok := chatsvc.Begin(query, m.cfg.LoadingText)
	if !ok {
		return m, nil
	}
	m.input.Reset()
	m.state = chatsvc.Reduce(m.state, action)
	m.refresh()
	return m, m.ask(action)
}

func (m Model) ask(action chatsvc.Submitted) tea.Cmd {
	ctx, asker := m.ctx, m.asker
	req := chat.Request{Message: action.User.Text, SessionID: m.sessionID}
	generation := m.generation
	placeholderID := action.Placeholder.ID
	return func() tea.Msg {
		reply, err := asker.Ask(ctx, req)
		return replyMsg{generation: generation, resolved: chatsvc.Complete(placeholderID, reply, err)}
	}
}

func (m *Model) refresh() {
	if len(m.state.Messages) == 0 {
		m.viewport.SetContent(m.welcome())
		m.viewport.GotoTop()
		return
	}
	m.viewport.SetContent(m.renderer.RenderAll(m.state.Messages))
	m.viewport.GotoBottom()
}

func (m Model) welcome() string {
	var b strings.Builder
	b.WriteString("Ask about HDFC Mutual Fund schemes, statements and charges.\n\n")
	for i, ex := range m.examples.List() {
		if i >= 9 {
			break
		}
		fmt.Fprintf(&b, "  F%d  %s\n", i+1, ex.Label)
	}
	return b.String()
}

func (m Model) newRenderer(width int) *render.Terminal {
	opts := []render.TerminalOption{
		render.WithWidth(width),
		render.WithHyperlinks(m.cfg.Hyperlinks),
	}
	if m.cfg.Markdown {
		if md, err := render.NewMarkdownRenderer(width); err == nil {
			opts = append(opts, render.WithMarkdown(md))
		}
	}
	return render.NewTerminal(opts...)
}

// View implements tea.Model.
func (m Model) View() string {
	title := m.cfg.Title
	if title == "" {
		title = "Chat"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(inputBorderStyle.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(m.hint()))
	return b.String()
}

func (m Model) hint() string {
	parts := []string{"enter send", "ctrl+l new chat", "pgup/pgdn scroll", "esc quit"}
	if n := len(m.examples.List()); n > 0 {
		parts = append([]string{fmt.Sprintf("f1-f%d examples", min(n, 9))}, parts...)
	}
	if pending := m.state.Pending(); pending > 0 {
		parts = append(parts, fmt.Sprintf("%d waiting", pending))
	}
	return strings.Join(parts, " · ")
}

// functionKey parses "f1".."f9".
func functionKey(key string) (int, bool) {
	if len(key) != 2 || key[0] != 'f' || key[1] < '1' || key[1] > '9' {
		return 0, false
	}
	return int(key[1] - '0'), true
}

// Run starts the full-screen client and blocks until the user quits.
func Run(ctx context.Context, asker chatsvc.Asker, examples example.Store, cfg Config) error {
	p := tea.NewProgram(New(ctx, asker, examples, cfg), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
