package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
)

// Styles 是终端渲染使用的配色。
type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Loading   lipgloss.Style
	Error     lipgloss.Style
	Link      lipgloss.Style
	Label     lipgloss.Style
}

// DefaultStyles returns the palette used by the terminal client.
func DefaultStyles() Styles {
	return Styles{
		User:      lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		Assistant: lipgloss.NewStyle(),
		Loading:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
		Link:      lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Underline(true),
		Label:     lipgloss.NewStyle().Bold(true),
	}
}

// Terminal renders messages as terminal text.
type Terminal struct {
	width      int
	styles     Styles
	hyperlinks bool
	markdown   *glamour.TermRenderer
}

// TerminalOption customises a Terminal.
type TerminalOption func(*Terminal)

// WithWidth wraps text at width columns. Zero disables wrapping.
func WithWidth(width int) TerminalOption {
	return func(t *Terminal) { t.width = width }
}

// WithStyles overrides the palette.
func WithStyles(styles Styles) TerminalOption {
	return func(t *Terminal) { t.styles = styles }
}

// WithHyperlinks 使用 OSC 8 转义序列输出可点击链接。
func WithHyperlinks(enabled bool) TerminalOption {
	return func(t *Terminal) { t.hyperlinks = enabled }
}

// WithMarkdown renders assistant answers through glamour.
func WithMarkdown(r *glamour.TermRenderer) TerminalOption {
	return func(t *Terminal) { t.markdown = r }
}

// NewMarkdownRenderer 按终端宽度创建 glamour 渲染器。
func NewMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 4 {
		opts = append(opts, glamour.WithWordWrap(width-4))
	}
	return glamour.NewTermRenderer(opts...)
}

// NewTerminal creates a renderer with the default palette.
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{styles: DefaultStyles()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Width returns the wrap width.
func (t *Terminal) Width() int {
	return t.width
}

// Render formats one message: a role label, the text and one line per link.
func (t *Terminal) Render(m chat.Message) string {
	var b strings.Builder

	switch m.Role {
	case chat.RoleUser:
		b.WriteString(t.styles.Label.Render("You"))
		b.WriteString("\n")
		b.WriteString(t.wrap(t.styles.User).Render(m.Text))
	default:
		b.WriteString(t.styles.Label.Render("Assistant"))
		b.WriteString("\n")
		b.WriteString(t.assistantText(m))
	}

	for _, link := range m.Links {
		b.WriteString("\n  ")
		b.WriteString(t.link(link))
	}
	return b.String()
}

// RenderAll renders messages in order separated by blank lines.
func (t *Terminal) RenderAll(messages []chat.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, t.Render(m))
	}
	return strings.Join(parts, "\n\n")
}

func (t *Terminal) assistantText(m chat.Message) string {
	switch {
	case m.Loading:
		return t.wrap(t.styles.Loading).Render(m.Text)
	case m.Error:
		return t.wrap(t.styles.Error).Render(m.Text)
	}

	if t.markdown != nil {
		out, err := t.markdown.Render(m.Text)
		if err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return t.wrap(t.styles.Assistant).Render(m.Text)
}

func (t *Terminal) link(link chat.Link) string {
	label := t.styles.Link.Render(link.Label)
	if t.hyperlinks {
		return "↗ " + hyperlink(link.URL, label)
	}
	if link.Label == link.URL {
		return "↗ " + label
	}
	return fmt.Sprintf("↗ %s (%s)", label, link.URL)
}

func (t *Terminal) wrap(style lipgloss.Style) lipgloss.Style {
	if t.width > 0 {
		return style.Width(t.width)
	}
	return style
}

// hyperlink 生成 OSC 8 超链接。
func hyperlink(url, text string) string {
	return "\x1b]8;;" + url + "\x1b\\" + text + "\x1b]8;;\x1b\\"
}
