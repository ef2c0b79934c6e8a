package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
	"github.com/zhouzirui/fund-faq/widget/internal/model/example"
	"github.com/zhouzirui/fund-faq/widget/internal/service/backend"
	chatsvc "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
)

type recordingAsker struct {
	requests []chat.Request
	reply    *chat.Reply
	err      error
}

func (a *recordingAsker) Ask(ctx context.Context, req chat.Request) (*chat.Reply, error) {
	a.requests = append(a.requests, req)
	return a.reply, a.err
}

func answer(text string, links ...chat.Link) *chat.Reply {
	return &chat.Reply{Answer: &text, OfficialLinks: links}
}

func newModel(t *testing.T, asker chatsvc.Asker) Model {
	t.Helper()
	m := New(context.Background(), asker, example.NewMemoryStore(example.Seed()), Config{
		Title:       "HDFC Mutual Fund Assistant",
		LoadingText: "Searching official HDFC files...",
	})
	t.Cleanup(m.cancel)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestEnterWithBlankInputDoesNothing(t *testing.T) {
	asker := &recordingAsker{reply: answer("x")}
	m := newModel(t, asker)

	m = typeText(t, m, "   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, m.Messages())
	assert.Empty(t, asker.requests)
}

func TestSubmitShowsPlaceholderThenAnswer(t *testing.T) {
	asker := &recordingAsker{reply: answer("Rates are 8%.", chat.Link{URL: "https://x", Label: "Source"})}
	m := newModel(t, asker)

	m = typeText(t, m, "What is the loan rate?")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	require.Len(t, m.Messages(), 2)
	assert.Equal(t, "What is the loan rate?", m.Messages()[0].Text)
	assert.True(t, m.Messages()[1].Loading)
	assert.Equal(t, "", m.input.Value())
	assert.Contains(t, m.View(), "Searching official HDFC files...")

	m, _ = update(t, m, cmd())

	require.Len(t, asker.requests, 1)
	assert.Equal(t, "What is the loan rate?", asker.requests[0].Message)
	require.Len(t, m.Messages(), 2)
	last := m.Messages()[1]
	assert.Equal(t, "Rates are 8%.", last.Text)
	assert.Equal(t, []chat.Link{{URL: "https://x", Label: "Source"}}, last.Links)
	assert.Contains(t, m.View(), "Source")
}

func TestFailureRendersErrorMessage(t *testing.T) {
	asker := &recordingAsker{err: &backend.HTTPError{StatusCode: 429, Detail: "Rate limited"}}
	m := newModel(t, asker)

	m = typeText(t, m, "q")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())

	require.Len(t, m.Messages(), 2)
	assert.Equal(t, "Error: Rate limited", m.Messages()[1].Text)
	assert.Equal(t, 0, chatsvc.State{Messages: m.Messages()}.Pending())
}

func TestTransportFailureText(t *testing.T) {
	asker := &recordingAsker{err: &backend.TransportError{Err: errors.New("connection refused")}}
	m := newModel(t, asker)

	m = typeText(t, m, "q")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())

	assert.Equal(t, "Error: connection refused", m.Messages()[1].Text)
}

func TestFunctionKeySubmitsExample(t *testing.T) {
	asker := &recordingAsker{reply: answer("ok")}
	m := newModel(t, asker)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyF3})
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, asker.requests, 1)
	assert.Equal(t, "What is the exit load for HDFC Large Cap?", asker.requests[0].Message)
	assert.Equal(t, "What is the exit load for HDFC Large Cap?", m.Messages()[0].Text)

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyF9})
	assert.Nil(t, cmd)
}

func TestOverlappingRepliesResolveTheirOwnPlaceholder(t *testing.T) {
	asker := &recordingAsker{reply: answer("same")}
	m := newModel(t, asker)

	m = typeText(t, m, "first")
	m, first := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "second")
	m, second := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, 2, chatsvc.State{Messages: m.Messages()}.Pending())

	m, _ = update(t, m, second())
	assert.Equal(t, 1, chatsvc.State{Messages: m.Messages()}.Pending())
	assert.True(t, m.Messages()[1].Loading, "first placeholder stays until its own reply")

	m, _ = update(t, m, first())
	assert.Equal(t, 0, chatsvc.State{Messages: m.Messages()}.Pending())
	assert.Len(t, m.Messages(), 4)
}

func TestCtrlLStartsNewConversation(t *testing.T) {
	asker := &recordingAsker{reply: answer("late")}
	m := newModel(t, asker)
	oldSession := m.sessionID

	m = typeText(t, m, "q")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})

	assert.Empty(t, m.Messages())
	assert.NotEqual(t, oldSession, m.sessionID)

	m, _ = update(t, m, cmd())
	assert.Empty(t, m.Messages(), "replies from the cleared conversation are dropped")
	assert.True(t, strings.Contains(m.View(), "Expense Ratio"))
}

func TestEscQuits(t *testing.T) {
	m := newModel(t, &recordingAsker{})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Error(t, m.ctx.Err())
}

func TestFunctionKey(t *testing.T) {
	n, ok := functionKey("f1")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	for _, key := range []string{"f0", "f10", "a", "ctrl+f"} {
		_, ok := functionKey(key)
		assert.False(t, ok, key)
	}
}
