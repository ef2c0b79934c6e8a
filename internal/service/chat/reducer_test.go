package chat_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
	chatsvc "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
)

func strPtr(s string) *string { return &s }

func TestBeginIgnoresBlankQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t "} {
		_, ok := chatsvc.Begin(q, "Loading...")
		assert.False(t, ok, "query %q", q)
	}
}

func TestBeginTrimsQuery(t *testing.T) {
	sub, ok := chatsvc.Begin("  What is NAV?  ", "Loading...")
	require.True(t, ok)
	assert.Equal(t, "What is NAV?", sub.User.Text)
	assert.Equal(t, chat.RoleUser, sub.User.Role)
	assert.True(t, sub.Placeholder.Loading)
	assert.Equal(t, "Loading...", sub.Placeholder.Text)
}

func TestSubmittedAppendsUserThenPlaceholder(t *testing.T) {
	sub, _ := chatsvc.Begin("What is NAV?", "Searching official HDFC files...")

	state, events := chatsvc.Apply(chatsvc.State{}, sub)

	require.Len(t, state.Messages, 2)
	assert.Equal(t, sub.User, state.Messages[0])
	assert.Equal(t, sub.Placeholder, state.Messages[1])
	assert.Equal(t, 1, state.Pending())

	require.Len(t, events, 2)
	assert.Equal(t, chatsvc.EventAppended, events[0].Type)
	assert.Equal(t, chatsvc.EventAppended, events[1].Type)
}

func TestResolvedReplacesPlaceholderWithAnswer(t *testing.T) {
	sub, _ := chatsvc.Begin("rate", "Loading...")
	state := chatsvc.Reduce(chatsvc.State{}, sub)

	reply := &chat.Reply{
		Answer:        strPtr("Rates are 8%."),
		OfficialLinks: []chat.Link{{URL: "https://x", Label: "Source"}},
	}
	state, events := chatsvc.Apply(state, chatsvc.Complete(sub.Placeholder.ID, reply, nil))

	require.Len(t, state.Messages, 2)
	assert.Equal(t, 0, state.Pending())
	last := state.Messages[1]
	assert.Equal(t, chat.RoleAssistant, last.Role)
	assert.Equal(t, "Rates are 8%.", last.Text)
	assert.Equal(t, []chat.Link{{URL: "https://x", Label: "Source"}}, last.Links)
	assert.False(t, last.Error)

	require.Len(t, events, 2)
	assert.Equal(t, chatsvc.EventRemoved, events[0].Type)
	assert.Equal(t, sub.Placeholder.ID, events[0].Message.ID)
	assert.Equal(t, chatsvc.EventAppended, events[1].Type)
}

func TestResolvedFailureRendersErrorText(t *testing.T) {
	sub, _ := chatsvc.Begin("rate", "Loading...")
	state := chatsvc.Reduce(chatsvc.State{}, sub)

	state = chatsvc.Reduce(state, chatsvc.Complete(sub.Placeholder.ID, nil, errors.New("connection refused")))

	require.Len(t, state.Messages, 2)
	last := state.Messages[1]
	assert.Equal(t, "Error: connection refused", last.Text)
	assert.True(t, last.Error)
	assert.Empty(t, last.Links)
}

func TestResolvedWithoutPlaceholderOnlyAppends(t *testing.T) {
	sub, _ := chatsvc.Begin("rate", "Loading...")
	state := chatsvc.Reduce(chatsvc.State{}, sub)

	state, events := chatsvc.Apply(state, chatsvc.Complete("missing", &chat.Reply{Answer: strPtr("late")}, nil))

	require.Len(t, state.Messages, 3)
	assert.Equal(t, 1, state.Pending())
	require.Len(t, events, 1)
	assert.Equal(t, chatsvc.EventAppended, events[0].Type)
}

func TestOverlappingSubmissionsResolveIndependently(t *testing.T) {
	first, _ := chatsvc.Begin("first", "Loading...")
	second, _ := chatsvc.Begin("second", "Loading...")

	state := chatsvc.Reduce(chatsvc.State{}, first)
	state = chatsvc.Reduce(state, second)
	require.Equal(t, 2, state.Pending())

	state = chatsvc.Reduce(state, chatsvc.Complete(second.Placeholder.ID, &chat.Reply{Answer: strPtr("two")}, nil))

	_, ok := state.Find(first.Placeholder.ID)
	assert.True(t, ok, "first placeholder must survive the second reply")
	_, ok = state.Find(second.Placeholder.ID)
	assert.False(t, ok)
	assert.Equal(t, "two", state.Messages[len(state.Messages)-1].Text)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	sub, _ := chatsvc.Begin("rate", "Loading...")
	before := chatsvc.Reduce(chatsvc.State{}, sub)
	snapshot := append([]chat.Message(nil), before.Messages...)

	_ = chatsvc.Reduce(before, chatsvc.Complete(sub.Placeholder.ID, &chat.Reply{Answer: strPtr("ok")}, nil))

	assert.Equal(t, snapshot, before.Messages)
}
