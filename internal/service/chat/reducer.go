package chat

import (
	"strings"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
)

// State 是会话视图状态：按渲染顺序排列的消息，只追加，占位消息除外。
type State struct {
	Messages []chat.Message `json:"messages"`
}

// Action is one transition of the conversation view.
type Action interface {
	isAction()
}

// Submitted appends the user turn followed by its loading placeholder.
type Submitted struct {
	User        chat.Message
	Placeholder chat.Message
}

// Resolved removes a placeholder (if still present) and appends the reply or failure turn.
type Resolved struct {
	PlaceholderID string
	Reply         chat.Message
}

func (Submitted) isAction() {}
func (Resolved) isAction()  {}

// EventType 标识视图变化的类型。
type EventType string

const (
	EventAppended EventType = "message.appended"
	EventRemoved  EventType = "message.removed"
)

// Event describes one change to the rendered view.
type Event struct {
	Type      EventType    `json:"type"`
	SessionID string       `json:"sessionId,omitempty"`
	Message   chat.Message `json:"message"`
}

// Begin 为一次提交构造 Submitted。去掉首尾空白后为空时返回 false，调用方应当什么都不做。
func Begin(query, loadingText string) (Submitted, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Submitted{}, false
	}
	return Submitted{
		User:        chat.NewUserMessage(query),
		Placeholder: chat.NewPlaceholder(loadingText),
	}, true
}

// Complete converts the outcome of a backend call into a Resolved action.
func Complete(placeholderID string, reply *chat.Reply, err error) Resolved {
	if err != nil {
		return Resolved{PlaceholderID: placeholderID, Reply: chat.NewErrorMessage(err.Error())}
	}
	return Resolved{PlaceholderID: placeholderID, Reply: reply.ToMessage()}
}

// Reduce applies an action and returns the next state. The input state is not modified.
func Reduce(s State, action Action) State {
	next, _ := Apply(s, action)
	return next
}

// Apply is Reduce that also reports the view events the transition produced.
func Apply(s State, action Action) (State, []Event) {
	switch a := action.(type) {
	case Submitted:
		messages := make([]chat.Message, 0, len(s.Messages)+2)
		messages = append(messages, s.Messages...)
		messages = append(messages, a.User, a.Placeholder)
		return State{Messages: messages}, []Event{
			{Type: EventAppended, Message: a.User},
			{Type: EventAppended, Message: a.Placeholder},
		}

	case Resolved:
		events := make([]Event, 0, 2)
		messages := make([]chat.Message, 0, len(s.Messages)+1)
		for _, m := range s.Messages {
			if m.Loading && m.ID == a.PlaceholderID {
				events = append(events, Event{Type: EventRemoved, Message: m})
				continue
			}
			messages = append(messages, m)
		}
		messages = append(messages, a.Reply)
		events = append(events, Event{Type: EventAppended, Message: a.Reply})
		return State{Messages: messages}, events
	}
	return s, nil
}

// Pending 返回仍在等待响应的占位消息数。
func (s State) Pending() int {
	n := 0
	for _, m := range s.Messages {
		if m.Loading {
			n++
		}
	}
	return n
}

// Find returns the message with the given id.
func (s State) Find(id string) (chat.Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return chat.Message{}, false
}
