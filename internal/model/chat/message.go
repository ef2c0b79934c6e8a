package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role 标识消息作者。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Link 是附在助手回复后的带标签链接。
type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Message is one rendered turn of the conversation view.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Links     []Link    `json:"links,omitempty"`
	Loading   bool      `json:"loading,omitempty"`
	Error     bool      `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrorPrefix 出现在所有失败消息文本之前。
const ErrorPrefix = "Error: "

// NewUserMessage builds the user turn for a submitted query.
func NewUserMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// NewPlaceholder 创建请求进行中显示的加载占位消息。
func NewPlaceholder(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      text,
		Loading:   true,
		CreatedAt: time.Now().UTC(),
	}
}

// NewAssistantMessage builds an answer turn. Empty link lists are normalised to nil.
func NewAssistantMessage(text string, links []Link) Message {
	var copied []Link
	if len(links) > 0 {
		copied = append([]Link(nil), links...)
	}
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      text,
		Links:     copied,
		CreatedAt: time.Now().UTC(),
	}
}

// NewErrorMessage 把失败描述包装成助手消息，文本以 "Error: " 开头。
func NewErrorMessage(description string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      ErrorPrefix + description,
		Error:     true,
		CreatedAt: time.Now().UTC(),
	}
}

// HasLinks reports whether the message renders link controls.
func (m Message) HasLinks() bool {
	return m.Role == RoleAssistant && len(m.Links) > 0
}
