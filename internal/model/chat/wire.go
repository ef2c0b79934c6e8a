package chat

// Request 是发往 /chat 的请求体。
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Reply 是 /chat 成功响应体。Answer 为必填字段，用指针区分缺失与空串。
type Reply struct {
	Answer        *string  `json:"answer"`
	OfficialLinks []Link   `json:"official_links,omitempty"`
	Sources       []string `json:"sources,omitempty"`
	Routing       *Routing `json:"routing,omitempty"`
}

// Routing mirrors the optional routing diagnostics some backends attach.
type Routing struct {
	Classification string `json:"classification"`
	Scheme         string `json:"scheme"`
	Inherited      bool   `json:"inherited"`
}

// Text returns the answer text, empty when absent.
func (r *Reply) Text() string {
	if r == nil || r.Answer == nil {
		return ""
	}
	return *r.Answer
}

// ToMessage 把成功响应转换为助手消息。
func (r *Reply) ToMessage() Message {
	return NewAssistantMessage(r.Text(), r.OfficialLinks)
}
