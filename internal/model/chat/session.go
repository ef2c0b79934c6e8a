package chat

import "time"

// Session captures one transient conversation, the equivalent of a page load.
type Session struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}
