// Package llm wraps the generative model behind a small interface: a
// message list in, text or a token stream out.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Client is the generative capability. Stream must never succeed with an
// empty answer: implementations fall back to a non-streaming completion
// when the stream yields no tokens.
type Client interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
	// Stream calls onDelta once per text increment, in order, and returns
	// the concatenated answer.
	Stream(ctx context.Context, messages []Message, temperature float64, onDelta func(string)) (string, error)
}
