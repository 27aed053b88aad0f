package interfaces

import (
	"context"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// TextGenerator produces free text from a prompt. Implementations must honor ctx
// deadlines; callers never assume the output follows the requested format.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}
