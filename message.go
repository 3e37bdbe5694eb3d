package dkr

import (
	"time"

	"github.com/google/uuid"
)

// Role is the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation kept by the caller.
type Message struct {
	ID         string            `json:"id"`
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	Timestamp  time.Time         `json:"timestamp"`
	Sources    []SourceReference `json:"sources,omitempty"`
	AgentSteps []AgentStep       `json:"agent_steps,omitempty"`
}

// NewUserMessage creates a user message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an assistant message stamped with the current time.
func NewAssistantMessage(content string, sources []SourceReference, steps []AgentStep) Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       RoleAssistant,
		Content:    content,
		Timestamp:  time.Now(),
		Sources:    sources,
		AgentSteps: steps,
	}
}

// Message converts the response into an assistant message. A failed
// response yields the server's error text as content.
func (r *QueryResponse) Message() Message {
	content := r.Answer
	if !r.Success {
		content = r.Error
	}
	return NewAssistantMessage(content, nil, nil)
}

// Message converts the response into an assistant message carrying its
// sources and agent steps.
func (r *AgentResponse) Message() Message {
	content := r.Answer
	if !r.Success {
		content = r.Error
	}
	return NewAssistantMessage(content, r.Sources, r.AgentSteps)
}
