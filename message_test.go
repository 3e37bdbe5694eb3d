package dkr

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewUserMessage(t *testing.T) {
	m := NewUserMessage("What is X?")
	if m.Role != RoleUser {
		t.Errorf("role = %v, want user", m.Role)
	}
	if _, err := uuid.Parse(m.ID); err != nil {
		t.Errorf("id %q is not a UUID: %v", m.ID, err)
	}
	if m.Timestamp.IsZero() {
		t.Error("timestamp is zero")
	}
	if other := NewUserMessage("again"); other.ID == m.ID {
		t.Error("message IDs collide")
	}
}

func TestResponseMessage(t *testing.T) {
	t.Run("query success", func(t *testing.T) {
		m := (&QueryResponse{Success: true, Answer: "X is Y"}).Message()
		if m.Role != RoleAssistant || m.Content != "X is Y" {
			t.Errorf("message = %+v", m)
		}
	})

	t.Run("query failure", func(t *testing.T) {
		m := (&QueryResponse{Success: false, Error: "no documents"}).Message()
		if m.Content != "no documents" {
			t.Errorf("content = %q, want no documents", m.Content)
		}
	})

	t.Run("agent with sources", func(t *testing.T) {
		resp := &AgentResponse{
			Success: true,
			Answer:  "See page 3",
			Sources: []SourceReference{{DocID: "d1", DocTitle: "Book", PageNumber: 3, RelevanceScore: 0.7}},
			AgentSteps: []AgentStep{
				{Step: 1, Action: "select_category", Description: "Physics"},
				{Step: 2, Action: "select_page", Description: "page 3"},
			},
		}
		m := resp.Message()
		if len(m.Sources) != 1 || m.Sources[0].PageNumber != 3 {
			t.Errorf("sources = %+v", m.Sources)
		}
		if len(m.AgentSteps) != 2 || m.AgentSteps[1].Step != 2 {
			t.Errorf("agent steps = %+v", m.AgentSteps)
		}
	})
}
