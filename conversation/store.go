package conversation

import (
	"context"

	"github.com/google/uuid"
)

// Visitor carries request metadata recorded when a conversation starts.
type Visitor struct {
	IP        string
	UserAgent string
}

// Store defines the interface for conversation persistence operations.
type Store interface {
	// Create creates a new conversation.
	Create(ctx context.Context, conv *Conversation) error

	// GetByID retrieves a conversation by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)

	// GetBySession retrieves the conversation of an agent and visitor session.
	GetBySession(ctx context.Context, agentID uuid.UUID, sessionID string) (*Conversation, error)

	// FindOrCreate returns the conversation for the agent and session,
	// creating an empty one when none exists.
	FindOrCreate(ctx context.Context, agentID uuid.UUID, sessionID string, visitor Visitor) (*Conversation, error)

	// AppendMessages adds messages to the end of the conversation history.
	AppendMessages(ctx context.Context, id uuid.UUID, msgs ...Message) error

	// ListByAgent retrieves a paginated list of an agent's conversations, newest first.
	ListByAgent(ctx context.Context, agentID uuid.UUID, limit, offset int) ([]*Conversation, error)

	// CountByAgent returns the number of conversations for an agent.
	CountByAgent(ctx context.Context, agentID uuid.UUID) (int, error)
}
