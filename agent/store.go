package agent

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for agent persistence operations.
type Store interface {
	// Create creates a new agent, generating a widget code when none is set.
	Create(ctx context.Context, agent *Agent) error

	// GetByID retrieves an agent by its ID regardless of its active flag.
	GetByID(ctx context.Context, id uuid.UUID) (*Agent, error)

	// GetByWidgetCode retrieves an active agent by its widget code.
	GetByWidgetCode(ctx context.Context, code string) (*Agent, error)

	// Update updates an agent with the given setters.
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error

	// Delete removes an agent.
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves a paginated list of agents, newest first.
	List(ctx context.Context, limit, offset int) ([]*Agent, error)

	// Count returns the total number of agents.
	Count(ctx context.Context) (int, error)

	// IncrementMessages adds n to the agent's message counter.
	IncrementMessages(ctx context.Context, id uuid.UUID, n int) error
}

// UpdateSetter is a function that updates an agent field.
type UpdateSetter func(*Agent) error
