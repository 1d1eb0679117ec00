package repositories

import (
	"context"

	"github.com/derricker/meetai/internal/domain/entities"
)

// AgentRepository defines read-only agent lookups
type AgentRepository interface {
	// FindByID returns entities.ErrAgentNotFound when the row is absent.
	FindByID(ctx context.Context, id string) (*entities.Agent, error)

	// FindByIDs returns the agents whose ids are in the given set; missing
	// ids are simply absent from the result.
	FindByIDs(ctx context.Context, ids []string) ([]*entities.Agent, error)
}
