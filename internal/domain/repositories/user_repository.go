package repositories

import (
	"context"

	"github.com/derricker/meetai/internal/domain/entities"
)

// UserRepository defines read-only user lookups
type UserRepository interface {
	// FindByIDs returns the users whose ids are in the given set; missing
	// ids are simply absent from the result.
	FindByIDs(ctx context.Context, ids []string) ([]*entities.User, error)
}
