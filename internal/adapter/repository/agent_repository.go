package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/internal/domain/repositories"
)

// agentRepository implements the AgentRepository interface
type agentRepository struct {
	db *gorm.DB
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db *gorm.DB) repositories.AgentRepository {
	return &agentRepository{db: db}
}

// FindByID retrieves an agent by its ID
func (r *agentRepository) FindByID(ctx context.Context, id string) (*entities.Agent, error) {
	var agent entities.Agent
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&agent).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrAgentNotFound
		}
		return nil, err
	}
	return &agent, nil
}

// FindByIDs retrieves all agents whose ids are in the given set
func (r *agentRepository) FindByIDs(ctx context.Context, ids []string) ([]*entities.Agent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var agents []*entities.Agent
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&agents).Error
	return agents, err
}
