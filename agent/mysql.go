package agent

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"gorm.io/gorm"
)

const widgetCodeAttempts = 5

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed agent store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new agent in the database. A caller-supplied widget code
// that is already taken fails with ErrDuplicateWidgetCode; a generated one is
// retried.
func (s *MySQLStore) Create(ctx context.Context, agent *Agent) error {
	if err := agent.Validate(); err != nil {
		return err
	}

	generated := agent.WidgetCode == ""
	for attempt := 0; ; attempt++ {
		if generated {
			code, err := GenerateWidgetCode()
			if err != nil {
				return err
			}
			agent.WidgetCode = code
		}
		taken, err := s.widgetCodeTaken(ctx, agent.WidgetCode)
		if err != nil {
			return err
		}
		if !taken {
			break
		}
		if !generated || attempt+1 >= widgetCodeAttempts {
			return ErrDuplicateWidgetCode
		}
	}

	if err := s.db.WithContext(ctx).Create(agent).Error; err != nil {
		s.logger.Error(ctx, "failed to create agent", map[string]interface{}{
			"error":       err.Error(),
			"name":        agent.Name,
			"widget_code": agent.WidgetCode,
		})
		return err
	}

	s.logger.Info(ctx, "agent created", map[string]interface{}{
		"agent_id":    agent.ID.String(),
		"name":        agent.Name,
		"widget_code": agent.WidgetCode,
	})

	return nil
}

func (s *MySQLStore) widgetCodeTaken(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Agent{}).
		Where("widget_code = ?", code).
		Count(&count).Error
	if err != nil {
		s.logger.Error(ctx, "failed to check widget code", map[string]interface{}{
			"error":       err.Error(),
			"widget_code": code,
		})
		return false, err
	}
	return count > 0, nil
}

// GetByID retrieves an agent by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Agent, error) {
	var agent Agent
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&agent).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		s.logger.Error(ctx, "failed to get agent by ID", map[string]interface{}{
			"error":    err.Error(),
			"agent_id": id.String(),
		})
		return nil, err
	}

	return &agent, nil
}

// GetByWidgetCode retrieves an active agent by its widget code.
func (s *MySQLStore) GetByWidgetCode(ctx context.Context, code string) (*Agent, error) {
	if !ValidWidgetCode(code) {
		return nil, ErrInvalidWidgetCode
	}

	var agent Agent
	err := s.db.WithContext(ctx).
		Where("widget_code = ? AND is_active = ?", code, true).
		First(&agent).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		s.logger.Error(ctx, "failed to get agent by widget code", map[string]interface{}{
			"error":       err.Error(),
			"widget_code": code,
		})
		return nil, err
	}

	return &agent, nil
}

// Update updates an agent with the given setters.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	agent, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(agent); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(agent).Error; err != nil {
		s.logger.Error(ctx, "failed to update agent", map[string]interface{}{
			"error":    err.Error(),
			"agent_id": id.String(),
		})
		return err
	}

	s.logger.Info(ctx, "agent updated", map[string]interface{}{
		"agent_id": id.String(),
	})

	return nil
}

// Delete removes an agent. Its conversations go with it through the foreign key.
func (s *MySQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&Agent{})

	if result.Error != nil {
		s.logger.Error(ctx, "failed to delete agent", map[string]interface{}{
			"error":    result.Error.Error(),
			"agent_id": id.String(),
		})
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAgentNotFound
	}

	s.logger.Info(ctx, "agent deleted", map[string]interface{}{
		"agent_id": id.String(),
	})

	return nil
}

// List retrieves a paginated list of agents, newest first.
func (s *MySQLStore) List(ctx context.Context, limit, offset int) ([]*Agent, error) {
	var agents []*Agent
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&agents).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list agents", map[string]interface{}{
			"error":  err.Error(),
			"limit":  limit,
			"offset": offset,
		})
		return nil, err
	}

	return agents, nil
}

// Count returns the total number of agents.
func (s *MySQLStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Agent{}).Count(&count).Error; err != nil {
		s.logger.Error(ctx, "failed to count agents", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}
	return int(count), nil
}

// IncrementMessages adds n to the agent's message counter in a single statement.
func (s *MySQLStore) IncrementMessages(ctx context.Context, id uuid.UUID, n int) error {
	result := s.db.WithContext(ctx).
		Model(&Agent{}).
		Where("id = ?", id).
		UpdateColumn("total_messages", gorm.Expr("total_messages + ?", n))

	if result.Error != nil {
		s.logger.Error(ctx, "failed to increment agent messages", map[string]interface{}{
			"error":    result.Error.Error(),
			"agent_id": id.String(),
		})
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAgentNotFound
	}

	return nil
}
