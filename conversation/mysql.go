package conversation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"gorm.io/gorm"
)

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed conversation store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new conversation in the database.
func (s *MySQLStore) Create(ctx context.Context, conv *Conversation) error {
	if err := conv.Validate(); err != nil {
		return err
	}
	if conv.Messages == nil {
		conv.Messages = Messages{}
	}

	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		s.logger.Error(ctx, "failed to create conversation", map[string]interface{}{
			"error":      err.Error(),
			"agent_id":   conv.AgentID.String(),
			"session_id": conv.SessionID,
		})
		return err
	}

	s.logger.Info(ctx, "conversation created", map[string]interface{}{
		"conversation_id": conv.ID.String(),
		"agent_id":        conv.AgentID.String(),
		"session_id":      conv.SessionID,
	})

	return nil
}

// GetByID retrieves a conversation by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var conv Conversation
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&conv).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		s.logger.Error(ctx, "failed to get conversation by ID", map[string]interface{}{
			"error":           err.Error(),
			"conversation_id": id.String(),
		})
		return nil, err
	}

	return &conv, nil
}

// GetBySession retrieves the conversation of an agent and visitor session.
func (s *MySQLStore) GetBySession(ctx context.Context, agentID uuid.UUID, sessionID string) (*Conversation, error) {
	var conv Conversation
	err := s.db.WithContext(ctx).
		Where("agent_id = ? AND session_id = ?", agentID, sessionID).
		First(&conv).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		s.logger.Error(ctx, "failed to get conversation by session", map[string]interface{}{
			"error":      err.Error(),
			"agent_id":   agentID.String(),
			"session_id": sessionID,
		})
		return nil, err
	}

	return &conv, nil
}

// FindOrCreate returns the existing conversation or starts a new one.
func (s *MySQLStore) FindOrCreate(ctx context.Context, agentID uuid.UUID, sessionID string, visitor Visitor) (*Conversation, error) {
	conv, err := s.GetBySession(ctx, agentID, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, err
	}

	conv = &Conversation{
		AgentID:   agentID,
		SessionID: sessionID,
		UserIP:    visitor.IP,
		UserAgent: visitor.UserAgent,
	}
	if err := s.Create(ctx, conv); err != nil {
		// A concurrent request for the same session may have won the unique index.
		if existing, getErr := s.GetBySession(ctx, agentID, sessionID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return conv, nil
}

// AppendMessages adds messages to the history inside a transaction.
func (s *MySQLStore) AppendMessages(ctx context.Context, id uuid.UUID, msgs ...Message) error {
	for _, m := range msgs {
		if err := validateMessage(m); err != nil {
			return err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv Conversation
		if err := tx.Where("id = ?", id).First(&conv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConversationNotFound
			}
			return err
		}

		conv.Messages = append(conv.Messages, msgs...)
		return tx.Model(&conv).Update("messages", conv.Messages).Error
	})

	if err != nil {
		if !errors.Is(err, ErrConversationNotFound) {
			s.logger.Error(ctx, "failed to append conversation messages", map[string]interface{}{
				"error":           err.Error(),
				"conversation_id": id.String(),
			})
		}
		return err
	}

	return nil
}

// ListByAgent retrieves a paginated list of an agent's conversations.
func (s *MySQLStore) ListByAgent(ctx context.Context, agentID uuid.UUID, limit, offset int) ([]*Conversation, error) {
	var convs []*Conversation
	err := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list conversations by agent", map[string]interface{}{
			"error":    err.Error(),
			"agent_id": agentID.String(),
			"limit":    limit,
			"offset":   offset,
		})
		return nil, err
	}

	return convs, nil
}

// CountByAgent returns the number of conversations for an agent.
func (s *MySQLStore) CountByAgent(ctx context.Context, agentID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Conversation{}).
		Where("agent_id = ?", agentID).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to count conversations by agent", map[string]interface{}{
			"error":    err.Error(),
			"agent_id": agentID.String(),
		})
		return 0, err
	}

	return int(count), nil
}
