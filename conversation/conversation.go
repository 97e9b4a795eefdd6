package conversation

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrConversationNotFound is returned when a conversation is not found.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidAgent is returned when agent_id is not set.
	ErrInvalidAgent = errors.New("agent_id is required")

	// ErrInvalidSession is returned when session_id is empty.
	ErrInvalidSession = errors.New("session_id is required")

	// ErrInvalidRole is returned when a message has an unknown role.
	ErrInvalidRole = errors.New("invalid message role")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PageContext describes the page the visitor was on when writing a message.
type PageContext struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Pathname string `json:"pathname,omitempty"`
}

// Message is one chat turn.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	PageContext *PageContext `json:"pageContext,omitempty"`
}

// Messages is stored as a JSON column.
type Messages []Message

func (m Messages) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal([]Message{})
	}
	return json.Marshal(m)
}

func (m *Messages) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = Messages{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to scan Messages: unsupported type %T", value)
	}
	var out []Message
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Conversation is the chat history of one visitor session with one agent.
type Conversation struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	AgentID   uuid.UUID `json:"agent_id" gorm:"type:char(36);not null;uniqueIndex:idx_conversations_agent_session"`
	SessionID string    `json:"session_id" gorm:"type:varchar(128);not null;uniqueIndex:idx_conversations_agent_session"`
	Messages  Messages  `json:"messages" gorm:"type:json"`
	UserIP    string    `json:"user_ip" gorm:"type:varchar(64)"`
	UserAgent string    `json:"user_agent" gorm:"type:varchar(512)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Validate checks if the conversation has valid required fields.
func (c *Conversation) Validate() error {
	if c.AgentID == uuid.Nil {
		return ErrInvalidAgent
	}
	if c.SessionID == "" {
		return ErrInvalidSession
	}
	return nil
}

// Recent returns at most the last n messages.
func (c *Conversation) Recent(n int) []Message {
	if n <= 0 || len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

func validateMessage(m Message) error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return ErrInvalidRole
	}
	return nil
}
