package agent

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrAgentNotFound is returned when an agent is not found or is inactive.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrInvalidAgentName is returned when an agent name is empty.
	ErrInvalidAgentName = errors.New("agent name is required")

	// ErrInvalidWidgetCode is returned when a widget code is malformed.
	ErrInvalidWidgetCode = errors.New("invalid widget code")

	// ErrDuplicateWidgetCode is returned when a widget code is already taken.
	ErrDuplicateWidgetCode = errors.New("widget code already in use")

	// ErrInvalidResponseStyle is returned for an unknown response style.
	ErrInvalidResponseStyle = errors.New("invalid response style")
)

// ResponseStyle controls the tone of the assistant's replies.
type ResponseStyle string

const (
	StyleHelpful   ResponseStyle = "helpful"
	StyleFormal    ResponseStyle = "formal"
	StyleCasual    ResponseStyle = "casual"
	StyleTechnical ResponseStyle = "technical"
)

// IsValid reports whether s is a known response style.
func (s ResponseStyle) IsValid() bool {
	switch s {
	case StyleHelpful, StyleFormal, StyleCasual, StyleTechnical:
		return true
	}
	return false
}

const widgetCodeBytes = 4

// Agent is a chat assistant embedded on a customer's site through a widget.
type Agent struct {
	ID            uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	WidgetCode    string        `json:"widget_code" gorm:"type:varchar(64);uniqueIndex:idx_agents_widget_code;not null"`
	Name          string        `json:"name" gorm:"not null"`
	Description   string        `json:"description" gorm:"type:text"`
	WebsiteURL    string        `json:"website_url" gorm:"type:varchar(2048)"`
	SystemPrompt  string        `json:"system_prompt" gorm:"type:text"`
	ResponseStyle ResponseStyle `json:"response_style" gorm:"type:varchar(50);not null;default:'helpful'"`
	KnowledgeBase string        `json:"knowledge_base" gorm:"type:text"`
	IsActive      bool          `json:"is_active" gorm:"default:true;index:idx_agents_is_active"`
	TotalMessages int64         `json:"total_messages" gorm:"not null;default:0"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// BeforeCreate assigns an ID and a widget code when missing.
func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.WidgetCode == "" {
		code, err := GenerateWidgetCode()
		if err != nil {
			return err
		}
		a.WidgetCode = code
	}
	if a.ResponseStyle == "" {
		a.ResponseStyle = StyleHelpful
	}
	return nil
}

// Validate checks if the agent has valid required fields.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return ErrInvalidAgentName
	}
	if a.WidgetCode != "" && !ValidWidgetCode(a.WidgetCode) {
		return ErrInvalidWidgetCode
	}
	if a.ResponseStyle != "" && !a.ResponseStyle.IsValid() {
		return ErrInvalidResponseStyle
	}
	return nil
}

// WelcomeMessage is the first line the widget shows to a visitor.
func (a *Agent) WelcomeMessage() string {
	return fmt.Sprintf("Привет! Я AI-ассистент %s. Как я могу вам помочь?", a.Name)
}

// GenerateWidgetCode returns a random 8 character hex code.
func GenerateWidgetCode() (string, error) {
	b := make([]byte, widgetCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate widget code: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidWidgetCode reports whether code only holds lowercase letters, digits,
// dashes and underscores and fits the column.
func ValidWidgetCode(code string) bool {
	if code == "" || len(code) > 64 {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
