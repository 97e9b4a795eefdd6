package agent

import (
	"testing"

	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/testutil"
	"gorm.io/gorm"
)

// setupTestStore creates a test database and agent store for testing.
func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Agent{})

	log := logger.NewTestLogger()
	store := NewMySQLStore(db, log)

	return db, store
}

// createTestAgent creates a test agent with default values.
func createTestAgent(name, widgetCode string) *Agent {
	return &Agent{
		Name:          name,
		Description:   "Интернет-магазин электроники",
		WidgetCode:    widgetCode,
		KnowledgeBase: "Доставка по Москве бесплатно\nВозврат в течение 14 дней",
		IsActive:      true,
	}
}
