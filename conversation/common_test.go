package conversation

import (
	"testing"

	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/testutil"
	"gorm.io/gorm"
)

// setupTestStore creates a test database and conversation store for testing.
func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Conversation{})

	log := logger.NewTestLogger()
	store := NewMySQLStore(db, log)

	return db, store
}
