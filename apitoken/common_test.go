package apitoken

import (
	"testing"
	"time"

	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/testutil"
	"gorm.io/gorm"
)

// setupTestStore creates a test database and API token store for testing.
func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &APIToken{})

	log := logger.NewTestLogger()
	store := NewMySQLStore(db, log)

	return db, store
}

// createTestToken builds an active token expiring in a day.
func createTestToken(name, scope, hash string) *APIToken {
	return &APIToken{
		Name:      name,
		Scope:     scope,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		IsActive:  true,
	}
}
