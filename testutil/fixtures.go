package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// CreateFixture inserts one row, bypassing store validation.
func CreateFixture(t *testing.T, db *gorm.DB, model interface{}) {
	t.Helper()
	require.NoError(t, db.Create(model).Error, "create fixture %T", model)
}

// CreateFixtures inserts rows in order, so foreign keys may point at
// earlier rows of the same call.
func CreateFixtures(t *testing.T, db *gorm.DB, models ...interface{}) {
	t.Helper()
	for _, model := range models {
		CreateFixture(t, db, model)
	}
}
