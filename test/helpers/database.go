package helpers

import (
	"testing"

	"gorm.io/gorm"

	"github.com/atlasvoyages/cruisesync/internal/infrastructure/database"
)

// NewTestDB opens a fresh in-memory SQLite database with the full
// schema migrated. Each call returns an isolated database; the
// connection is closed when the test finishes.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.NewTestConnection()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
