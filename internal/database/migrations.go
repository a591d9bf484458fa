package database

import (
	"gorm.io/gorm"

	"github.com/chirp-social/chirp/internal/models"
)

// AutoMigrate creates or updates the database schema for all models. Unique
// indexes on users.email, users.username and refresh_tokens.token back the
// uniqueness invariants the auth core relies on.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.CacheEntry{},
	)
}
