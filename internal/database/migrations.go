package database

import (
	"gorm.io/gorm"

	"github.com/mkarlsen/signupd/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
// The sessions table is part of the persisted layout but is not written to by
// any handler yet.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.VerificationCode{},
		&models.Session{},
	)
}
