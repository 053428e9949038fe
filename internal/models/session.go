package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is reserved for a future server-side session model. The table is
// migrated so the schema matches the persisted layout, but no handler
// populates it today; the maintenance sweep keeps it free of expired rows.
type Session struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
