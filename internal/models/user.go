package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User describes a registered account. An account always carries a password
// digest, a Google identity reference, or both; the services layer enforces
// that it is never neither.
//
// Email uniqueness is a byte-exact match: lookups use `email = ?` and the
// column carries no case-folding collation, mirroring the behaviour the rest
// of the system depends on.
type User struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// PasswordHash is nil for accounts created via Google sign-in only.
	PasswordHash *string `gorm:"column:password_hash" json:"-"`

	// GoogleID is nil for password-only accounts.
	GoogleID *string `gorm:"uniqueIndex" json:"google_id,omitempty"`

	PhoneNumber     string `json:"phone_number,omitempty"`
	MarketingEmails bool   `gorm:"default:false" json:"marketing_emails"`

	IsEmailVerified bool `gorm:"default:false" json:"is_email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
