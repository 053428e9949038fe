package models

import "time"

// VerificationCode is a single-use email verification code. Rows are never
// updated in place: a code is deleted on consumption, on lazy expiry
// detection, or by the cleanup sweep that runs before reissuance.
//
// Email is not a foreign key; a row may outlive its account and is simply
// orphaned until something deletes it.
type VerificationCode struct {
	BaseModel

	Email string `gorm:"not null;index" json:"email"`

	// Code is a fixed-width numeric string. Leading zeros are significant,
	// so comparisons must be string comparisons.
	Code string `gorm:"not null" json:"-"`

	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

// Live reports whether the code is still consumable at the given instant.
// A code whose expiry equals now is already expired.
func (v *VerificationCode) Live(now time.Time) bool {
	return v.ExpiresAt.After(now)
}
