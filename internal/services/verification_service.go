package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mkarlsen/signupd/internal/models"
	"github.com/mkarlsen/signupd/pkg/crypto"
	"github.com/mkarlsen/signupd/pkg/logger"
	"github.com/mkarlsen/signupd/pkg/mail"
)

const defaultCodeLength = 6

var (
	// ErrAlreadyVerified indicates the email already belongs to a verified account.
	ErrAlreadyVerified = errors.New("verification: email already verified")
	// ErrCodePending indicates a live code exists and reissuance is suppressed.
	ErrCodePending = errors.New("verification: code already pending")
	// ErrCodeInvalid indicates no code matches the supplied email/code pair.
	ErrCodeInvalid = errors.New("verification: invalid code")
	// ErrCodeExpired indicates the matched code is past its expiry.
	ErrCodeExpired = errors.New("verification: code expired")
	// ErrAccountMissing indicates no account exists for the email being verified.
	ErrAccountMissing = errors.New("verification: account missing")
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithCodeLength adjusts the number of digits in generated codes.
func WithCodeLength(digits int) VerificationOption {
	return func(s *VerificationService) {
		if digits > 0 {
			s.codeLength = digits
		}
	}
}

// VerificationService manages the lifecycle of email verification codes:
// issuance with at-most-one-live-code suppression, single-use consumption,
// and lazy removal of expired rows. Every operation re-reads the store; no
// state is held between calls.
type VerificationService struct {
	db         *gorm.DB
	mailer     mail.Mailer
	codeLength int
	now        func() time.Time
	log        *zap.Logger
}

// NewVerificationService constructs the service. The mailer may be nil; code
// delivery is fire-and-forget either way.
func NewVerificationService(db *gorm.DB, mailer mail.Mailer, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}

	service := &VerificationService{
		db:         db,
		mailer:     mailer,
		codeLength: defaultCodeLength,
		now:        time.Now,
		log:        logger.WithModule("verification"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue creates a new verification code for the email with the given expiry
// window and dispatches it best-effort. It fails with ErrAlreadyVerified when
// the account is already verified and with ErrCodePending when a live code
// exists. Expired codes for the email are swept unconditionally before the
// live-code check, so a stale row never blocks reissuance.
func (s *VerificationService) Issue(ctx context.Context, email string, window time.Duration) (*models.VerificationCode, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("verification service: email is required")
	}
	if window <= 0 {
		return nil, errors.New("verification service: expiry window must be positive")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	switch {
	case err == nil:
		if user.IsEmailVerified {
			return nil, ErrAlreadyVerified
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No account yet: codes may be issued ahead of account creation.
	default:
		return nil, fmt.Errorf("verification service: look up account: %w", err)
	}

	now := s.now()

	if err := s.db.WithContext(ctx).
		Where("email = ? AND expires_at < ?", email, now).
		Delete(&models.VerificationCode{}).Error; err != nil {
		return nil, fmt.Errorf("verification service: sweep expired codes: %w", err)
	}

	var live int64
	if err := s.db.WithContext(ctx).
		Model(&models.VerificationCode{}).
		Where("email = ? AND expires_at > ?", email, now).
		Count(&live).Error; err != nil {
		return nil, fmt.Errorf("verification service: count live codes: %w", err)
	}
	if live > 0 {
		return nil, ErrCodePending
	}

	code, err := crypto.NumericCode(s.codeLength)
	if err != nil {
		return nil, fmt.Errorf("verification service: generate code: %w", err)
	}

	record := models.VerificationCode{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(window),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("verification service: create code: %w", err)
	}

	s.deliver(ctx, email, code, window)

	return &record, nil
}

// Consume validates and retires a verification code. The account mutation
// happens strictly after the validity checks, and the code row is deleted
// only once the account update is confirmed to have matched a row; a code
// for a not-yet-existing account therefore survives for a later attempt.
func (s *VerificationService) Consume(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrCodeInvalid
	}

	var record models.VerificationCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND code = ?", email, code).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCodeInvalid
	}
	if err != nil {
		return fmt.Errorf("verification service: find code: %w", err)
	}

	now := s.now()
	if !record.ExpiresAt.After(now) {
		if err := s.db.WithContext(ctx).Delete(&record).Error; err != nil {
			return fmt.Errorf("verification service: delete expired code: %w", err)
		}
		return ErrCodeExpired
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Updates(map[string]any{
			"is_email_verified": true,
			"updated_at":        now,
		})
	if result.Error != nil {
		return fmt.Errorf("verification service: mark account verified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountMissing
	}

	if err := s.db.WithContext(ctx).Delete(&record).Error; err != nil {
		return fmt.Errorf("verification service: delete consumed code: %w", err)
	}

	return nil
}

// deliver sends the code by email. Delivery failures are logged and never
// propagated: the code is already persisted and the user can request a
// resend.
func (s *VerificationService) deliver(ctx context.Context, email, code string, window time.Duration) {
	if s.mailer == nil {
		return
	}

	message := mail.Message{
		To:      []string{email},
		Subject: "Your verification code",
		Body: fmt.Sprintf(
			"Your verification code is %s.\n\nIt expires in %s. If you did not request this code, you can ignore this message.\n",
			code, window,
		),
	}

	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		s.log.Warn("verification email delivery failed",
			zap.String("email", email),
			zap.Error(err),
		)
	}
}
