package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mkarlsen/signupd/internal/auth"
	"github.com/mkarlsen/signupd/internal/models"
	"github.com/mkarlsen/signupd/pkg/crypto"
	"github.com/mkarlsen/signupd/pkg/logger"
)

// ErrEmailTaken indicates an account already exists for the email.
var ErrEmailTaken = errors.New("account: email already registered")

// AuthResult bundles the outcome of a registration or sign-in.
type AuthResult struct {
	User      *models.User
	Token     string
	IsNewUser bool
}

// AccountOption customises the AccountService.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom time source.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSignupWindow overrides the expiry window of the code issued at registration.
func WithSignupWindow(d time.Duration) AccountOption {
	return func(s *AccountService) {
		if d > 0 {
			s.signupWindow = d
		}
	}
}

// AccountService implements registration, Google sign-in, and
// email-availability checking.
//
// Email comparisons are byte-exact throughout; differently-cased spellings of
// the same address are distinct accounts. That matches the persisted layout's
// uniqueness rule, questionable as it is for real-world email semantics.
type AccountService struct {
	db           *gorm.DB
	verification *VerificationService
	jwt          *auth.JWTService
	signupWindow time.Duration
	now          func() time.Time
	log          *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(db *gorm.DB, verification *VerificationService, jwt *auth.JWTService, opts ...AccountOption) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if verification == nil {
		return nil, errors.New("account service: verification service is required")
	}
	if jwt == nil {
		return nil, errors.New("account service: jwt service is required")
	}

	service := &AccountService{
		db:           db,
		verification: verification,
		jwt:          jwt,
		signupWindow: 24 * time.Hour,
		now:          time.Now,
		log:          logger.WithModule("accounts"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RegisterInput captures the details required to register a new account.
type RegisterInput struct {
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PhoneNumber     string
	MarketingEmails bool
}

// Register creates an unverified account, issues the initial verification
// code with the signup window, and mints a credential for the new account.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, errors.New("account service: email and password are required")
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("account service: check existing email: %w", err)
	}

	digest, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	user := models.User{
		Email:           email,
		FirstName:       strings.TrimSpace(input.FirstName),
		LastName:        strings.TrimSpace(input.LastName),
		PasswordHash:    &digest,
		PhoneNumber:     strings.TrimSpace(input.PhoneNumber),
		MarketingEmails: input.MarketingEmails,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("account service: create account: %w", err)
	}

	if _, err := s.verification.Issue(ctx, email, s.signupWindow); err != nil {
		// A lifecycle refusal here means a concurrent caller beat us to it;
		// the account itself was created, so registration still succeeds.
		if !errors.Is(err, ErrCodePending) && !errors.Is(err, ErrAlreadyVerified) {
			return nil, fmt.Errorf("account service: issue verification code: %w", err)
		}
		s.log.Warn("initial verification code suppressed", zap.String("email", email), zap.Error(err))
	}

	token, err := s.jwt.Mint(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("account service: mint credential: %w", err)
	}

	return &AuthResult{User: &user, Token: token, IsNewUser: true}, nil
}

// GoogleSignInInput carries an external identity assertion from Google.
type GoogleSignInInput struct {
	GoogleID  string
	Email     string
	FirstName string
	LastName  string
	// EmailVerified defaults to true when nil: the identity provider is
	// treated as having already verified the address.
	EmailVerified *bool
}

// GoogleSignIn upserts an account from a Google identity assertion. An
// existing account matched by Google id or email is overwritten in place;
// otherwise a new account without a password digest is created. A fresh
// credential is minted either way.
func (s *AccountService) GoogleSignIn(ctx context.Context, input GoogleSignInInput) (*AuthResult, error) {
	googleID := strings.TrimSpace(input.GoogleID)
	email := strings.TrimSpace(input.Email)
	if googleID == "" || email == "" {
		return nil, errors.New("account service: google id and email are required")
	}

	verified := true
	if input.EmailVerified != nil {
		verified = *input.EmailVerified
	}

	now := s.now()

	var user models.User
	err := s.db.WithContext(ctx).
		Where("google_id = ? OR email = ?", googleID, email).
		Take(&user).Error

	switch {
	case err == nil:
		updates := map[string]any{
			"google_id":         googleID,
			"first_name":        strings.TrimSpace(input.FirstName),
			"last_name":         strings.TrimSpace(input.LastName),
			"is_email_verified": verified,
			"updated_at":        now,
		}
		if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("account service: update account: %w", err)
		}
		user.GoogleID = &googleID
		user.FirstName = strings.TrimSpace(input.FirstName)
		user.LastName = strings.TrimSpace(input.LastName)
		user.IsEmailVerified = verified
		user.UpdatedAt = now

		token, err := s.jwt.Mint(user.ID, user.Email)
		if err != nil {
			return nil, fmt.Errorf("account service: mint credential: %w", err)
		}
		return &AuthResult{User: &user, Token: token, IsNewUser: false}, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:           email,
			FirstName:       strings.TrimSpace(input.FirstName),
			LastName:        strings.TrimSpace(input.LastName),
			GoogleID:        &googleID,
			IsEmailVerified: verified,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("account service: create account: %w", err)
		}

		token, err := s.jwt.Mint(user.ID, user.Email)
		if err != nil {
			return nil, fmt.Errorf("account service: mint credential: %w", err)
		}
		return &AuthResult{User: &user, Token: token, IsNewUser: true}, nil

	default:
		return nil, fmt.Errorf("account service: look up account: %w", err)
	}
}

// CheckAvailability reports whether the email is free. When taken, it derives
// five deterministic alternatives from the current calendar year so clients
// (and tests) get stable suggestions.
func (s *AccountService) CheckAvailability(ctx context.Context, email string) (bool, []string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil, errors.New("account service: email is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("account service: check availability: %w", err)
	}

	return false, s.suggestAlternatives(email), nil
}

func (s *AccountService) suggestAlternatives(email string) []string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return nil
	}

	local, domain := email[:at], email[at+1:]
	year := s.now().Year()

	return []string{
		fmt.Sprintf("%s.%d@%s", local, year, domain),
		fmt.Sprintf("%s_%d@%s", local, year, domain),
		fmt.Sprintf("%s.user@%s", local, domain),
		fmt.Sprintf("%s123@%s", local, domain),
		fmt.Sprintf("%s_official@%s", local, domain),
	}
}
