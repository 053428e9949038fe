package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mkarlsen/signupd/internal/auth"
	"github.com/mkarlsen/signupd/internal/models"
	"github.com/mkarlsen/signupd/internal/services"
	appErrors "github.com/mkarlsen/signupd/pkg/errors"
	"github.com/mkarlsen/signupd/pkg/logger"
	"github.com/mkarlsen/signupd/pkg/metrics"
	"github.com/mkarlsen/signupd/pkg/response"
)

// AuthHandler exposes the account endpoints: registration, Google sign-in,
// email availability, and the verification code pair.
type AuthHandler struct {
	accounts     *services.AccountService
	verification *services.VerificationService
	google       *auth.GoogleVerifier
	resendWindow time.Duration
	log          *zap.Logger
}

// NewAuthHandler constructs the handler. The Google verifier may be nil, in
// which case asserted profile fields are trusted as-is.
func NewAuthHandler(accounts *services.AccountService, verification *services.VerificationService, google *auth.GoogleVerifier, resendWindow time.Duration) (*AuthHandler, error) {
	if accounts == nil {
		return nil, errors.New("auth handler: account service is required")
	}
	if verification == nil {
		return nil, errors.New("auth handler: verification service is required")
	}
	if resendWindow <= 0 {
		resendWindow = 15 * time.Minute
	}

	return &AuthHandler{
		accounts:     accounts,
		verification: verification,
		google:       google,
		resendWindow: resendWindow,
		log:          logger.WithModule("handlers.auth"),
	}, nil
}

type authResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	IsNewUser bool         `json:"is_new_user"`
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PhoneNumber     string `json:"phone_number" validate:"omitempty,min=7"`
	MarketingEmails bool   `json:"marketing_emails"`
}

// Register creates a new unverified account and returns the account together
// with a freshly minted credential.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		metrics.Registrations.WithLabelValues("error").Inc()
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		PhoneNumber:     req.PhoneNumber,
		MarketingEmails: req.MarketingEmails,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			metrics.Registrations.WithLabelValues("conflict").Inc()
			response.Error(c, appErrors.ErrEmailTaken)
			return
		}
		metrics.Registrations.WithLabelValues("error").Inc()
		h.log.Error("registration failed", zap.Error(err))
		response.Error(c, appErrors.Wrap(err, "Registration failed"))
		return
	}

	metrics.Registrations.WithLabelValues("success").Inc()
	response.Success(c, http.StatusCreated, authResponse{
		User:      result.User,
		Token:     result.Token,
		IsNewUser: result.IsNewUser,
	})
}

type googleSignInRequest struct {
	IDToken       string `json:"id_token" validate:"omitempty"`
	GoogleID      string `json:"google_id" validate:"required_without=IDToken"`
	Email         string `json:"email" validate:"required_without=IDToken,omitempty,email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified *bool  `json:"email_verified"`
}

// GoogleSignIn upserts an account from a Google identity. When a verifier is
// configured and an ID token is supplied, the token is validated against the
// Google issuer and its claims override the asserted fields.
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	var req googleSignInRequest
	if !bindAndValidate(c, &req) {
		metrics.GoogleSignIns.WithLabelValues("error").Inc()
		return
	}

	input := services.GoogleSignInInput{
		GoogleID:      req.GoogleID,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		EmailVerified: req.EmailVerified,
	}

	if h.google != nil && req.IDToken != "" {
		identity, err := h.google.VerifyIDToken(c.Request.Context(), req.IDToken)
		if err != nil {
			metrics.GoogleSignIns.WithLabelValues("error").Inc()
			h.log.Warn("google id token rejected", zap.Error(err))
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		verified := identity.EmailVerified
		input = services.GoogleSignInInput{
			GoogleID:      identity.Subject,
			Email:         identity.Email,
			FirstName:     identity.GivenName,
			LastName:      identity.FamilyName,
			EmailVerified: &verified,
		}
	}

	result, err := h.accounts.GoogleSignIn(c.Request.Context(), input)
	if err != nil {
		metrics.GoogleSignIns.WithLabelValues("error").Inc()
		h.log.Error("google sign-in failed", zap.Error(err))
		response.Error(c, appErrors.Wrap(err, "Google sign-in failed"))
		return
	}

	outcome := "existing"
	if result.IsNewUser {
		outcome = "new"
	}
	metrics.GoogleSignIns.WithLabelValues(outcome).Inc()

	response.Success(c, http.StatusOK, authResponse{
		User:      result.User,
		Token:     result.Token,
		IsNewUser: result.IsNewUser,
	})
}

type checkEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type checkEmailResponse struct {
	Available   bool     `json:"available"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// CheckEmail reports whether the email is free to register. Taken addresses
// come back with deterministic alternatives.
func (h *AuthHandler) CheckEmail(c *gin.Context) {
	var req checkEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	available, suggestions, err := h.accounts.CheckAvailability(c.Request.Context(), req.Email)
	if err != nil {
		h.log.Error("availability check failed", zap.Error(err))
		response.Error(c, appErrors.Wrap(err, "Availability check failed"))
		return
	}

	response.Success(c, http.StatusOK, checkEmailResponse{
		Available:   available,
		Suggestions: suggestions,
	})
}

type sendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SendVerificationCode issues a fresh verification code for the email using
// the resend window. Reissuance is refused while a live code exists.
func (h *AuthHandler) SendVerificationCode(c *gin.Context) {
	var req sendVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	_, err := h.verification.Issue(c.Request.Context(), req.Email, h.resendWindow)
	switch {
	case err == nil:
		metrics.VerificationCodes.WithLabelValues("issued").Inc()
		response.Success(c, http.StatusOK, gin.H{"message": "Verification code sent"})
	case errors.Is(err, services.ErrAlreadyVerified):
		response.Error(c, appErrors.ErrEmailAlreadyVerified)
	case errors.Is(err, services.ErrCodePending):
		metrics.VerificationCodes.WithLabelValues("suppressed").Inc()
		response.Error(c, appErrors.ErrVerificationPending)
	default:
		h.log.Error("verification code issuance failed", zap.Error(err))
		response.Error(c, appErrors.Wrap(err, "Could not send verification code"))
	}
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"verification_code" validate:"required,len=6,numeric"`
}

// VerifyEmail consumes a verification code and marks the account verified.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.verification.Consume(c.Request.Context(), req.Email, req.Code)
	switch {
	case err == nil:
		metrics.VerificationCodes.WithLabelValues("verified").Inc()
		response.Success(c, http.StatusOK, gin.H{"message": "Email verified"})
	case errors.Is(err, services.ErrCodeInvalid):
		metrics.VerificationCodes.WithLabelValues("invalid").Inc()
		response.Error(c, appErrors.ErrInvalidCode)
	case errors.Is(err, services.ErrCodeExpired):
		metrics.VerificationCodes.WithLabelValues("expired").Inc()
		response.Error(c, appErrors.ErrCodeExpired)
	case errors.Is(err, services.ErrAccountMissing):
		metrics.VerificationCodes.WithLabelValues("orphaned").Inc()
		response.Error(c, appErrors.ErrAccountNotFound)
	default:
		h.log.Error("email verification failed", zap.Error(err))
		response.Error(c, appErrors.Wrap(err, "Email verification failed"))
	}
}
