package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mkarlsen/signupd/internal/models"
	"github.com/mkarlsen/signupd/pkg/logger"
)

// DefaultSchedule runs the sweep every fifteen minutes.
const DefaultSchedule = "*/15 * * * *"

// CleanerOption customises the Cleaner.
type CleanerOption func(*Cleaner)

// WithSchedule overrides the cron schedule.
func WithSchedule(spec string) CleanerOption {
	return func(c *Cleaner) {
		if spec != "" {
			c.schedule = spec
		}
	}
}

// WithCleanerClock injects a custom time source.
func WithCleanerClock(clock func() time.Time) CleanerOption {
	return func(c *Cleaner) {
		if clock != nil {
			c.now = clock
		}
	}
}

// Cleaner periodically removes expired verification codes and sessions.
// Issuance already sweeps per-email, so this is a safety net for rows whose
// email is never touched again, such as codes issued for abandoned signups.
type Cleaner struct {
	db       *gorm.DB
	cron     *cron.Cron
	schedule string
	now      func() time.Time
	log      *zap.Logger
}

// NewCleaner constructs the cleaner.
func NewCleaner(db *gorm.DB, opts ...CleanerOption) (*Cleaner, error) {
	if db == nil {
		return nil, errors.New("cleaner: db is required")
	}

	c := &Cleaner{
		db:       db,
		schedule: DefaultSchedule,
		now:      time.Now,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Start registers the sweep with the cron scheduler and begins running it.
func (c *Cleaner) Start() error {
	if c.cron != nil {
		return errors.New("cleaner: already started")
	}

	runner := cron.New()
	_, err := runner.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := c.RunOnce(ctx); err != nil {
			c.log.Warn("maintenance sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cleaner: register schedule %q: %w", c.schedule, err)
	}

	runner.Start()
	c.cron = runner
	c.log.Info("maintenance sweep scheduled", zap.String("schedule", c.schedule))
	return nil
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
func (c *Cleaner) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.cron = nil
}

// RunOnce performs a single sweep. Both tables are attempted even when one
// fails; errors are combined.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	now := c.now()
	var errs error

	codes := c.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.VerificationCode{})
	if codes.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("sweep verification codes: %w", codes.Error))
	}

	sessions := c.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.Session{})
	if sessions.Error != nil {
		errs = multierr.Append(errs, fmt.Errorf("sweep sessions: %w", sessions.Error))
	}

	if errs == nil && (codes.RowsAffected > 0 || sessions.RowsAffected > 0) {
		c.log.Info("maintenance sweep removed expired rows",
			zap.Int64("verification_codes", codes.RowsAffected),
			zap.Int64("sessions", sessions.RowsAffected),
		)
	}

	return errs
}
