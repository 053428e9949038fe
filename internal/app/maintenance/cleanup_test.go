package maintenance

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mkarlsen/signupd/internal/models"
)

func TestRunOnceRemovesOnlyExpiredRows(t *testing.T) {
	db := openCleanerTestDB(t)
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	cleaner, err := NewCleaner(db, WithCleanerClock(func() time.Time { return current }))
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.VerificationCode{
		Email:     "stale@x.com",
		Code:      "111111",
		ExpiresAt: current.Add(-time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.VerificationCode{
		Email:     "live@x.com",
		Code:      "222222",
		ExpiresAt: current.Add(10 * time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.Session{
		UserID:    "00000000-0000-0000-0000-000000000001",
		Token:     "expired-session",
		ExpiresAt: current.Add(-time.Hour),
	}).Error)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var codes int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Count(&codes).Error)
	require.EqualValues(t, 1, codes)

	var remaining models.VerificationCode
	require.NoError(t, db.Take(&remaining).Error)
	require.Equal(t, "live@x.com", remaining.Email)

	var sessions int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessions).Error)
	require.EqualValues(t, 0, sessions)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	db := openCleanerTestDB(t)
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	cleaner, err := NewCleaner(db, WithCleanerClock(func() time.Time { return current }))
	require.NoError(t, err)

	require.NoError(t, cleaner.RunOnce(context.Background()))
	require.NoError(t, cleaner.RunOnce(context.Background()))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	db := openCleanerTestDB(t)

	cleaner, err := NewCleaner(db, WithSchedule("not a schedule"))
	require.NoError(t, err)

	require.Error(t, cleaner.Start())
}

func openCleanerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.VerificationCode{}, &models.Session{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
