package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/signupd/internal/models"
)

func TestOpenInMemorySQLiteAndMigrate(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))

	require.True(t, db.Migrator().HasTable(&models.User{}))
	require.True(t, db.Migrator().HasTable(&models.VerificationCode{}))
	require.True(t, db.Migrator().HasTable(&models.Session{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "signupd",
		Password: "secret",
		Name:     "accounts",
		Host:     "db.internal",
		Port:     5433,
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=db.internal")
	require.Contains(t, dsn, "port=5433")
	require.Contains(t, dsn, "sslmode=disable")

	_, err = buildPostgresDSN(Config{Host: "db.internal"})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "signupd", Name: "accounts"})
	require.NoError(t, err)
	require.Contains(t, dsn, "signupd@tcp(127.0.0.1:3306)/accounts")
	require.Contains(t, dsn, "parseTime=True")

	custom, err := buildMySQLDSN(Config{DSN: "user:pass@tcp(h:3306)/db"})
	require.NoError(t, err)
	require.Equal(t, "user:pass@tcp(h:3306)/db", custom)
}
