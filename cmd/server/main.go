package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mkarlsen/signupd/internal/api"
	"github.com/mkarlsen/signupd/internal/app"
	"github.com/mkarlsen/signupd/internal/app/maintenance"
	"github.com/mkarlsen/signupd/internal/auth"
	"github.com/mkarlsen/signupd/internal/database"
	"github.com/mkarlsen/signupd/internal/handlers"
	"github.com/mkarlsen/signupd/internal/services"
	"github.com/mkarlsen/signupd/pkg/logger"
	"github.com/mkarlsen/signupd/pkg/mail"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "signupd:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.WithModule("main")

	generated, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return err
	}
	for key := range generated {
		log.Warn("generated runtime secret; tokens will not survive a restart", zap.String("key", key))
	}

	db, err := database.Open(databaseConfig(cfg))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{
		Enabled:  cfg.Email.SMTP.Enabled,
		Host:     cfg.Email.SMTP.Host,
		Port:     cfg.Email.SMTP.Port,
		Username: cfg.Email.SMTP.Username,
		Password: cfg.Email.SMTP.Password,
		From:     cfg.Email.SMTP.From,
		UseTLS:   cfg.Email.SMTP.UseTLS,
		Timeout:  cfg.Email.SMTP.Timeout,
	})
	if err != nil {
		return fmt.Errorf("configure mailer: %w", err)
	}

	verification, err := services.NewVerificationService(db, mailer,
		services.WithCodeLength(cfg.Verification.CodeLength))
	if err != nil {
		return err
	}

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return err
	}

	accounts, err := services.NewAccountService(db, verification, jwtService,
		services.WithSignupWindow(cfg.Verification.SignupWindow))
	if err != nil {
		return err
	}

	var google *auth.GoogleVerifier
	if cfg.Auth.Google.ClientID != "" {
		google, err = auth.NewGoogleVerifier(ctx, cfg.Auth.Google.ClientID, auth.GoogleVerifierOptions{})
		if err != nil {
			return fmt.Errorf("configure google verifier: %w", err)
		}
		log.Info("google id token verification enabled")
	} else {
		log.Warn("google client id not configured; asserted identity fields are trusted")
	}

	authHandler, err := handlers.NewAuthHandler(accounts, verification, google, cfg.Verification.ResendWindow)
	if err != nil {
		return err
	}

	router, err := api.NewRouter(api.RouterOptions{
		Config: cfg,
		DB:     db,
		Auth:   authHandler,
	})
	if err != nil {
		return err
	}

	cleaner, err := maintenance.NewCleaner(db)
	if err != nil {
		return err
	}
	if err := cleaner.Start(); err != nil {
		return err
	}
	defer cleaner.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	return nil
}

func databaseConfig(cfg *app.Config) database.Config {
	out := database.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}

	hostCfg := cfg.Database.Postgres
	if cfg.Database.Driver == "mysql" {
		hostCfg = cfg.Database.MySQL
	}
	out.Host = hostCfg.Host
	out.Port = hostCfg.Port
	out.User = hostCfg.Username
	out.Password = hostCfg.Password
	out.Name = hostCfg.Database

	return out
}
