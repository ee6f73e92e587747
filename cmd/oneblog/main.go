package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	gormlogger "gorm.io/gorm/logger"

	"github.com/panyam/oneblog"
	"github.com/panyam/oneblog/config"
	"github.com/panyam/oneblog/oauth2"
	gormstore "github.com/panyam/oneblog/stores/gorm"
)

func main() {
	cfg, err := config.Load(config.DotenvPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := gormstore.Open(cfg.DBDriver, cfg.DBDSN, gormstore.NewLogger(gormLogLevel(cfg)))
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	templates, err := oneblog.LoadTemplates()
	if err != nil {
		return err
	}
	loc, _ := cfg.Location()

	app := &oneblog.App{
		Users:          gormstore.NewUserStore(db),
		Posts:          gormstore.NewPostStore(db),
		Templates:      templates,
		JWTSecretKey:   []byte(cfg.SecretKey),
		SessionTimeout: cfg.SessionTimeout,
		SecureCookies:  cfg.SecureCookies,
		Location:       loc,
		Logger:         logger,
	}
	app.EnsureDefaults()

	if cfg.GoogleEnabled() {
		google := oauth2.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL(), app.SaveUserAndRedirect)
		google.OnError = app.FederatedLoginFailed
		google.SecureCookies = cfg.SecureCookies
		app.Google = google
	} else {
		logger.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, Google login disabled")
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr, "db_driver", cfg.DBDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func gormLogLevel(cfg *config.Config) gormlogger.LogLevel {
	lvl, _ := cfg.SlogLevel()
	if lvl <= slog.LevelDebug {
		return gormlogger.Info
	}
	return gormlogger.Warn
}
