// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the application together and runs the HTTP server.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"github.com/millwardesque/parkbench/internal/config"
	"github.com/millwardesque/parkbench/internal/cron"
	"github.com/millwardesque/parkbench/internal/database"
	"github.com/millwardesque/parkbench/internal/events"
	"github.com/millwardesque/parkbench/internal/handlers"
	"github.com/millwardesque/parkbench/internal/repository"
	"github.com/millwardesque/parkbench/internal/roster"
	authsvc "github.com/millwardesque/parkbench/internal/services/auth"
	"github.com/millwardesque/parkbench/internal/services/checkin"
	"github.com/millwardesque/parkbench/internal/services/email"
	"github.com/millwardesque/parkbench/internal/services/session"
	"github.com/millwardesque/parkbench/internal/services/token"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Domain wiring: repository, cache, broadcaster, engine, services
	repo := repository.New(db)
	broadcaster := events.NewBroadcaster()
	cache := roster.New(repo.ActiveRoster, time.Duration(cfg.Checkin.RosterTTLSeconds)*time.Second)
	engine := checkin.NewEngine(repo, cache, broadcaster)

	tokens := token.NewService(repo)
	mailer, err := email.NewService(&cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to set up email: %w", err)
	}
	auth := authsvc.NewService(repo, tokens, mailer, cfg.Server.BaseURL)

	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	sessions, err := session.NewManager(&cfg.Session, secure)
	if err != nil {
		return fmt.Errorf("failed to set up sessions: %w", err)
	}

	// Maintenance loop
	runner := cron.NewRunner(repo, engine, time.Duration(cfg.Cron.IntervalSeconds)*time.Second)
	runner.Start(ctx)
	defer runner.Stop()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg, sessions, repo)
	setupRoutes(e, repo, engine, auth, sessions, broadcaster)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, engine *checkin.Engine, auth *authsvc.Service, sessions *session.Manager, broadcaster *events.Broadcaster) {
	h := handlers.New(repo)
	checkinHandler := handlers.NewCheckinHandler(engine)
	authHandler := handlers.NewAuthHandler(auth, sessions)
	visitorsHandler := handlers.NewVisitorsHandler(repo)
	sseHandler := handlers.NewSSEHandler(broadcaster)
	cronHandler := handlers.NewCronHandler(repo)

	// Public routes
	e.GET("/health", h.Health)

	// Auth flows
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/signin", authHandler.SignIn)
	e.GET("/auth/magic", authHandler.Magic)
	e.GET("/auth/verify", authHandler.VerifyEmail)

	// Signed-in routes
	signedIn := e.Group("", requireAuth())
	signedIn.POST("/auth/signout", authHandler.SignOut)
	signedIn.POST("/auth/resend-verification", authHandler.ResendVerification)
	signedIn.GET("/api/parks", checkinHandler.Roster)
	signedIn.GET("/api/locations", h.Locations)
	signedIn.GET("/api/events", sseHandler.Events)
	signedIn.GET("/visitors", visitorsHandler.List)
	signedIn.POST("/visitors", visitorsHandler.Create)
	signedIn.DELETE("/visitors/:id", visitorsHandler.Delete)
	signedIn.GET("/admin/cron", cronHandler.Status)

	// Check-in operations need a verified email
	verified := e.Group("", requireVerified())
	verified.POST("/checkin", checkinHandler.CheckIn)
	verified.POST("/checkout", checkinHandler.CheckOut)
	verified.POST("/checkin-all", checkinHandler.CheckInAll)
	verified.POST("/checkout-all", checkinHandler.CheckOutAll)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		// HTTPS on :443, HTTP-01 challenge + redirect on :80
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP→HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
