// chatline - terminal chat client with automatic reconnect
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/chatline/internal/api"
	"github.com/ashureev/chatline/internal/client"
	"github.com/ashureev/chatline/internal/config"
	"github.com/ashureev/chatline/internal/console"
	"github.com/ashureev/chatline/internal/store"
	"github.com/ashureev/chatline/internal/transport"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "chatline",
	Short:        "Terminal chat client with automatic reconnect",
	SilenceUsage: true,
	RunE:         runChat,
}

var (
	flagServerURL  string
	flagName       string
	flagStatusAddr string
	flagLogLevel   string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServerURL, "server-url", "", "chat server WebSocket URL (overrides CHAT_SERVER_URL)")
	flags.StringVar(&flagName, "name", "", "log in with this display name on start")
	flags.StringVar(&flagStatusAddr, "status-addr", "", "serve the read-only status API on this address (overrides STATUS_ADDR)")
	flags.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout belongs to the console.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sessions store.SessionStore
	if cfg.PersistSession {
		s, err := store.NewSQLite(cfg.SessionDBPath, logger)
		if err != nil {
			slog.Warn("Session store unavailable, running without persistence", "error", err)
		} else {
			defer func() {
				if closeErr := s.Close(); closeErr != nil {
					slog.Error("Failed to close session store", "error", closeErr)
				}
			}()
			if err := s.Ping(ctx); err != nil {
				slog.Warn("Session store health check failed", "error", err)
			}
			sessions = s
		}
	}

	dialer := transport.NewWebSocketDialer(cfg.ServerURL)
	c := client.New(dialer, client.Options{
		Policy:      cfg.ReconnectPolicy(),
		DialTimeout: cfg.DialTimeout,
		EventBuffer: cfg.EventBuffer,
	}, sessions, logger)
	defer c.Close()

	term := console.New(c, os.Stdout, logger)
	sub := c.Events(0)
	go term.PrintEvents(sub.C())

	if flagName != "" {
		if _, err := c.Login(ctx, flagName); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           api.NewRouter(c, sessions, cfg.StatusOrigins, logger),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			slog.Info("Status API listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Status API failed", "error", err)
			}
		}()
	}

	slog.Info("Starting client", "server_url", cfg.ServerURL, "policy", cfg.Reconnect.Policy)

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	consoleDone := make(chan error, 1)
	go func() { consoleDone <- term.Run(ctx, os.Stdin) }()

	var exitErr error
	select {
	case <-ctx.Done():
	case err := <-consoleDone:
		if err != nil {
			exitErr = err
		}
	case err := <-runErr:
		exitErr = err
	}
	stop()

	slog.Info("Shutting down gracefully...")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Status API forced to shutdown", "error", err)
		}
	}

	if exitErr != nil {
		slog.Error("Client stopped", "error", exitErr)
		return exitErr
	}
	slog.Info("Client stopped")
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("server-url") {
		cfg.ServerURL = flagServerURL
	}
	if flags.Changed("status-addr") {
		cfg.StatusAddr = flagStatusAddr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}
