package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"formrelay/internal/config"
	"formrelay/internal/history"
	"formrelay/internal/presence"
	"formrelay/internal/ratelimit"
	"formrelay/internal/relay"
	"formrelay/internal/security"
	"formrelay/internal/server"
	"formrelay/pkg/fileutil"

	"github.com/spf13/cobra"
)

const (
	defaultConfigName = "formrelay.yaml"
	shutdownGrace     = 10 * time.Second
)

var (
	configFile    string
	logFile       string
	dbPath        string
	host          string
	port          int
	pingRateLimit int
	debugLogging  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server for contact form relaying and machine presence.

DISCORD_WEBHOOK_URL must be set in the environment, a .env file or the config file.
Set PING_USER_ID to mention a Discord user on every submission.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to formrelay.yaml (searched in ./, ./config and /etc/formrelay by default)")
	serveCmd.Flags().StringVar(&logFile, "log", "", "Also append JSON logs to this file")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for the submission audit trail (disabled when empty)")
	serveCmd.Flags().StringVar(&host, "host", config.DefaultHost, "Host to bind to")
	serveCmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().IntVar(&pingRateLimit, "ping-rate-limit", server.DefaultPingRateLimit, "Per-IP requests per minute on /ping and /status (0 disables)")
	serveCmd.Flags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		configFile = fileutil.FindConfigOptional(defaultConfigName)
	}

	cfg, err := config.Load(configFile, fileutil.DefaultEnvFiles()...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger, closeLog, err := setupLogging(cfg.LogFile, debugLogging)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	logger.Info("Starting formrelay", "version", version)
	if configFile != "" {
		logger.Info("Loaded configuration file", "config", configFile)
		if err := security.ValidateSecurePermissions(configFile); err != nil {
			logger.Warn("Config file permissions are too open", "error", err)
		}
	}
	if err := security.ValidateMentionID(cfg.MentionID); err != nil {
		logger.Warn("PING_USER_ID does not look like a Discord user ID, mentions may not resolve", "error", err)
	}

	var hist *history.History
	if cfg.DBPath != "" {
		if err := security.CreateSecureDir(filepath.Dir(cfg.DBPath), security.PermDirectory); err != nil {
			return fmt.Errorf("failed to prepare database directory: %w", err)
		}
		logger.Info("Initializing submission audit trail", "db", cfg.DBPath)
		hist, err = history.NewHistory(cfg.DBPath)
		if err != nil {
			logger.Error("Failed to initialize audit database", "error", err)
			return fmt.Errorf("failed to initialize audit database: %w", err)
		}
	}

	limiter := ratelimit.New(
		ratelimit.WithCooldown(cfg.RateLimit.Cooldown),
		ratelimit.WithMaxRequests(cfg.RateLimit.MaxRequests),
	)
	tracker := presence.NewTracker().WithThreshold(cfg.OnlineThreshold)
	rel := relay.New(cfg.WebhookURL, cfg.MentionID,
		relay.WithHTTPClient(&http.Client{Timeout: cfg.WebhookTimeout}))

	srv := server.NewServer(limiter, tracker, rel, hist, logger)
	srv.PingRateLimit = pingRateLimit

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RateLimit.SweepInterval > 0 {
		go limiter.Run(ctx, cfg.RateLimit.SweepInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", "error", err)
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// applyFlagOverrides lets explicitly set flags win over file and environment
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("log") {
		cfg.LogFile = logFile
	}
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
}

// setupLogging configures slog JSON logging to stdout and, when logPath is
// set, to an append-only file. The returned func closes the file.
func setupLogging(logPath string, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}

	if logPath != "" {
		if err := security.CreateSecureDir(filepath.Dir(logPath), security.PermDirectory); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := security.OpenAppendFile(logPath, security.PermLogFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}

		out = io.MultiWriter(os.Stdout, file)
		closeFn = func() { file.Close() }
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})

	return slog.New(handler), closeFn, nil
}
