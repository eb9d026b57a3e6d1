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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"paymob-relay/config"
	"paymob-relay/internal/auth"
	"paymob-relay/internal/database"
	"paymob-relay/internal/handler"
	"paymob-relay/internal/middleware"
	"paymob-relay/internal/repository"
	"paymob-relay/internal/router"
	"paymob-relay/pkg/paymob"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "paymob-relay",
		Short:        "Checkout relay between the storefront and Paymob Accept",
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Authenticate against Paymob once and print the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			client := paymob.NewClient(cfg.Paymob.BaseURL, cfg.Paymob.HTTPTimeout, logger)
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Paymob.HTTPTimeout)
			defer cancel()
			token, err := client.Authenticate(ctx, cfg.Paymob.APIKey)
			if err != nil {
				return err
			}
			if exp, ok := auth.TokenExpiry(token); ok {
				logger.Info("token issued", zap.Time("expires_at", exp))
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting paymob relay",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env),
		zap.String("paymob_base_url", cfg.Paymob.BaseURL),
	)

	var ledger handler.CheckoutRecorder
	if cfg.Database.DSN != "" {
		db, err := database.NewDB(&cfg.Database)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		ledger = repository.NewCheckoutRepository(db)
		logger.Info("checkout ledger enabled")
	} else {
		logger.Info("checkout ledger disabled: set DB_DSN to enable")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := paymob.NewClient(cfg.Paymob.BaseURL, cfg.Paymob.HTTPTimeout, logger)
	session := paymob.NewSession(client, cfg.Paymob.APIKey,
		paymob.WithExpiry(auth.TokenExpiry),
		paymob.WithTTL(cfg.Paymob.TokenTTL),
		paymob.WithLogger(logger),
	)
	limiter := middleware.NewInMemoryRateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	engine := router.Setup(cfg, logger, session, client, ledger, limiter)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
