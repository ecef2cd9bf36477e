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

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/yellowbridge/lamentwall/internal/apiclient"
	"github.com/yellowbridge/lamentwall/internal/app/handoff"
	"github.com/yellowbridge/lamentwall/internal/app/identity"
	"github.com/yellowbridge/lamentwall/internal/app/locale"
	"github.com/yellowbridge/lamentwall/internal/app/web"
	"github.com/yellowbridge/lamentwall/internal/platform/auth"
	"github.com/yellowbridge/lamentwall/internal/platform/dbpool"
	"github.com/yellowbridge/lamentwall/internal/platform/env"
	"github.com/yellowbridge/lamentwall/internal/platform/logging"
	"github.com/yellowbridge/lamentwall/internal/platform/natsutil"
)

func main() {
	cfg, err := env.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("web exited", zap.Error(err))
	}
}

func run(cfg env.Config, log *zap.Logger) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		pool     *pgxpool.Pool
		prefs    locale.PreferenceRepository = locale.NewMemoryRepository()
		accounts identity.Repository         = identity.NewMemoryRepository()
	)
	if cfg.DatabaseURL != "" {
		p, err := dbpool.New(runCtx, cfg.DatabaseURL, cfg.DB)
		if err != nil {
			return err
		}
		defer p.Close()
		pool = p

		pgPrefs := locale.NewPostgresRepository(pool)
		pgAccounts := identity.NewPostgresRepository(pool)
		if err := waitForSchema(runCtx, log, 30*time.Second, pgPrefs.EnsureSchema, pgAccounts.EnsureSchema); err != nil {
			return err
		}
		prefs, accounts = pgPrefs, pgAccounts
		log.Info("postgres enabled", zap.Int("max_conns", cfg.DB.MaxConns))
	}

	var (
		client *natsutil.Client
		slot   handoff.Slot = handoff.NewMemorySlot(cfg.HandoffTTL)
	)
	if cfg.NATSURL != "" {
		c, err := natsutil.ConnectJetStreamWithRetry(cfg.NATSURL, cfg.NATSConnectTimeout)
		if err != nil {
			return err
		}
		defer c.Close()
		client = c

		kv, err := client.Bucket(cfg.HandoffBucket, cfg.HandoffTTL)
		if err != nil {
			return fmt.Errorf("open handoff bucket: %w", err)
		}
		slot = handoff.NewKVSlot(kv)
		log.Info("handoff slot on jetstream", zap.String("bucket", cfg.HandoffBucket))
	}

	sessions := auth.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	var identitySvc *identity.Service
	if cfg.OAuthEnabled() {
		oauthCfg := identity.NewGitHubConfig(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.OAuthRedirectURL)
		identitySvc = identity.NewService(oauthCfg, accounts, sessions)
	} else {
		log.Warn("github sign-in disabled; dashboard and petition-from-prayer need GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET")
	}

	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	handler := web.NewHandler(cfg, log, api, slot, prefs, identitySvc, sessions)
	handler.Ready = func(ctx context.Context) error {
		return checkReadiness(ctx, pool, client)
	}

	server := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("web listening", zap.String("addr", cfg.WebAddr), zap.String("api", cfg.APIBaseURL))
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

func waitForSchema(ctx context.Context, log *zap.Logger, timeout time.Duration, steps ...func(context.Context) error) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		lastErr = nil
		for _, step := range steps {
			attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := step(attemptCtx)
			cancel()
			if err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		log.Info("waiting for schema readiness", zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return lastErr
}

func checkReadiness(ctx context.Context, pool *pgxpool.Pool, client *natsutil.Client) error {
	if client != nil {
		if err := client.Ready(); err != nil {
			return err
		}
	}
	if pool == nil {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()
	if err := pool.Ping(checkCtx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}
