package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jerif/verification-api/internal/application/admin"
	"github.com/jerif/verification-api/internal/application/campaign"
	"github.com/jerif/verification-api/internal/application/session"
	"github.com/jerif/verification-api/internal/application/verification"
	"github.com/jerif/verification-api/internal/application/veteran"
	"github.com/jerif/verification-api/internal/config"
	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/jerif/verification-api/internal/infrastructure/jwt"
	"github.com/jerif/verification-api/internal/infrastructure/memory"
	"github.com/jerif/verification-api/internal/infrastructure/postgres"
	"github.com/jerif/verification-api/internal/infrastructure/smtp"
	"github.com/jerif/verification-api/internal/infrastructure/veterans"
	"github.com/jerif/verification-api/internal/pkg/ratelimit"
	transporthttp "github.com/jerif/verification-api/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.App.LogLevel)})))

	repos, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	campaignSvc := campaign.NewService(repos.Campaigns, repos.Sessions)
	if cfg.Session.SeedDemo {
		if err := campaignSvc.Seed(ctx); err != nil {
			return err
		}
	}

	secret := []byte(cfg.Admin.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		slog.Warn("ADMIN_JWT_SECRET not set, using a random secret; admin tokens will not survive restarts")
	}
	tokens, err := jwtinfra.NewProvider(secret, cfg.Admin.TokenExpiry)
	if err != nil {
		return err
	}
	adminSvc, err := admin.NewService(cfg.Admin, tokens, repos.Verifications)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.RateLimit.SweepInterval)
	limiter.Start(ctx)
	defer limiter.Stop()

	records := veterans.NewClient(cfg.Provider)

	var notifier verification.ResultNotifier
	if cfg.SMTP.NotificationsEnabled() {
		notifier = smtp.NewResultNotifier(smtp.NewMailer(cfg.SMTP))
	} else {
		slog.Info("SMTP_HOST not set, result notifications disabled")
	}

	verifySvc := verification.NewService(verification.ServiceDeps{
		Sessions:        repos.Sessions,
		Verifications:   repos.Verifications,
		Audit:           repos.Audit,
		Limiter:         limiter,
		Provider:        verification.NewProvider(records),
		Notifier:        notifier,
		Window:          cfg.RateLimit.Window,
		MaxRequests:     cfg.RateLimit.MaxRequests,
		ProviderTimeout: cfg.Provider.Timeout,
	})

	deps := &transporthttp.Deps{
		Verification: verifySvc,
		Sessions: session.NewService(session.Deps{
			Sessions:  repos.Sessions,
			Campaigns: repos.Campaigns,
			Audit:     repos.Audit,
			BaseURL:   cfg.App.PublicBaseURL,
			LinkTTL:   cfg.Session.LinkTTL,
		}),
		Campaigns: campaignSvc,
		Veterans:  veteran.NewService(records, cfg.Provider.ListLimit, cfg.Provider.CacheTTL),
		Admin:     adminSvc,
		Tokens:    tokens,
	}

	srv := &http.Server{
		Addr:         cfg.App.ServerAddr(),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.App.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	if err := verifySvc.Close(shutdownCtx); err != nil {
		slog.Warn("pending result notifications abandoned", "err", err)
	}
	slog.Info("server stopped")
	return nil
}

// openStore selects the persistence backend named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (domain.Repositories, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverDynamo:
		client, err := dynamo.NewClient(ctx, cfg.AWS)
		if err != nil {
			return domain.Repositories{}, nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.Repositories(client, cfg.DynamoTables), func() {}, nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return domain.Repositories{}, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return domain.Repositories{}, nil, err
		}
		return postgres.Repositories(db), func() { _ = db.Close() }, nil
	default:
		slog.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore().Repositories(), func() {}, nil
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
