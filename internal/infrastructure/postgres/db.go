// Package postgres is the SQL storage backend: sqlx over lib/pq with goose
// migrations embedded in the binary.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/jerif/verification-api/internal/config"
	"github.com/jerif/verification-api/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open connects, configures the pool and pings.
func Open(ctx context.Context, cfg config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	slog.Info("connected to postgres", "max_conns", cfg.MaxConns)
	return db, nil
}

// Migrate applies all pending embedded migrations.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Repositories builds the domain repositories over db.
func Repositories(db *sqlx.DB) domain.Repositories {
	return domain.Repositories{
		Campaigns:     &CampaignRepo{db: db},
		Sessions:      &SessionRepo{db: db},
		Verifications: &VerificationRepo{db: db},
		Audit:         &AuditRepo{db: db},
	}
}
