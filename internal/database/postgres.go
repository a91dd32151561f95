package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/config"
)

type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
		)
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL")

	return &PostgresDB{Pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		logrus.Info("PostgreSQL connection closed")
	}
}

func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Migrate creates the decision and outcome tables when they do not exist.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			id UUID PRIMARY KEY,
			symbol TEXT NOT NULL,
			signal TEXT NOT NULL,
			band INT NOT NULL,
			p_yes DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			edge DOUBLE PRECISION NOT NULL,
			ev DOUBLE PRECISION NOT NULL,
			is_bettable BOOLEAN NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			predicted_price DOUBLE PRECISION NOT NULL,
			distance_to_strike DOUBLE PRECISION,
			volatility DOUBLE PRECISION NOT NULL,
			reasons TEXT[] NOT NULL DEFAULT '{}',
			market_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_symbol_created
			ON decisions (symbol, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			decision_id UUID PRIMARY KEY REFERENCES decisions (id),
			predicted_prob DOUBLE PRECISION NOT NULL,
			outcome INT NOT NULL,
			resolved_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
