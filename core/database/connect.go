package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/geopal/core/logger"
)

const (
	component        = "db"
	migrateComponent = "db.migrate"
	connectTimeout   = 5 * time.Second
)

// Connect opens the journal database, sizes the pool and verifies the
// connection. The returned DB is closed on any failure.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	target := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL())
	if err != nil {
		logger.Error(ctx, component, "db.connect", append(target,
			slog.String("status", "fail"),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error(ctx, component, "db.ping", append(target,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db ping: %w", err)
	}

	logger.Info(ctx, component, "db.connect", append(target,
		slog.String("status", "ok"),
		slog.Int("count", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)...)
	return db, nil
}

// WaitForPostgres pings dsn every interval until it answers, timeout passes
// or ctx ends.
func WaitForPostgres(ctx context.Context, dsn string, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return nil
		}
		logger.Debug(ctx, migrateComponent, "db.wait",
			slog.String("status", "retry"),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-ticker.C:
		}
	}
}
