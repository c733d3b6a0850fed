package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/geopal/core/logger"
)

// RunMigrations applies every pending up migration from cfg.MigrationsDir.
// Cancelling ctx stops after the migration in progress.
func RunMigrations(ctx context.Context, cfg Config) error {
	dsn := cfg.URL()
	if err := WaitForPostgres(ctx, dsn, 30*time.Second, 2*time.Second); err != nil {
		logger.Error(ctx, migrateComponent, "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files, err := upMigrations(dir)
	if err != nil {
		return err
	}
	logger.Debug(ctx, migrateComponent, "db.migrate.resolve",
		slog.String("path", dir),
		slog.Int("count", len(files)),
	)

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, migrateComponent, "db.migrate.close",
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, migrateComponent, "db.migrate",
			slog.String("status", "fail"),
			slog.Duration("duration", took),
			slog.String("err", upErr.Error()),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	to, _, _ := m.Version()
	applied := appliedBetween(files, uint64(from), uint64(to))
	logger.Info(ctx, migrateComponent, "db.migrate",
		slog.String("status", "ok"),
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
		slog.Int("count", len(applied)),
		slog.String("payload", strings.Join(applied, ",")),
		slog.Duration("duration", took),
	)
	return nil
}

// upMigrations lists the *.up.sql files of dir in version order.
func upMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return version(names[i]) < version(names[j]) })
	return names, nil
}

func version(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween returns the files with versions in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := version(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
