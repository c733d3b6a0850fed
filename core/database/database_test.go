package database

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDisabledKeepsZeroValues(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, Config{}, cfg)
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{Enabled: true, Host: "db", User: "geopal", Name: "geopal"}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 4, cfg.MaxConnections)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
}

func TestNormalizeRequiresTarget(t *testing.T) {
	cfg := Config{Enabled: true, Host: "db"}
	assert.Error(t, cfg.Normalize())
}

func TestURLEscapesCredentials(t *testing.T) {
	cfg := Config{Host: "db", Port: "5433", User: "geo pal", Password: "p@ss/word", Name: "journal", SSLMode: "require"}

	u, err := url.Parse(cfg.URL())
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5433", u.Host)
	assert.Equal(t, "/journal", u.Path)
	assert.Equal(t, "geo pal", u.User.Username())
	pass, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss/word", pass)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestUpMigrationsOrderedByVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"0010_later.up.sql",
		"0002_second.up.sql",
		"0002_second.down.sql",
		"0001_first.up.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.up.sql"), 0o755))

	files, err := upMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_first.up.sql", "0002_second.up.sql", "0010_later.up.sql"}, files)

	assert.Equal(t, []string{"0002_second.up.sql", "0010_later.up.sql"}, appliedBetween(files, 1, 10))
	assert.Empty(t, appliedBetween(files, 10, 10))
}

func TestUpMigrationsMissingDir(t *testing.T) {
	_, err := upMigrations(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestShippedMigrationsResolve(t *testing.T) {
	files, err := upMigrations(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_relationship_events.up.sql"}, files)
}
