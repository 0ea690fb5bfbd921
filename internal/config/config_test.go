package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(err)
	require.Equal(DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(os.WriteFile(path, []byte(`
server:
  http_port: 8080
anilist:
  min_request_interval_ms: 1000
prediction:
  source_name: Kitsu
`), 0644))

	cfg, err := Load(path)
	require.NoError(err)
	require.Equal(8080, cfg.Server.HTTPPort)
	require.Equal(9090, cfg.Server.MetricsPort)
	require.Equal(1000, cfg.AniList.MinRequestIntervalMs)
	require.Equal(5, cfg.AniList.MaxPages)
	require.Equal("Kitsu", cfg.Prediction.SourceName)
	require.Equal("sqlite", cfg.Database.Driver)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDatabaseURLFromEnv(t *testing.T) {
	require := require.New(t)
	t.Setenv(EnvDatabaseURL, "postgres://anime@localhost/anime")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(err)
	require.Equal("pgx", cfg.Database.Driver)
	require.Equal("postgres://anime@localhost/anime", cfg.DSN())
}

func TestEnsureDirectories(t *testing.T) {
	require := require.New(t)

	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(root, "db", "anime.db")
	cfg.Cache.Dir = filepath.Join(root, "cache")
	cfg.Logging.File = filepath.Join(root, "logs", "app.log")

	require.NoError(cfg.EnsureDirectories())
	for _, dir := range []string{"db", "cache", "logs"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(err)
		require.True(info.IsDir())
	}
}
