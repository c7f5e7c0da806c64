package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "LOG_FILE", "LOG_LEVEL", "CONFIG_FILE"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "5000", cfg.Port)
	require.Equal(t, "app.log", cfg.LogFile)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, DefaultTuning(), cfg.Tuning)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "8123")
	t.Setenv("LOG_LEVEL", "info")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8123", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigYamlFile(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
broadcast_gap_ms: 25
round_seconds: 45
`), 0644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 25, cfg.Tuning.BroadcastGapMs)
	require.Equal(t, 45, cfg.Tuning.RoundSeconds)
	// 没写的字段保持默认
	require.Equal(t, DefaultSpawnAttempts, cfg.Tuning.SpawnAttempts)
}

func TestLoadConfigRejectsBadYaml(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`broadcast_gap_ms: [`), 0644))
	t.Setenv("CONFIG_FILE", path)

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsNonPositiveTunables(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`round_seconds: 0`), 0644))
	t.Setenv("CONFIG_FILE", path)

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
}
