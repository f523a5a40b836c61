package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/ari-client/config"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadParsesRecognizedKeys(t *testing.T) {
	path := writeConfigFile(t, `
baseUrl: https://pbx.example.com:8089/ari
username: asterisk
password: secret
reconnectCeilingMs: 30000
maxConsecutiveFailures: 5
idleTimeoutMs: 60000
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://pbx.example.com:8089/ari", cfg.BaseURL)
	require.Equal(t, "asterisk", cfg.Username)
	require.Equal(t, "secret", cfg.Password)
	require.Equal(t, 30*time.Second, cfg.ReconnectCeiling)
	require.Equal(t, 5, cfg.MaxConsecutiveFailures)
	require.Equal(t, 60*time.Second, cfg.IdleTimeout)
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, `
baseUrl: https://pbx.example.com:8089/ari
somethingNewTheClientDoesNotKnowAbout: true
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://pbx.example.com:8089/ari", cfg.BaseURL)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadAbsentFieldsAreZeroValued(t *testing.T) {
	path := writeConfigFile(t, `baseUrl: https://pbx.example.com:8089/ari`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Zero(t, cfg.ReconnectCeiling)
	require.Zero(t, cfg.MaxConsecutiveFailures)
	require.Zero(t, cfg.IdleTimeout)
	require.Nil(t, cfg.Logger)
	require.Nil(t, cfg.Tracer)
}
