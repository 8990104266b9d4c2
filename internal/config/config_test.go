package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Env: "development"},
		JWT:     JWTConfig{Secret: DefaultJWTSecret},
		Storage: StorageConfig{Provider: "r2"},
		Generation: GenerationConfig{
			StepDelay:       3 * time.Second,
			PollInterval:    5 * time.Second,
			MaxPollAttempts: 60,
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	prod := validConfig()
	prod.Server.Env = "production"
	assert.Error(t, prod.Validate())

	prod.Gateway.Enabled = true
	assert.NoError(t, prod.Validate())

	bad := validConfig()
	bad.Storage.Provider = "dropbox"
	assert.Error(t, bad.Validate())

	bad = validConfig()
	bad.Generation.MaxPollAttempts = 0
	assert.Error(t, bad.Validate())
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("VIDEO_MAX_POLL_ATTEMPTS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Generation.StepDelay)
	assert.Equal(t, 5*time.Second, cfg.Generation.PollInterval)
	assert.Equal(t, 60, cfg.Generation.MaxPollAttempts)
	assert.Equal(t, "flux-kontext-pro", cfg.Flux.DefaultModel)
	assert.Equal(t, 10, cfg.RateLimit.ProjectsPerHour)
}

func TestLoadReadsSecretFiles(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "bfl_key")
	require.NoError(t, os.WriteFile(path, []byte("  bfl-secret\n"), 0o600))
	t.Setenv("BFL_API_KEY", "")
	t.Setenv("BFL_API_KEY_FILE", path)
	t.Setenv("RATE_LIMIT_PROJECTS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bfl-secret", cfg.Flux.APIKey)
	assert.Equal(t, 3, cfg.RateLimit.ProjectsPerHour)
}
