package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: TechGameWorld
    url: https://techgameworld.com/coin-master-free-spins/
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "coinmaster.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Collect.Workers)
	assert.Equal(t, 8*time.Second, cfg.Collect.RequestTimeout)
	assert.Equal(t, "static.moonactive.net", cfg.Collect.AllowedDomain)
	assert.Equal(t, 4, cfg.Collect.ScoreThreshold)
	assert.Equal(t, 72, cfg.Collect.TTLHours)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:5000", cfg.Web.ListenAddr)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
database:
  path: /tmp/links.db
collect:
  workers: 4
  ttl_hours: 24
  allowed_domain: rewards.example.com
  reward_patterns:
    - bonus
sources:
  - name: A
    url: https://a.example.com/
  - name: B
    url: https://b.example.com/
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/links.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Collect.Workers)
	assert.Equal(t, 24, cfg.Collect.TTLHours)
	assert.Equal(t, "rewards.example.com", cfg.Collect.AllowedDomain)
	assert.Equal(t, []string{"bonus"}, cfg.Collect.RewardPatterns)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "B", cfg.Sources[1].Name)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("COLLECTOR_DB_PATH", "/data/env.db")

	path := writeConfig(t, `
database:
  path: ${COLLECTOR_DB_PATH}
sources:
  - name: A
    url: https://a.example.com/
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/env.db", cfg.Database.Path)
}

func TestLoadRejectsEmptySources(t *testing.T) {
	path := writeConfig(t, `
log_level: info
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsIncompleteSource(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: MissingURL
`)

	_, err := Load(path)
	assert.Error(t, err)
}
