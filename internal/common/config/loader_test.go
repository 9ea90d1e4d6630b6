// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfigFile(t *testing.T, content string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: "intake-manager"
collaborators:
  poller:
    base_url: "http://poller:8000"
  object_store:
    base_url: "http://objects:8000"
  validator:
    base_url: "http://validator:8000"
  notifier:
    base_url: "http://notifier:8000"
`

// ==========================
// LoadFromFile Tests
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Pipeline.MaxConcurrent)
	assert.Equal(t, 3, cfg.Pipeline.RetryAttempts)
	assert.Equal(t, 500, cfg.Pipeline.RetryBackoff)
	assert.Equal(t, 60000, cfg.Collaborators.Validator.Timeout)
	assert.Equal(t, 30000, cfg.Collaborators.ObjectStore.Timeout)
	assert.Equal(t, "http", cfg.Notifications.Backend)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "intake-reports", cfg.Audit.Index)
}

func TestLoadFromFile_MissingCollaborator(t *testing.T) {
	content := `
app:
  name: "intake-manager"
collaborators:
  poller:
    base_url: "http://poller:8000"
`
	_, err := LoadFromFile(writeConfigFile(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object_store")
}

func TestLoadFromFile_PostgresOptional(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.Postgres.Host)
}

func TestLoadFromFile_PostgresRequiresCredentials(t *testing.T) {
	content := minimalConfig + `
database:
  postgres:
    host: "db.internal"
`
	_, err := LoadFromFile(writeConfigFile(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestLoadFromFile_AWSBackendRequiresRegion(t *testing.T) {
	content := minimalConfig + `
notifications:
  backend: "aws"
`
	_, err := LoadFromFile(writeConfigFile(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

// ==========================
// Helper Tests
// ==========================

func TestGetDSN(t *testing.T) {
	pg := PostgresConfig{
		Host: "db.internal", Port: 5432, User: "intake", Password: "secret",
		Database: "intake", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db.internal port=5432 user=intake password=secret dbname=intake sslmode=disable",
		pg.GetDSN(),
	)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, GetDuration(500))
	assert.Equal(t, time.Minute, GetDuration(60000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
