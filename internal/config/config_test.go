package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "admin@clinic.local", cfg.Admin.Email)
	assert.Equal(t, "adminpass", cfg.Admin.Password)
	assert.Equal(t, "Admin", cfg.Admin.Name)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, []string{"Dr. Jane Smith - Internal Medicine", "City Clinic - Outpatient"}, cfg.Booking.Doctors)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, int64(1), cfg.Providers[0].ID)
	assert.Equal(t, "SafeRide Medical Transport", cfg.Providers[0].Name)
	assert.Equal(t, int64(2), cfg.Providers[1].ID)
	assert.Equal(t, "CareVan Services", cfg.Providers[1].Name)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  port: 8080
session:
  ttl: 1h
providers:
  - id: 7
    name: Night Shuttle
    contact: 555-0199
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))

	t.Setenv("CAREBOOK_SERVER_PORT", "9090")
	t.Setenv("CAREBOOK_SESSION_SECRET", "from-env")
	t.Setenv("CAREBOOK_ADMIN_PASSWORD", "rotated")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "from-env", cfg.Session.Secret)
	assert.Equal(t, "rotated", cfg.Admin.Password)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "555-0199", cfg.Providers[0].Contact)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CAREBOOK_STORAGE_DRIVER", "sqlite")

	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())

	c.URL = "postgres://u:p@db/n"
	assert.Equal(t, "postgres://u:p@db/n", c.DSN())
}
