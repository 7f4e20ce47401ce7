package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "America/Bogota", cfg.Timezone)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Enrollment.MaxActive)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, []string{"enrollment-clients"}, cfg.JWT.Audience)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/enroll.db")
	t.Setenv("ENROLLMENT_MAX_ACTIVE", "5")
	t.Setenv("JWT_EXPIRATION", "bogus")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/enroll.db", cfg.Database.SQLitePath)
	assert.Equal(t, 5, cfg.Enrollment.MaxActive)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoadNonPositiveEnrollmentCeilingFallsBackToDefault(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENROLLMENT_MAX_ACTIVE", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Enrollment.MaxActive)
}
