package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"STORESYNC_APP_NAME",
	"STORESYNC_APP_ENV",
	"STORESYNC_APP_PORT",
	"STORESYNC_DATABASE_HOST",
	"STORESYNC_DATABASE_PORT",
	"STORESYNC_DATABASE_USER",
	"STORESYNC_DATABASE_PASSWORD",
	"STORESYNC_DATABASE_DBNAME",
	"STORESYNC_DATABASE_SSLMODE",
	"STORESYNC_DATABASE_MAX_OPEN_CONNS",
	"STORESYNC_DATABASE_MAX_IDLE_CONNS",
	"STORESYNC_PLATFORM_PAGE_SIZE",
	"STORESYNC_PLATFORM_WEBHOOK_SECRET",
	"STORESYNC_SECURITY_CREDENTIAL_KEY",
	"STORESYNC_HTTP_CORS_ALLOW_ORIGINS",
	"STORESYNC_TELEMETRY_SAMPLING_RATIO",
}

// resetEnv unsets every config env var for the duration of the test.
// t.Setenv records the original value, so cleanup restores it even
// though we unset right after.
func resetEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		if v, ok := os.LookupEnv(k); ok {
			t.Setenv(k, v)
		}
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	resetEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "storesync-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Empty(t, cfg.Database.Password)
	assert.Equal(t, "storesync", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)

	assert.Equal(t, "https://api.salla.dev/admin/v2", cfg.Platform.APIBaseURL)
	assert.Equal(t, 50, cfg.Platform.PageSize)
	assert.Equal(t, 72*time.Hour, cfg.Sync.DedupTTL)
	assert.Equal(t, 15*time.Minute, cfg.Sync.StaleAfter)
	assert.InDelta(t, 1.0, cfg.Telemetry.SamplingRatio, 0.0001)
}

func TestLoadEnvOverrides(t *testing.T) {
	resetEnv(t)
	t.Setenv("STORESYNC_APP_NAME", "test-app")
	t.Setenv("STORESYNC_APP_ENV", "testing")
	t.Setenv("STORESYNC_APP_PORT", "9000")
	t.Setenv("STORESYNC_DATABASE_HOST", "testdb.local")
	t.Setenv("STORESYNC_DATABASE_PORT", "5433")
	t.Setenv("STORESYNC_DATABASE_USER", "testuser")
	t.Setenv("STORESYNC_DATABASE_PASSWORD", "testpass")
	t.Setenv("STORESYNC_DATABASE_DBNAME", "testdb")
	t.Setenv("STORESYNC_DATABASE_SSLMODE", "require")
	t.Setenv("STORESYNC_DATABASE_MAX_OPEN_CONNS", "50")
	t.Setenv("STORESYNC_DATABASE_MAX_IDLE_CONNS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-app", cfg.App.Name)
	assert.Equal(t, "testing", cfg.App.Env)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "testdb.local", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "testuser", cfg.Database.User)
	assert.Equal(t, "testpass", cfg.Database.Password)
	assert.Equal(t, "testdb", cfg.Database.DBName)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10, cfg.Database.MaxIdleConns)
}

func TestLoadValidation(t *testing.T) {
	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		resetEnv(t)
		t.Setenv("STORESYNC_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("STORESYNC_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero open conns falls back to the default", func(t *testing.T) {
		resetEnv(t)
		t.Setenv("STORESYNC_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("negative idle conns rejected", func(t *testing.T) {
		resetEnv(t)
		t.Setenv("STORESYNC_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("page size bounds enforced", func(t *testing.T) {
		resetEnv(t)
		t.Setenv("STORESYNC_PLATFORM_PAGE_SIZE", "250")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "page_size must be between 1 and 100")
	})

	t.Run("sampling ratio bounds enforced", func(t *testing.T) {
		resetEnv(t)
		t.Setenv("STORESYNC_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio must be between 0.0 and 1.0")
	})
}

// setProductionBase fills in the minimum a production config needs to
// pass validation; each guard test then breaks exactly one of them.
func setProductionBase(t *testing.T) {
	t.Helper()
	t.Setenv("STORESYNC_APP_ENV", "production")
	t.Setenv("STORESYNC_PLATFORM_WEBHOOK_SECRET", "whsec_9f8e7d6c5b4a")
	t.Setenv("STORESYNC_SECURITY_CREDENTIAL_KEY", "this-is-a-very-secure-encryption-key-32chars")
	t.Setenv("STORESYNC_DATABASE_PASSWORD", "secure-password")
	t.Setenv("STORESYNC_DATABASE_SSLMODE", "require")
}

func TestLoadProductionGuards(t *testing.T) {
	cases := []struct {
		name    string
		unset   string
		set     map[string]string
		wantErr string
	}{
		{
			name:    "webhook secret required",
			unset:   "STORESYNC_PLATFORM_WEBHOOK_SECRET",
			wantErr: "platform.webhook_secret is required in production",
		},
		{
			name:    "credential key required",
			unset:   "STORESYNC_SECURITY_CREDENTIAL_KEY",
			wantErr: "security.credential_key is required in production",
		},
		{
			name:    "credential key minimum length",
			set:     map[string]string{"STORESYNC_SECURITY_CREDENTIAL_KEY": "short-key"},
			wantErr: "credential_key must be at least 32 characters",
		},
		{
			name:    "database password required",
			unset:   "STORESYNC_DATABASE_PASSWORD",
			wantErr: "database.password is required in production",
		},
		{
			name:    "ssl cannot be disabled",
			set:     map[string]string{"STORESYNC_DATABASE_SSLMODE": "disable"},
			wantErr: "database.sslmode cannot be 'disable' in production",
		},
		{
			name:    "wildcard cors origin rejected",
			set:     map[string]string{"STORESYNC_HTTP_CORS_ALLOW_ORIGINS": "*"},
			wantErr: "cors_allow_origins cannot be '*' in production",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resetEnv(t)
			setProductionBase(t)
			if tc.unset != "" {
				os.Unsetenv(tc.unset)
			}
			for k, v := range tc.set {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("valid production config passes", func(t *testing.T) {
		resetEnv(t)
		setProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	base := DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "testuser",
		DBName:  "testdb",
		SSLMode: "disable",
	}

	t.Run("carries host, user, database and ssl mode", func(t *testing.T) {
		cfg := base
		cfg.Password = "testpass"

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes reserved characters in the password", func(t *testing.T) {
		cfg := base
		cfg.Password = "pass@word#123"

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("tolerates an empty password", func(t *testing.T) {
		assert.NotEmpty(t, base.DSN())
	})
}
