package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"PORT", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"DB_TABLE", "DB_DRIVER", "DB_SSLMODE", "DB_COLUMNS", "SESSION_IDLE_TIMEOUT",
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	original, existed := os.LookupEnv(key)
	if existed {
		t.Cleanup(func() {
			_ = os.Setenv(key, original)
		})
	} else {
		t.Cleanup(func() {
			_ = os.Unsetenv(key)
		})
	}
	_ = os.Unsetenv(key)
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range configEnvKeys {
		unsetEnv(t, key)
	}

	original := dotenvFiles
	dotenvFiles = nil
	t.Cleanup(func() { dotenvFiles = original })
	return home
}

func writeTestConfig(t *testing.T, home string, contents string) {
	t.Helper()
	configDir := filepath.Join(home, ".config", "pimadash")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "pimadash.toml"), []byte(contents), 0o644))
}

func TestLoadDefaultsWhenNoConfigSources(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "8050", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "pima_diabetes", cfg.Database.Name)
	assert.Equal(t, "diabetes", cfg.Database.Table)
	assert.Equal(t, DriverPgx, cfg.Database.Driver)
	assert.Empty(t, cfg.Database.User, "no credential defaults")
	assert.Empty(t, cfg.Database.Password, "no credential defaults")
}

func TestLoadUsesEnvironmentVariables(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "10000")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "analyst")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_NAME", "clinic")
	t.Setenv("DB_TABLE", "patients")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DB_COLUMNS", "Glucose, BMI,bad column,Outcome")
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "analyst", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "clinic", cfg.Database.Name)
	assert.Equal(t, "patients", cfg.Database.Table)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, []string{"Glucose", "BMI", "Outcome"}, cfg.Database.Columns)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdleTimeout)
}

func TestLoadWithOverridesPriority(t *testing.T) {
	home := isolate(t)
	writeTestConfig(t, home, `
port = "4000"

[database]
host = "config-host"
user = "config-user"
password = "config-pass"
columns = ["Age", "Outcome"]
`)

	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_USER", "env-user")
	t.Setenv("DB_NAME", "env-db")
	t.Setenv("PORT", "5000")

	cfg, err := LoadWithOverrides(Overrides{DBHost: "flag-host"})
	require.NoError(t, err)

	assert.Equal(t, "flag-host", cfg.Database.Host)
	assert.Equal(t, "config-user", cfg.Database.User)
	assert.Equal(t, "config-pass", cfg.Database.Password)
	assert.Equal(t, "env-db", cfg.Database.Name, "env fills keys missing from the file")
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, []string{"Age", "Outcome"}, cfg.Database.Columns)

	cfg, err = LoadWithOverrides(Overrides{Port: "9999", DBPassword: "flag-pass"})
	require.NoError(t, err)
	assert.Equal(t, "config-host", cfg.Database.Host)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "flag-pass", cfg.Database.Password)
}

func TestLoadReadsDotEnv(t *testing.T) {
	isolate(t)
	unsetEnv(t, "DB_USER")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_USER=dotenv-user\n"), 0o644))
	dotenvFiles = []string{envFile}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv-user", cfg.Database.User)
}

func TestDatabaseValidate(t *testing.T) {
	valid := Database{
		Host: "localhost", User: "u", Password: "p", Name: "db",
		Table: "diabetes", Driver: DriverPgx,
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.User = ""
	missing.Password = ""
	err := missing.Validate()
	require.ErrorIs(t, err, ErrMissingSetting)
	assert.Contains(t, err.Error(), "DB_USER")
	assert.Contains(t, err.Error(), "DB_PASSWORD")

	withURL := Database{URL: "postgres://u:p@h/db", Table: "diabetes", Driver: DriverPostgres}
	assert.NoError(t, withURL.Validate())

	badTable := valid
	badTable.Table = "diabetes; DROP TABLE x"
	assert.Error(t, badTable.Validate())

	badDriver := valid
	badDriver.Driver = "mysql"
	assert.Error(t, badDriver.Validate())
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		input       string
		expected    string
		shouldError bool
	}{
		{"diabetes", "diabetes", false},
		{" public.diabetes ", "public.diabetes", false},
		{"BloodPressure", "BloodPressure", false},
		{"_tmp1", "_tmp1", false},
		{"", "", true},
		{"1table", "", true},
		{"a.b.c", "", true},
		{"public.", "", true},
		{"bad-name", "", true},
		{"x\"y", "", true},
	}

	for _, tt := range tests {
		got, err := SanitizeIdentifier(tt.input)
		if tt.shouldError {
			assert.Error(t, err, tt.input)
			continue
		}
		assert.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got)
	}
}
