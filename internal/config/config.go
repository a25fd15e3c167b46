package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingSetting is returned by Validate when a required database setting is empty.
var ErrMissingSetting = errors.New("missing required setting")

// Supported database/sql driver names.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Port               string
	SessionIdleTimeout time.Duration
	Database           Database
}

// Database describes where the patient records live. There are no credential
// defaults: User and Password must come from a flag, the config file, or the
// environment.
type Database struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Table    string
	Driver   string
	SSLMode  string
	Columns  []string // empty means SELECT *
}

// Overrides carries command flag values; empty fields leave the loaded value untouched.
type Overrides struct {
	Port        string
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string
	DBTable     string
	DatabaseURL string
}

// dotenvFiles are loaded into the process environment before reading config.
// godotenv never overrides variables that are already set.
var dotenvFiles = []string{".env"}

// Load loads configuration from multiple sources with priority:
// 1. Command flags (see LoadWithOverrides)
// 2. Config file (./pimadash.toml or $XDG_CONFIG_HOME/pimadash/pimadash.toml)
// 3. Environment variables (including .env)
func Load() (*Config, error) {
	return LoadWithOverrides(Overrides{})
}

// LoadWithOverrides loads config and applies flag overrides
func LoadWithOverrides(overrides Overrides) (*Config, error) {
	loadDotEnv()

	v := newBaseViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return buildConfig(v, overrides), nil
}

func loadDotEnv() {
	existing := make([]string, 0, len(dotenvFiles))
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		_ = godotenv.Load(existing...)
	}
}

func newBaseViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("pimadash")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	// XDG Base Directory, resolved manually so tests can redirect HOME.
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		v.AddConfigPath(filepath.Join(configHome, "pimadash"))
	}

	return v
}

func buildConfig(v *viper.Viper, overrides Overrides) *Config {
	cfg := &Config{
		Port:               "8050",
		SessionIdleTimeout: 30 * time.Minute,
		Database: Database{
			Host:    "localhost",
			Port:    5432,
			Name:    "pima_diabetes",
			Table:   "diabetes",
			Driver:  DriverPgx,
			SSLMode: "disable",
		},
	}
	db := &cfg.Database

	// Apply config file values
	if v.IsSet("port") {
		cfg.Port = v.GetString("port")
	}
	if v.IsSet("session_idle_timeout") {
		if d := v.GetDuration("session_idle_timeout"); d > 0 {
			cfg.SessionIdleTimeout = d
		}
	}
	if v.IsSet("database.url") {
		db.URL = v.GetString("database.url")
	}
	if v.IsSet("database.host") {
		db.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		db.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		db.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		db.Password = v.GetString("database.password")
	}
	if v.IsSet("database.name") {
		db.Name = v.GetString("database.name")
	}
	if v.IsSet("database.table") {
		db.Table = v.GetString("database.table")
	}
	if v.IsSet("database.driver") {
		db.Driver = v.GetString("database.driver")
	}
	if v.IsSet("database.sslmode") {
		db.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("database.columns") {
		switch raw := v.Get("database.columns").(type) {
		case string:
			db.Columns = parseColumns(raw)
		default:
			db.Columns = parseColumns(strings.Join(v.GetStringSlice("database.columns"), ","))
		}
	}

	// Environment fallback (only if not configured)
	envString := func(key, name string, dst *string) {
		if v.IsSet(key) {
			return
		}
		if value := os.Getenv(name); value != "" {
			*dst = value
		}
	}
	envString("port", "PORT", &cfg.Port)
	envString("database.url", "DATABASE_URL", &db.URL)
	envString("database.host", "DB_HOST", &db.Host)
	envString("database.user", "DB_USER", &db.User)
	envString("database.password", "DB_PASSWORD", &db.Password)
	envString("database.name", "DB_NAME", &db.Name)
	envString("database.table", "DB_TABLE", &db.Table)
	envString("database.driver", "DB_DRIVER", &db.Driver)
	envString("database.sslmode", "DB_SSLMODE", &db.SSLMode)

	if !v.IsSet("database.port") {
		if envPort, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil && envPort > 0 {
			db.Port = envPort
		}
	}
	if !v.IsSet("database.columns") {
		if envColumns := os.Getenv("DB_COLUMNS"); envColumns != "" {
			db.Columns = parseColumns(envColumns)
		}
	}
	if !v.IsSet("session_idle_timeout") {
		if d, err := time.ParseDuration(os.Getenv("SESSION_IDLE_TIMEOUT")); err == nil && d > 0 {
			cfg.SessionIdleTimeout = d
		}
	}

	// Apply overrides (flags) last
	if overrides.Port != "" {
		cfg.Port = overrides.Port
	}
	if overrides.DatabaseURL != "" {
		db.URL = overrides.DatabaseURL
	}
	if overrides.DBHost != "" {
		db.Host = overrides.DBHost
	}
	if overrides.DBPort > 0 {
		db.Port = overrides.DBPort
	}
	if overrides.DBUser != "" {
		db.User = overrides.DBUser
	}
	if overrides.DBPassword != "" {
		db.Password = overrides.DBPassword
	}
	if overrides.DBName != "" {
		db.Name = overrides.DBName
	}
	if overrides.DBTable != "" {
		db.Table = overrides.DBTable
	}

	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	return cfg
}

// Validate checks that the settings needed to open a connection are present.
// A DSN URL stands in for host, user, password and database name.
func (d Database) Validate() error {
	if _, err := SanitizeIdentifier(d.Table); err != nil {
		return fmt.Errorf("invalid table: %w", err)
	}
	switch d.Driver {
	case DriverPgx, DriverPostgres:
	default:
		return fmt.Errorf("unsupported driver %q (use %s or %s)", d.Driver, DriverPgx, DriverPostgres)
	}
	if d.URL != "" {
		return nil
	}

	var missing []string
	if strings.TrimSpace(d.Host) == "" {
		missing = append(missing, "DB_HOST")
	}
	if strings.TrimSpace(d.User) == "" {
		missing = append(missing, "DB_USER")
	}
	if d.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	return nil
}
