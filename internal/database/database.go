package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pimalab/pimadash/internal/config"
)

// openFunc is swapped in tests to hand out sqlmock connections.
var openFunc = sqlx.Open

// DSN returns the connection string for cfg. An explicit URL wins over the
// individual parts.
func DSN(cfg config.Database) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	host := cfg.Host
	if cfg.Port > 0 {
		host = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   host,
		Path:   "/" + cfg.Name,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// Open validates cfg and returns a handle without touching the network.
func Open(cfg config.Database) (*sqlx.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	db, err := openFunc(cfg.Driver, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Connect opens a handle and verifies it with a ping. The handle is closed if
// the ping fails.
func Connect(ctx context.Context, cfg config.Database) (*sqlx.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// QuoteTable quotes a possibly schema-qualified table name.
func QuoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// QuoteColumns quotes each column name and joins them for a SELECT list.
func QuoteColumns(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = pq.QuoteIdentifier(column)
	}
	return strings.Join(quoted, ", ")
}

// SelectQuery builds the fixed read query for the patient table.
func SelectQuery(table string, columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", QuoteColumns(columns), QuoteTable(table))
}

func splitTable(table string) (schema, name string) {
	if idx := strings.LastIndex(table, "."); idx >= 0 {
		return table[:idx], table[idx+1:]
	}
	return "", table
}
