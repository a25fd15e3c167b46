package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/pimalab/pimadash/internal/config"
	"github.com/pimalab/pimadash/internal/database"
	"github.com/pimalab/pimadash/internal/logging"
)

// Opener opens a database handle for a driver name and DSN.
type Opener func(driverName, dsn string) (*sqlx.DB, error)

// Loader reads the patient table once at startup.
type Loader struct {
	cfg    config.Database
	open   Opener
	logger *slog.Logger
}

type LoaderOption func(*Loader)

// WithOpener replaces sqlx.Open, mainly so tests can hand out sqlmock handles.
func WithOpener(open Opener) LoaderOption {
	return func(l *Loader) {
		l.open = open
	}
}

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

func NewLoader(cfg config.Database, opts ...LoaderOption) *Loader {
	l := &Loader{
		cfg:  cfg,
		open: sqlx.Open,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logging.L()
	}
	return l
}

// Load returns the full table. Any failure is logged and yields Empty(), so
// the dashboard still starts and shows placeholder charts.
func (l *Loader) Load(ctx context.Context) *Table {
	t, err := l.load(ctx)
	if err != nil {
		l.logger.Error("failed to load patient records",
			"table", l.cfg.Table,
			"host", l.cfg.Host,
			"error", err,
		)
		return Empty()
	}

	l.logger.Info("loaded patient records",
		"table", l.cfg.Table,
		"rows", t.Len(),
		"columns", len(t.columns),
	)
	return t
}

func (l *Loader) load(ctx context.Context) (*Table, error) {
	if err := l.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	db, err := l.open(l.cfg.Driver, database.DSN(l.cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			l.logger.Warn("failed to close database handle", "error", cerr)
		}
	}()

	rows, err := db.QueryxContext(ctx, database.SelectQuery(l.cfg.Table, l.cfg.Columns))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", l.cfg.Table, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records [][]Value
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(records)+1, err)
		}
		record := make([]Value, len(raw))
		for i, cell := range raw {
			record[i] = FromDriver(cell)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return NewTable(columns, records)
}
