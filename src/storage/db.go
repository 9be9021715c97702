package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Options selects and configures the record store database.
type Options struct {
	Driver      string
	DSN         string
	AutoMigrate bool
	Logger      *slog.Logger
}

type DB struct {
	dialect Dialect
	db      *sql.DB
	logger  *slog.Logger
}

// Open connects to the record store database and optionally applies
// pending migrations.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("record store dsn is required")
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}
	if dialect.Name == DriverSQLite {
		// single writer; avoids SQLITE_BUSY from the mirror goroutine
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s record store: %w", opts.Driver, err)
	}

	store := &DB{
		dialect: dialect,
		db:      db,
		logger:  opts.Logger.With("component", "storage", "driver", opts.Driver),
	}

	if opts.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return store, nil
}

func (d *DB) DB() *sql.DB {
	return d.db
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) Close() error {
	return d.db.Close()
}
