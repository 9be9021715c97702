package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
)

//go:embed migrations
var migrationFiles embed.FS

// Migration is one goose-format schema step.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// MigrationInfo reports whether a migration has been applied.
type MigrationInfo struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

// Migrations returns the embedded migrations for a dialect in version order.
func Migrations(d Dialect) ([]Migration, error) {
	dir := path.Join("migrations", d.Name)
	entries, err := fs.ReadDir(migrationFiles, dir)
	if err != nil {
		return nil, fmt.Errorf("no migrations for %s: %w", d.Name, err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("migration %s has no version prefix", e.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s has invalid version: %w", e.Name(), err)
		}
		content, err := migrationFiles.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{
			Version:    version,
			Name:       strings.TrimSuffix(e.Name(), ".sql"),
			Statements: extractUpStatements(string(content)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies every pending migration, each in its own transaction.
func (d *DB) Migrate(ctx context.Context) error {
	if err := d.ensureMigrationsTable(ctx); err != nil {
		return err
	}
	applied, err := d.appliedVersions(ctx)
	if err != nil {
		return err
	}
	migrations, err := Migrations(d.dialect)
	if err != nil {
		return err
	}

	record := d.dialect.Rebind("INSERT INTO schema_migrations (version) VALUES (?)")
	for _, migration := range migrations {
		if slices.Contains(applied, migration.Version) {
			continue
		}

		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		for _, stmt := range migration.Statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
			}
		}

		if _, err := tx.ExecContext(ctx, record, migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
		d.logger.Info("applied migration", "version", migration.Version, "name", migration.Name)
	}

	return nil
}

// MigrationStatus lists every known migration and whether it is applied.
func (d *DB) MigrationStatus(ctx context.Context) ([]MigrationInfo, error) {
	if err := d.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	applied, err := d.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	migrations, err := Migrations(d.dialect)
	if err != nil {
		return nil, err
	}

	status := make([]MigrationInfo, 0, len(migrations))
	for _, m := range migrations {
		status = append(status, MigrationInfo{
			Version: m.Version,
			Name:    m.Name,
			Applied: slices.Contains(applied, m.Version),
		})
	}
	return status, nil
}

func (d *DB) ensureMigrationsTable(ctx context.Context) error {
	createMigrationsTable := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := d.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (d *DB) appliedVersions(ctx context.Context) ([]int, error) {
	var versions []int
	if err := sqlscan.Select(ctx, d.db, &versions, "SELECT version FROM schema_migrations ORDER BY version"); err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	return versions, nil
}

// extractUpStatements returns the statements of the goose Up section. Each
// StatementBegin/StatementEnd block is one statement.
func extractUpStatements(content string) []string {
	var (
		statements  []string
		current     []string
		inUp        bool
		inStatement bool
	)

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.Contains(line, "-- +goose Up"):
			inUp = true
		case strings.Contains(line, "-- +goose Down"):
			return statements
		case strings.Contains(line, "-- +goose StatementBegin"):
			inStatement = true
			current = current[:0]
		case strings.Contains(line, "-- +goose StatementEnd"):
			inStatement = false
			if inUp {
				stmt := strings.TrimSpace(strings.Join(current, "\n"))
				stmt = strings.TrimSuffix(stmt, ";")
				if stmt != "" {
					statements = append(statements, stmt)
				}
			}
		default:
			if inUp && inStatement {
				current = append(current, line)
			}
		}
	}

	return statements
}
