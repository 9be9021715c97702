package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/elee1766/parley/src/app"
	"github.com/elee1766/parley/src/storage"
)

// MigrateCmd manages record store migrations
type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" help:"Run pending migrations"`
	Status MigrateStatusCmd `cmd:"" help:"Show migration status"`
}

// recordStore opens the configured database without applying migrations.
func (cli *CLI) recordStore(ctx context.Context) (*storage.DB, error) {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return nil, err
	}
	overrideConfigFromCLI(cfg, cli)
	if cfg.Storage.Driver == "" {
		return nil, errRecordStoreDisabled
	}
	storageCfg := cfg.Storage
	storageCfg.AutoMigrate = false
	return app.OpenRecords(ctx, storageCfg, cli.logger(cfg))
}

// MigrateUpCmd runs pending migrations
type MigrateUpCmd struct{}

// Run executes the migrate up command
func (c *MigrateUpCmd) Run(ctx *kong.Context, cli *CLI) error {
	bg := context.Background()
	db, err := cli.recordStore(bg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	before, err := db.MigrationStatus(bg)
	if err != nil {
		return err
	}
	if err := db.Migrate(bg); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	applied := 0
	for _, m := range before {
		if !m.Applied {
			applied++
			fmt.Fprintf(ctx.Stdout, "Applied %03d_%s\n", m.Version, m.Name)
		}
	}
	fmt.Fprintf(ctx.Stdout, "%s record store is up to date (%d applied)\n", db.Dialect().Name, applied)
	return nil
}

// MigrateStatusCmd shows migration status
type MigrateStatusCmd struct {
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the migrate status command
func (c *MigrateStatusCmd) Run(ctx *kong.Context, cli *CLI) error {
	bg := context.Background()
	db, err := cli.recordStore(bg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	status, err := db.MigrationStatus(bg)
	if err != nil {
		return err
	}
	if c.Format == "json" {
		return printJSON(ctx, status)
	}
	w := tabwriter.NewWriter(ctx.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Version\tName\tStatus")
	fmt.Fprintln(w, "-------\t----\t------")
	for _, m := range status {
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%03d\t%s\t%s\n", m.Version, m.Name, state)
	}
	return w.Flush()
}
