package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/elee1766/parley/src/model"
)

// DatabaseCmd manages the data sources agents may be pointed at
type DatabaseCmd struct {
	List   DatabaseListCmd   `cmd:"" help:"List data sources"`
	Add    DatabaseAddCmd    `cmd:"" help:"Add a data source"`
	Remove DatabaseRemoveCmd `cmd:"" help:"Remove a data source"`
}

// DatabaseListCmd lists data sources
type DatabaseListCmd struct {
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the database list command
func (c *DatabaseListCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	dbs := s.Settings.Get().Databases
	if c.Format == "json" {
		return printJSON(ctx, dbs)
	}
	w := tabwriter.NewWriter(ctx.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tName\tProvider\tActive\tTables")
	fmt.Fprintln(w, "---\t----\t--------\t------\t------")
	for _, db := range dbs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			db.ID, db.Name, db.Provider, db.IsActive, truncate(strings.Join(db.Tables, ","), cli.Width/3))
	}
	return w.Flush()
}

// DatabaseAddCmd adds a data source
type DatabaseAddCmd struct {
	Name             string   `arg:"" help:"Display name"`
	Provider         string   `default:"postgres" enum:"postgres,mysql,supabase" help:"Provider"`
	ConnectionString string   `name:"connection-string" help:"Connection string"`
	APIURL           string   `name:"api-url" help:"API URL (supabase)"`
	Key              string   `name:"db-api-key" help:"API key (supabase)"`
	Tables           []string `help:"Tables agents may read"`
	Default          bool     `help:"Mark as the default data source"`
	Inactive         bool     `help:"Add the data source inactive"`
}

// Run executes the database add command
func (c *DatabaseAddCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	db := s.Settings.AddDatabase(model.DatabaseConfig{
		Name:             c.Name,
		Provider:         c.Provider,
		ConnectionString: c.ConnectionString,
		APIKey:           c.Key,
		APIURL:           c.APIURL,
		Tables:           c.Tables,
		IsDefault:        c.Default,
		IsActive:         !c.Inactive,
	})
	fmt.Fprintf(ctx.Stdout, "Added data source %s (%s)\n", db.Name, db.ID)
	return nil
}

// DatabaseRemoveCmd removes a data source
type DatabaseRemoveCmd struct {
	ID string `arg:"" help:"Data source id"`
}

// Run executes the database remove command
func (c *DatabaseRemoveCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	if !s.Settings.RemoveDatabase(c.ID) {
		return notFound("data source", c.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Removed data source %s\n", c.ID)
	return nil
}
