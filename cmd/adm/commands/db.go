// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"devlense/internal/database"
	"devlense/internal/services"
	contextutils "devlense/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database commands.
// ensureAdmin recreates the site owner account after a reset; nil skips it.
func DatabaseCommands(tables *services.TableService, dbManager *database.Manager, db *sql.DB, databaseURL string, ensureAdmin func(context.Context) error) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database commands",
		Long: `Database commands.

Available commands:
  migrate - Apply pending schema migrations
  stats   - Show the schema version and row counts
  select  - Print the rows of a table
  reset   - Delete all data and recreate the schema`,
	}

	dialect := database.DialectFor(databaseURL)
	dbCmd.AddCommand(migrateCmd(dbManager, db, dialect))
	dbCmd.AddCommand(statsCmd(tables, dbManager, db, dialect, databaseURL))
	dbCmd.AddCommand(selectCmd(tables))
	dbCmd.AddCommand(resetCmd(dbManager, db, dialect, databaseURL, ensureAdmin))

	return dbCmd
}

func migrateCmd(dbManager *database.Manager, db *sql.DB, dialect database.Dialect) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := dbManager.RunMigrations(db, dialect); err != nil {
				return err
			}
			version, _, err := dbManager.MigrationVersion(db, dialect)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}
}

func statsCmd(tables *services.TableService, dbManager *database.Manager, db *sql.DB, dialect database.Dialect, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the schema version and row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s (%s)\n", contextutils.MaskDatabaseURL(databaseURL), dialect)

			version, dirty, err := dbManager.MigrationVersion(db, dialect)
			if err != nil {
				return err
			}
			state := ""
			if dirty {
				state = " (dirty)"
			}
			fmt.Fprintf(out, "Schema version: %d%s\n", version, state)

			counts, err := tables.Counts(context.Background())
			if err != nil {
				return err
			}
			w := newTable(out)
			fmt.Fprintln(w, "TABLE\tROWS")
			for _, table := range services.TableNames() {
				fmt.Fprintf(w, "%s\t%d\n", table, counts[table])
			}
			return w.Flush()
		},
	}
}

func selectCmd(tables *services.TableService) *cobra.Command {
	var (
		orderBy    string
		descending bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:       "select <table>",
		Short:     "Print the rows of a table",
		Long:      "Print the rows of a table. Tables: " + strings.Join(services.TableNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: services.TableNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := tables.Select(context.Background(), args[0], orderBy, descending, limit)
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, strings.ToUpper(strings.Join(result.Columns, "\t")))
			for _, row := range result.Rows {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = cell(v)
				}
				fmt.Fprintln(w, strings.Join(cells, "\t"))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d row(s)\n", len(result.Rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&orderBy, "order-by", "", "Column to sort by (default id)")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to print (0 for all)")

	return cmd
}

func resetCmd(dbManager *database.Manager, db *sql.DB, dialect database.Dialect, databaseURL string, ensureAdmin func(context.Context) error) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data and recreate the schema",
		Long: `Roll back every migration and apply them again. All members, bug reports
and questions are permanently deleted. Meant for local development only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !confirmed {
				return contextutils.ErrorWithContextf("refusing to reset %s without --yes", contextutils.MaskDatabaseURL(databaseURL))
			}

			if err := dbManager.ResetSchema(db, dialect); err != nil {
				return err
			}
			fmt.Fprintln(out, "Schema recreated")

			if ensureAdmin != nil {
				if err := ensureAdmin(context.Background()); err != nil {
					return contextutils.WrapError(err, "failed to recreate admin user")
				}
				fmt.Fprintln(out, "Admin user recreated")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm that all data will be deleted")

	return cmd
}
