package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/attrgen/db"
	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/store"
	"github.com/teranos/attrgen/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the state database",
	Long: sym.DB + ` db — Manage the state database

The database keeps list-run counter state and, in offline mode, the
accounts emitted by earlier runs.

Examples:
  attrgen db migrate              # Apply pending migrations
  attrgen db status               # Show migrations and stored rows`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		pterm.Success.Printfln("Database %s is up to date", cfg.GetDatabasePath())
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied migrations and stored rows",
	RunE:  runDbStatus,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatusCmd)
}

func runDbStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := db.Applied(database)
	if err != nil {
		return errors.Wrap(err, "failed to read migrations")
	}
	accounts, err := store.NewAccountStore(database).All(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%s Database Statistics\n", sym.DB)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:      %s\n", cfg.GetDatabasePath())
	fmt.Printf("Migrations Applied: %d\n", len(applied))
	fmt.Printf("Stored Accounts:    %d\n", len(accounts))
	for _, v := range applied {
		fmt.Printf("  %s\n", v)
	}
	return nil
}
