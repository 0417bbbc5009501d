package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/attrgen/cmd/attrgen/commands"
	"github.com/teranos/attrgen/logger"
)

var rootCmd = &cobra.Command{
	Use:   "attrgen",
	Short: "attrgen - account attribute generator",
	Long: `attrgen - account attribute generator.

attrgen computes account attributes for identities from templates, keeps
generated values unique and maintains the counters unique values depend on.

Available commands:
  list          - Generate accounts for every identity
  read          - Generate the account for one identity
  create        - Generate attributes for a new account
  schema        - Show the account schema
  entitlements  - List the entitlements the connector exposes
  test          - Test the connection to the identity source
  counters      - Show counter state
  am            - Manage configuration
  db            - Manage the state database

Examples:
  attrgen list --format table     # Generate and print accounts
  attrgen read 2c9180835d2e5168   # Generate one account
  attrgen create --name jdoe --attr firstname=Jane --attr lastname=Doe
  attrgen am show                 # Show current configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: attrgen.toml cascade)")

	rootCmd.AddCommand(commands.ListCmd)
	rootCmd.AddCommand(commands.ReadCmd)
	rootCmd.AddCommand(commands.CreateCmd)
	rootCmd.AddCommand(commands.SchemaCmd)
	rootCmd.AddCommand(commands.EntitlementsCmd)
	rootCmd.AddCommand(commands.TestCmd)
	rootCmd.AddCommand(commands.CountersCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
