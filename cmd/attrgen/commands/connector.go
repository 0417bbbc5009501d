package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/attrgen/display"
	"github.com/teranos/attrgen/sym"
)

// SchemaCmd prints the account schema
var SchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: sym.Schema + " Show the account schema",
	Long: sym.Schema + ` schema — Show the account schema

The schema holds id and name plus one string attribute per configured
attribute definition.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return display.Write(cmd.OutOrStdout(), schemaFormat, s.connector.Schema())
	},
}

// EntitlementsCmd lists the entitlements
var EntitlementsCmd = &cobra.Command{
	Use:   "entitlements",
	Short: "List the entitlements the connector exposes",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return display.Write(cmd.OutOrStdout(), schemaFormat, s.connector.Entitlements())
	},
}

// TestCmd checks the identity source is reachable
var TestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the connection to the identity source",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.connector.TestConnection(cmd.Context()); err != nil {
			return err
		}
		pterm.Success.Println("Identity source reachable")
		return nil
	},
}

var schemaFormat string

func init() {
	SchemaCmd.Flags().StringVarP(&schemaFormat, "format", "f", "json", "Output format: json, yaml")
	EntitlementsCmd.Flags().StringVarP(&schemaFormat, "format", "f", "json", "Output format: json, yaml")
}
