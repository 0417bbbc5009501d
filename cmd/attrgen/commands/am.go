package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/attrgen/am"
	"github.com/teranos/attrgen/display"
	"github.com/teranos/attrgen/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage attrgen configuration",
	Long: sym.AM + ` am — Manage attrgen configuration

Configuration sources (in order of precedence):
1. Environment variables (ATTRGEN_* prefix)
2. Project config (attrgen.toml, searched upwards from the working directory)
3. User config (~/.attrgen/attrgen.toml)
4. System config (/etc/attrgen/attrgen.toml)
5. Default values

Examples:
  attrgen am show                 # Show current configuration
  attrgen am show --format yaml   # Show configuration as YAML
  attrgen am validate             # Validate current configuration
  attrgen am where                # Show where each setting comes from`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd); err != nil {
			return err
		}
		pterm.Success.Println("Configuration is valid")
		return nil
	},
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	shown := *cfg
	if shown.Source.ClientSecret != "" {
		shown.Source.ClientSecret = "********"
	}

	out := cmd.OutOrStdout()
	if configFormat != "json" {
		fmt.Fprintln(out, "# attrgen configuration")
	}
	return display.Write(out, configFormat, shown)
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return fmt.Errorf("failed to get config introspection: %w", err)
	}

	fmt.Println("Configuration cascade (later overrides earlier):")
	fmt.Println("  1. [DEFAULT]  Built-in defaults")
	fmt.Println("  2. [SYSTEM]   /etc/attrgen/attrgen.toml")
	fmt.Println("  3. [USER]     ~/.attrgen/attrgen.toml")
	fmt.Println("  4. [PROJECT]  ./attrgen.toml (searches up directories)")
	fmt.Println("  5. [ENV]      ATTRGEN_* environment variables")
	fmt.Println()

	if intro.ConfigFile != "" {
		if _, err := os.Stat(intro.ConfigFile); err == nil {
			pterm.Info.Printfln("Active config file: %s", intro.ConfigFile)
		}
	}

	data := pterm.TableData{{"key", "value", "source", "from"}}
	for _, s := range intro.Settings {
		data = append(data, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
