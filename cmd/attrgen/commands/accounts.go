package commands

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/attrgen/account"
	"github.com/teranos/attrgen/connector"
	"github.com/teranos/attrgen/display"
	"github.com/teranos/attrgen/sym"
)

// ListCmd generates accounts for every identity
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: sym.List + " Generate accounts for every identity",
	Long: sym.List + ` list — Generate accounts for every identity matching source.search

Unique attributes are resolved across the whole run and counter state is
saved once the run completes.

Examples:
  attrgen list                    # JSON lines, one account per identity
  attrgen list --format table     # Table of accounts
  attrgen list --format yaml      # YAML document`,
	RunE: runList,
}

// ReadCmd generates the account for one identity
var ReadCmd = &cobra.Command{
	Use:   "read <identity-id>",
	Short: sym.Read + " Generate the account for one identity",
	Long: sym.Read + ` read — Generate the account for one identity

Counters start from scratch for every read and uniqueness is not enforced.`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

var listFormat, readFormat string

func init() {
	ListCmd.Flags().StringVarP(&listFormat, "format", "f", "jsonl", "Output format: jsonl, json, yaml, table")
	ReadCmd.Flags().StringVarP(&readFormat, "format", "f", "json", "Output format: json, yaml")
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if listFormat == "jsonl" {
		_, err := s.connector.List(cmd.Context(), connector.NewJSONSink(out))
		return err
	}

	sink := &connector.SliceSink{}
	summary, err := s.connector.List(cmd.Context(), sink)
	if err != nil {
		return err
	}

	if listFormat == "table" {
		if err := renderAccounts(sink.Accounts); err != nil {
			return err
		}
		pterm.Info.Printfln("%d accounts, %d values generated, %d failed (run %s)",
			len(sink.Accounts), summary.Generated, summary.Failed, summary.RunID)
		return nil
	}
	return display.Write(out, listFormat, sink.Accounts)
}

func runRead(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	acct, err := s.connector.Read(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return display.Write(cmd.OutOrStdout(), readFormat, acct)
}

// renderAccounts prints accounts as a table with one column per attribute.
func renderAccounts(accounts []*account.Account) error {
	columns := map[string]bool{}
	for _, a := range accounts {
		for name := range a.Attributes {
			if name != account.AttrID && name != account.AttrName {
				columns[name] = true
			}
		}
	}
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	header := append([]string{account.AttrID, account.AttrName}, names...)
	data := pterm.TableData{header}
	for _, a := range accounts {
		row := []string{a.ID(), a.String(account.AttrName)}
		for _, name := range names {
			v := a.Attributes[name]
			if v == nil {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprint(v))
		}
		data = append(data, row)
	}

	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
