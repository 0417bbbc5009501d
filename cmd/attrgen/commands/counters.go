package commands

import (
	"sort"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/attrgen/display"
	"github.com/teranos/attrgen/sym"
)

// CountersCmd shows counter state
var CountersCmd = &cobra.Command{
	Use:   "counters",
	Short: sym.Counter + " Show counter state",
	Long: sym.Counter + ` counters — Show counter state

Configured: the [counters] value create starts from.
Saved: the list-run state stored in the database.`,
	RunE: runCounters,
}

var countersFormat string

func init() {
	CountersCmd.Flags().StringVarP(&countersFormat, "format", "f", "table", "Output format: table, json, yaml")
}

// counterRow is one counter in the output.
type counterRow struct {
	Name       string `json:"name" yaml:"name"`
	Configured *int64 `json:"configured,omitempty" yaml:"configured,omitempty"`
	Saved      *int64 `json:"saved,omitempty" yaml:"saved,omitempty"`
}

func runCounters(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	saved, err := s.connector.SavedState(cmd.Context())
	if err != nil {
		return err
	}

	rows := map[string]*counterRow{}
	row := func(name string) *counterRow {
		if r, ok := rows[name]; ok {
			return r
		}
		r := &counterRow{Name: name}
		rows[name] = r
		return r
	}
	for name, v := range s.cfg.CounterSeed() {
		row(name).Configured = &v
	}
	for name, v := range saved {
		row(name).Saved = &v
	}

	names := make([]string, 0, len(rows))
	for name := range rows {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]*counterRow, len(names))
	for i, name := range names {
		ordered[i] = rows[name]
	}

	if countersFormat != "table" {
		return display.Write(cmd.OutOrStdout(), countersFormat, ordered)
	}

	data := pterm.TableData{{"counter", "configured", "saved"}}
	for _, r := range ordered {
		data = append(data, []string{r.Name, formatOptional(r.Configured), formatOptional(r.Saved)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func formatOptional(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}
