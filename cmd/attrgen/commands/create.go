package commands

import (
	"bufio"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/teranos/attrgen/am"
	"github.com/teranos/attrgen/display"
	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/logger"
	"github.com/teranos/attrgen/sym"
)

// CreateCmd generates attributes for new accounts
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: sym.Create + " Generate attributes for a new account",
	Long: sym.Create + ` create — Generate attributes for a new account

Counter attributes draw the next value from the configured counters. The
advanced counters are written back to the [counters] table of the config
file (with rotating .back1-3 backups).

With --stdin, requests are read as JSON lines ({"name": ..., "attributes":
{...}}) until EOF, and edits to the config file raise counters while
running.

Examples:
  attrgen create --name jdoe --attr firstname=Jane --attr lastname=Doe
  cat requests.jsonl | attrgen create --stdin`,
	RunE: runCreate,
}

var (
	createName   string
	createAttrs  map[string]string
	createStdin  bool
	createFormat string
)

func init() {
	CreateCmd.Flags().StringVar(&createName, "name", "", "Account name (defaults to the name attribute)")
	CreateCmd.Flags().StringToStringVar(&createAttrs, "attr", nil, "Input attribute key=value (repeatable)")
	CreateCmd.Flags().BoolVar(&createStdin, "stdin", false, "Read create requests as JSON lines from stdin")
	CreateCmd.Flags().StringVarP(&createFormat, "format", "f", "json", "Output format: json, yaml")
}

// createRequest is one JSON line read with --stdin.
type createRequest struct {
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
}

func runCreate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if !createStdin {
		attrs := make(map[string]any, len(createAttrs))
		for k, v := range createAttrs {
			attrs[k] = v
		}
		created, err := s.connector.Create(ctx, createName, attrs)
		if err != nil {
			return err
		}
		return display.Write(out, createFormat, created)
	}

	path := configPath(cmd)
	watcher, err := am.NewConfigWatcher(path)
	if err != nil {
		logger.Warnw("Config watcher unavailable, counters will not follow file edits",
			logger.FieldPath, path, logger.FieldError, err)
	} else {
		am.SetGlobalWatcher(watcher)
		defer func() {
			am.SetGlobalWatcher(nil)
			watcher.Stop()
		}()
		watcher.OnReload(func(cfg *am.Config) error {
			return s.connector.ReloadCounters(ctx, cfg.CounterSeed())
		})
		watcher.Start()
	}

	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var req createRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			return errors.Wrapf(err, "stdin line %d", line)
		}
		created, err := s.connector.Create(ctx, req.Name, req.Attributes)
		if err != nil {
			return errors.Wrapf(err, "stdin line %d", line)
		}
		if err := enc.Encode(created); err != nil {
			return err
		}
	}
	return scanner.Err()
}
