package commands

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/teranos/attrgen/am"
	"github.com/teranos/attrgen/connector"
	"github.com/teranos/attrgen/db"
	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/identity"
	"github.com/teranos/attrgen/logger"
	"github.com/teranos/attrgen/store"
)

// loadConfig loads the --config file when given, the cascade otherwise, and
// validates the result.
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *am.Config
		err error
	)
	if path != "" {
		cfg, err = am.LoadFromFile(path)
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// configPath returns the file counter patches are written back to.
func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	if used := am.GetViper().ConfigFileUsed(); used != "" {
		return used
	}
	return am.ConfigFileName
}

// openDatabase opens and migrates the configured state database.
func openDatabase(cfg *am.Config) (*sql.DB, error) {
	path := cfg.GetDatabasePath()
	database, err := db.OpenWithMigrations(path, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}
	return database, nil
}

// openSource builds the identity source and resolves the source id whose
// accounts belong to this connector.
func openSource(ctx context.Context, cfg *am.Config) (identity.Source, string, error) {
	if cfg.Source.Offline() {
		src, err := identity.NewFileSource(cfg.Source.OfflineFile)
		if err != nil {
			return nil, "", err
		}
		return src, cfg.Source.ConnectorInstanceID, nil
	}

	client, err := identity.NewClient(ctx, identity.ClientConfig{
		BaseURL:           cfg.Source.BaseURL,
		ClientID:          cfg.Source.ClientID,
		ClientSecret:      cfg.Source.ClientSecret,
		RequestsPerMinute: cfg.Source.RequestsPerMinute,
		Timeout:           cfg.Source.Timeout(),
		AllowPrivate:      cfg.Source.AllowPrivate,
	})
	if err != nil {
		return nil, "", err
	}

	var sourceID string
	if cfg.Source.ConnectorInstanceID != "" {
		sourceID, err = client.ResolveSourceID(ctx, cfg.Source.ConnectorInstanceID)
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to resolve source")
		}
	}
	return client, sourceID, nil
}

// session bundles what a command needs to run connector operations.
type session struct {
	cfg       *am.Config
	connector *connector.Connector
	database  *sql.DB
}

func (s *session) Close() error {
	if s.database == nil {
		return nil
	}
	return s.database.Close()
}

// openSession wires configuration, identity source, stores and the counter
// write-back into a Connector.
func openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	src, sourceID, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	opts := []connector.Option{
		connector.WithStateStore(store.NewStateStore(database)),
		connector.WithPatchWriter(am.FileWriter{Path: configPath(cmd)}),
	}
	if cfg.Source.Offline() {
		opts = append(opts, connector.WithAccountStore(store.NewAccountStore(database)))
	}

	conn, err := connector.New(connector.Config{
		Definitions: cfg.Attributes,
		Counters:    cfg.CounterSeed(),
		MaxAttempts: cfg.GetMaxAttempts(),
		Search:      cfg.Source.Search,
		SourceID:    sourceID,
		StateScope:  sourceID,
	}, src, opts...)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &session{cfg: cfg, connector: conn, database: database}, nil
}
