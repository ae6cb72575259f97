package cmd

import (
	"errors"
	"fmt"

	"workspace-sync/core/config"
	"workspace-sync/core/database"
	"workspace-sync/core/logger"
	"workspace-sync/core/reconcile"
	"workspace-sync/core/tabular"
	"workspace-sync/core/workspace"

	"go.uber.org/zap"
)

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  tabular.Client
	ws     workspace.Client
	engine *reconcile.Engine
}

// override adjusts the loaded configuration before anything is built.
type override func(*config.Config)

// withWorkers sets the number of tables read concurrently; n <= 0 keeps the
// configured value.
func withWorkers(n int) override {
	return func(cfg *config.Config) {
		if n > 0 {
			cfg.Sync.Workers = n
		}
	}
}

// workspaceConfig returns the workspace settings for the API client. The
// engine already retries whole fetches when it makes more than one attempt,
// so the client then sends each request once.
func workspaceConfig(cfg *config.Config) workspace.Config {
	wc := cfg.Workspace
	if cfg.Sync.MaxAttempts > 1 {
		wc.RetryMax = 0
	}
	return wc
}

// bootstrap loads the configuration, builds the logger and connects the
// store and workspace clients.
func bootstrap(overrides ...override) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, o := range overrides {
		o(cfg)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Workspace.ApiKey == "" {
		return nil, errors.New("WORKSPACE_API_KEY is required")
	}
	if len(cfg.Sync.Bindings) == 0 {
		l.Warn("No table bindings configured", zap.String("prefix", cfg.Sync.TablePrefix))
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := tabular.NewSQLStore(db, cfg.Database.Schema, cfg.Database.Biscuits)
	ws := workspace.NewNotionClient(workspaceConfig(cfg), l)

	return &app{
		cfg:    cfg,
		logger: l,
		store:  store,
		ws:     ws,
		engine: reconcile.NewEngine(store, ws, cfg.Sync, l),
	}, nil
}
