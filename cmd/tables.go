package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// tablesCmd lists the tables a sync would touch.
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List bound tables and their store columns",
	Long: `Authenticates against the store, discovers the tables matching the
configured prefix and prints, in run order, each table with its kind, its
bound workspace database and its column count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		infos, err := a.engine.Discover(ctx)
		if err != nil {
			return fmt.Errorf("failed to discover tables: %w", err)
		}

		containers := make(map[string]string, len(a.cfg.Sync.Bindings))
		for _, b := range a.cfg.Sync.Bindings {
			containers[b.Table] = b.ContainerID
		}

		tables, skipped := a.engine.Plan(infos)
		for _, t := range tables {
			columns, err := a.store.ListColumns(ctx, t.Name())
			if err != nil {
				a.logger.Error("Failed to list columns", zap.String("table", t.Name()), zap.Error(err))
				continue
			}
			a.logger.Info("Table",
				zap.String("table", t.Name()),
				zap.String("kind", t.Kind()),
				zap.String("container_id", containers[t.Name()]),
				zap.Int("columns", len(columns)),
			)
		}
		for _, s := range skipped {
			a.logger.Warn("Table skipped", zap.String("table", s.Table), zap.String("kind", s.Kind), zap.String("reason", s.Error))
		}

		a.logger.Info("Discovered tables",
			zap.Int("store", len(infos)),
			zap.Int("bound", len(tables)),
			zap.Int("skipped", len(skipped)))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(tablesCmd)
}
