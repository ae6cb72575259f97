package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workspace-sync/core/storage"
	"workspace-sync/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform pre-flight checks before a sync",
	Long:  `Checks that the bound tables have the required columns, that every bound workspace database answers and that the report archive exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return cmd.Help()
		}
		return runIntegrityChecks(cmd.Context(), true, true, true)
	},
}

// schemaCmd represents the integrity schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the columns of every bound table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, false, false)
	},
}

// workspaceCmd represents the integrity workspace command
var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Check that every bound workspace database answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, true, false)
	},
}

// archiveCmd represents the integrity archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Check and fix the report archive location",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, false, true)
	},
}

func init() {
	archiveCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the bucket and prefix when missing")

	integrityCmd.AddCommand(schemaCmd)
	integrityCmd.AddCommand(workspaceCmd)
	integrityCmd.AddCommand(archiveCmd)
	RootCmd.AddCommand(integrityCmd)
}

func runIntegrityChecks(ctx context.Context, schema, ws, archive bool) error {
	start := time.Now()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.logger.Sync()
	logg := a.logger

	var client storage.Client
	if archive {
		if client, err = storage.NewClient(a.cfg.Storage); err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
	}
	svc := integrity.NewService(a.engine, a.store, a.ws, client, a.cfg.Storage, a.cfg.Sync, logg)

	problems := 0

	if schema {
		report, err := svc.CheckSchema(ctx)
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		for name, t := range report.Tables {
			if t.Status != "ok" {
				problems++
				logg.Warn("Table schema incomplete",
					zap.String("table", name),
					zap.String("kind", t.Kind),
					zap.Strings("missing_columns", t.MissingColumns),
					zap.Strings("type_mismatches", t.TypeMismatches))
			}
		}
		for _, e := range report.Errors {
			problems++
			logg.Warn("Schema check error", zap.String("error", e))
		}
		logg.Info("Schema check completed", zap.Int("tables", len(report.Tables)), zap.Bool("matched", report.Matched))
	}

	if ws {
		reports := svc.CheckWorkspace(ctx)
		for _, r := range reports {
			if r.Status != "ok" {
				problems++
				logg.Warn("Workspace container unreachable",
					zap.String("table", r.Table),
					zap.String("container_id", r.ContainerID),
					zap.String("error", r.Error))
				continue
			}
			logg.Info("Workspace container", zap.String("table", r.Table), zap.String("name", r.Name), zap.Int("columns", r.Columns))
		}
	}

	if archive {
		missing, err := svc.CheckArchive(ctx)
		if err != nil && !errors.Is(err, integrity.ErrArchiveDisabled) {
			return fmt.Errorf("archive check failed: %w", err)
		}
		if len(missing) > 0 {
			if fixFlag {
				if err := svc.FixArchive(ctx, missing); err != nil {
					return fmt.Errorf("failed to fix archive location: %w", err)
				}
			} else {
				problems++
				logg.Warn("Archive location incomplete, use --fix to create it", zap.Strings("missing", missing))
			}
		}
	}

	logg.Info("Integrity checks completed", zap.Int("problems", problems), zap.Duration("execution_time", time.Since(start)))
	if problems > 0 {
		return fmt.Errorf("integrity checks found %d problem(s)", problems)
	}
	return nil
}
