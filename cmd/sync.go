package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"workspace-sync/core/reconcile"
	"workspace-sync/core/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncDryRun  bool
	syncWorkers int
	syncArchive bool
	syncJSON    bool
)

// syncCmd runs a single reconciliation.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the workspace into the store",
	Long: `Reads every bound table and its workspace database, decides per record
whether to insert or skip, resolves identifiers into labels and writes the
changes. Pre-work statements run first and post-work statements last.

Examples:
  # Show what would change without writing
  sync --dry-run

  # Read four tables at a time and archive the report
  sync --workers 4 --archive`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Plan every write but execute none")
	syncCmd.Flags().IntVar(&syncWorkers, "workers", 0, "Tables read concurrently (overrides SYNC_WORKERS)")
	syncCmd.Flags().BoolVar(&syncArchive, "archive", false, "Upload the run report to object storage")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Print the run report as JSON on stdout")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(withWorkers(syncWorkers))
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	a.logger.Info("Starting sync",
		zap.Int("bindings", len(a.cfg.Sync.Bindings)),
		zap.Int("workers", a.cfg.Sync.Workers),
		zap.Bool("dry_run", syncDryRun))

	report, runErr := a.engine.Run(ctx, reconcile.Options{DryRun: syncDryRun})
	if report != nil {
		printSyncReport(a.logger, report)

		if syncArchive || a.cfg.Server.ArchiveReports {
			archiveReport(ctx, a.logger, a.cfg.Storage, report)
		}
		if syncJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
		}
	}
	if runErr != nil {
		return fmt.Errorf("sync aborted: %w", runErr)
	}

	if report.Failed() {
		failed := 0
		for _, t := range report.Tables {
			if t.Status == reconcile.StatusFailed {
				failed++
			}
		}
		return fmt.Errorf("sync finished with %d failed table(s)", failed)
	}
	return nil
}

func archiveReport(ctx context.Context, l *zap.Logger, cfg storage.Config, report *reconcile.RunReport) {
	client, err := storage.NewClient(cfg)
	if err != nil {
		l.Warn("Failed to create storage client, report not archived", zap.Error(err))
		return
	}

	key, err := reconcile.ArchiveReport(ctx, client, cfg.Bucket, cfg.ReportPrefix, report)
	if err != nil {
		l.Warn("Failed to archive run report", zap.Error(err))
		return
	}
	l.Info("Run report archived", zap.String("bucket", cfg.Bucket), zap.String("key", key))

	if _, err := reconcile.PruneReports(ctx, client, cfg.Bucket, cfg.ReportPrefix, cfg.ReportRetain); err != nil {
		l.Warn("Failed to prune archived reports", zap.Error(err))
	}
}

// printSyncReport logs one line per statement and table, then a summary.
func printSyncReport(l *zap.Logger, report *reconcile.RunReport) {
	statements := make([]reconcile.StatementReport, 0, len(report.PreWork)+len(report.PostWork))
	statements = append(statements, report.PreWork...)
	statements = append(statements, report.PostWork...)
	for _, s := range statements {
		fields := []zap.Field{
			zap.String("phase", s.Phase),
			zap.String("name", s.Name),
			zap.Bool("executed", s.Executed),
			zap.Int64("rows_affected", s.Rows),
		}
		if s.Error != "" {
			l.Warn("Statement failed", append(fields, zap.String("error", s.Error))...)
			continue
		}
		l.Info("Statement", fields...)
	}

	for _, t := range report.Tables {
		fields := []zap.Field{
			zap.String("table", t.Table),
			zap.String("kind", t.Kind),
			zap.String("status", string(t.Status)),
			zap.Int("stored_rows", t.StoredRows),
			zap.Int("source_records", t.SourceRecords),
			zap.Int("new", t.New),
			zap.Int("superseded", t.Superseded),
			zap.Int("unchanged", t.Unchanged),
			zap.Int("reverse_sync_pending", t.ReverseSyncPending),
			zap.Int("unverified", t.Unverified),
			zap.Int("deleted", t.Deleted),
			zap.Int("inserted", t.Inserted),
		}
		if t.Degraded {
			fields = append(fields, zap.Bool("degraded", true))
		}
		switch t.Status {
		case reconcile.StatusFailed:
			l.Error("Table failed", append(fields, zap.String("error", t.Error))...)
		case reconcile.StatusSkipped:
			l.Warn("Table skipped", append(fields, zap.String("reason", t.Error))...)
		default:
			l.Info("Table", fields...)
		}
	}

	l.Info("Sync report",
		zap.String("run_id", report.RunID),
		zap.Bool("dry_run", report.DryRun),
		zap.Int("tables", len(report.Tables)),
		zap.Int("labels", report.Labels),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
}
