package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"workspace-sync/core/reconcile"
	"workspace-sync/core/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrArchiveDisabled is returned by archive lookups when reports are not archived.
var ErrArchiveDisabled = errors.New("report archiving is disabled")

// Runner performs one reconciliation run. *reconcile.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, opts reconcile.Options) (*reconcile.RunReport, error)
}

// ArchiveConfig controls where run reports are archived.
type ArchiveConfig struct {
	Enabled bool
	Bucket  string
	Prefix  string
	// Retain is the number of reports kept after each upload. 0 keeps all.
	Retain int
}

// Service triggers sync runs and keeps their reports.
type Service struct {
	runner  Runner
	client  storage.Client
	archive ArchiveConfig
	logger  *zap.Logger

	group singleflight.Group

	mu   stdsync.RWMutex
	last *reconcile.RunReport
}

// NewService creates a new sync service. client may be nil when archiving is disabled.
func NewService(runner Runner, client storage.Client, archive ArchiveConfig, logger *zap.Logger) *Service {
	if client == nil {
		archive.Enabled = false
	}
	return &Service{
		runner:  runner,
		client:  client,
		archive: archive,
		logger:  logger,
	}
}

// Trigger runs a sync. Concurrent triggers for the same mode share one run;
// shared reports whether the caller joined a run already in flight.
func (s *Service) Trigger(ctx context.Context, dryRun bool) (report *reconcile.RunReport, shared bool, err error) {
	key := "live"
	if dryRun {
		key = "dry-run"
	}

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.run(ctx, dryRun)
	})
	if r, ok := v.(*reconcile.RunReport); ok {
		report = r
	}
	return report, shared, err
}

func (s *Service) run(ctx context.Context, dryRun bool) (*reconcile.RunReport, error) {
	s.logger.Info("Sync run started", zap.Bool("dry_run", dryRun))

	report, err := s.runner.Run(ctx, reconcile.Options{DryRun: dryRun})
	if report != nil {
		s.mu.Lock()
		s.last = report
		s.mu.Unlock()
		s.archiveReport(ctx, report)
	}
	if err != nil {
		s.logger.Error("Sync run aborted", zap.Error(err))
		return report, err
	}

	s.logger.Info("Sync run finished",
		zap.String("run_id", report.RunID),
		zap.Bool("failed", report.Failed()),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (s *Service) archiveReport(ctx context.Context, report *reconcile.RunReport) {
	if !s.archive.Enabled {
		return
	}

	key, err := reconcile.ArchiveReport(ctx, s.client, s.archive.Bucket, s.archive.Prefix, report)
	if err != nil {
		s.logger.Warn("Failed to archive run report", zap.Error(err))
		return
	}
	s.logger.Debug("Run report archived", zap.String("key", key))

	removed, err := reconcile.PruneReports(ctx, s.client, s.archive.Bucket, s.archive.Prefix, s.archive.Retain)
	if err != nil {
		s.logger.Warn("Failed to prune archived reports", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Debug("Pruned archived reports", zap.Int("removed", removed))
	}
}

// LastReport returns the report of the most recent run, or nil.
func (s *Service) LastReport() *reconcile.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// ListReports returns archived report keys, newest first. limit <= 0 returns all.
func (s *Service) ListReports(ctx context.Context, limit int) ([]string, error) {
	if !s.archive.Enabled {
		return nil, ErrArchiveDisabled
	}
	keys, err := reconcile.ListReports(ctx, s.client, s.archive.Bucket, s.archive.Prefix)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// GetReport loads an archived report.
func (s *Service) GetReport(ctx context.Context, key string) (*reconcile.RunReport, error) {
	if !s.archive.Enabled {
		return nil, ErrArchiveDisabled
	}
	return reconcile.GetReport(ctx, s.client, s.archive.Bucket, key)
}

// Schedule triggers a live run every interval until ctx ends.
func (s *Service) Schedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.logger.Info("Scheduled sync enabled", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, shared, _ := s.Trigger(ctx, false); shared {
				s.logger.Debug("Scheduled sync joined a run in flight")
			}
		}
	}
}
