package integrity

import (
	"context"
	"errors"

	"workspace-sync/core/reconcile"
	"workspace-sync/core/storage"
	"workspace-sync/core/tabular"
	"workspace-sync/core/workspace"
	"workspace-sync/feature/integrity/checks"

	"go.uber.org/zap"
)

// ErrArchiveDisabled is returned by the archive checks when no storage client is configured.
var ErrArchiveDisabled = errors.New("report archiving is disabled")

// Planner discovers the tables a run would touch. *reconcile.Engine satisfies it.
type Planner interface {
	Discover(ctx context.Context) ([]tabular.TableInfo, error)
	Plan(infos []tabular.TableInfo) ([]reconcile.Table, []reconcile.TableReport)
}

// Service handles integrity checks.
type Service struct {
	planner Planner
	store   tabular.Client
	ws      workspace.Client
	client  storage.Client
	bucket  string
	prefix  string
	cfg     reconcile.Config
	logger  *zap.Logger
}

// NewService creates a new integrity service. client may be nil when reports are not archived.
func NewService(planner Planner, store tabular.Client, ws workspace.Client, client storage.Client, storageCfg storage.Config, cfg reconcile.Config, logger *zap.Logger) *Service {
	return &Service{
		planner: planner,
		store:   store,
		ws:      ws,
		client:  client,
		bucket:  storageCfg.Bucket,
		prefix:  storageCfg.ReportPrefix,
		cfg:     cfg,
		logger:  logger,
	}
}

// CheckSchema discovers the bound tables and verifies their columns. Bound
// tables missing from the store are reported as errors.
func (s *Service) CheckSchema(ctx context.Context) (*checks.SchemaReport, error) {
	infos, err := s.planner.Discover(ctx)
	if err != nil {
		return nil, err
	}

	tables, skipped := s.planner.Plan(infos)
	report, err := checks.CheckSchema(ctx, s.store, tables)
	if err != nil {
		return nil, err
	}
	for _, sk := range skipped {
		report.Matched = false
		report.Errors = append(report.Errors, sk.Table+": "+sk.Error)
	}
	return report, nil
}

// CheckWorkspace checks every bound workspace container.
func (s *Service) CheckWorkspace(ctx context.Context) []checks.ContainerReport {
	return checks.CheckWorkspace(ctx, s.ws, s.cfg.Bindings, s.cfg.Policy(), s.cfg.Workers)
}

// CheckArchive returns what is missing for report archiving.
func (s *Service) CheckArchive(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, ErrArchiveDisabled
	}
	return checks.CheckArchive(ctx, s.client, s.bucket, s.prefix)
}

// FixArchive creates what CheckArchive reported missing.
func (s *Service) FixArchive(ctx context.Context, missing []string) error {
	if s.client == nil {
		return ErrArchiveDisabled
	}
	return checks.FixArchive(ctx, s.client, s.bucket, s.prefix, s.logger, missing)
}
