package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"workspace-sync/core/logger"
	"workspace-sync/core/retry"
	"workspace-sync/core/tabular"
	"workspace-sync/core/workspace"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Engine runs the reconciliation from the workspace into the store.
type Engine struct {
	store     tabular.Client
	workspace workspace.Client
	cfg       Config
	logger    *zap.Logger
}

// NewEngine creates an engine.
func NewEngine(store tabular.Client, ws workspace.Client, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, workspace: ws, cfg: cfg, logger: log}
}

// tableRun is the per-table state carried from the read phase to the write phase.
type tableRun struct {
	table  Table
	snap   *Snapshot
	cs     *ChangeSet
	report *TableReport
	err    error
}

// Discover authenticates against the store and returns the tables matching
// the configured prefix.
func (e *Engine) Discover(ctx context.Context) ([]tabular.TableInfo, error) {
	policy := e.cfg.Policy()

	if _, err := retry.Do(ctx, policy, e.store.Authenticate); err != nil {
		return nil, &ConnectivityError{Op: "authenticate", Err: err}
	}

	pattern := e.cfg.TablePrefix + "%"
	tables, err := retry.Do(ctx, policy, func(ctx context.Context) ([]tabular.TableInfo, error) {
		return e.store.ListTables(ctx, pattern)
	})
	if err != nil {
		return nil, &ConnectivityError{Op: "list tables", Err: err}
	}
	if len(tables) == 0 {
		return nil, &ConnectivityError{Op: fmt.Sprintf("no tables match %q", pattern)}
	}
	return tables, nil
}

// Plan returns the tables taking part in a run, in binding order with the
// audit table last, and a skipped report for every binding whose table the
// store does not have.
func (e *Engine) Plan(infos []tabular.TableInfo) ([]Table, []TableReport) {
	exists := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		exists[strings.ToUpper(info.Table)] = struct{}{}
	}
	has := func(name string) bool {
		_, ok := exists[strings.ToUpper(name)]
		return ok
	}

	var tables []Table
	var skipped []TableReport
	for _, b := range e.cfg.Bindings {
		if strings.EqualFold(b.Table, e.cfg.AuditTable) {
			continue
		}
		if !has(b.Table) {
			e.logger.Warn("Store is missing table, skipping", zap.String("table", b.Table))
			skipped = append(skipped, TableReport{Table: b.Table, Kind: KindNative, Status: StatusSkipped, Error: "table not found in store"})
			continue
		}
		if strings.EqualFold(b.Table, e.cfg.PeopleTable) {
			tables = append(tables, NewPeopleTable(b.Table, b.ContainerID))
			continue
		}
		tables = append(tables, NewNativeTable(b.Table, b.ContainerID))
	}

	if e.cfg.AuditTable != "" {
		if has(e.cfg.AuditTable) {
			tables = append(tables, NewAuditTable(e.cfg.AuditTable))
		} else {
			e.logger.Warn("Store is missing audit table, skipping", zap.String("table", e.cfg.AuditTable))
			skipped = append(skipped, TableReport{Table: e.cfg.AuditTable, Kind: KindAudit, Status: StatusSkipped, Error: "table not found in store"})
		}
	}

	return tables, skipped
}

// Run performs one reconciliation. The returned error is non-nil only when
// the run was aborted; table-level failures are recorded in the report.
func (e *Engine) Run(ctx context.Context, opts Options) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		DryRun:    opts.DryRun,
	}
	log := e.logger.With(zap.String("run_id", report.RunID), zap.Bool("dry_run", opts.DryRun))
	defer func() { report.FinishedAt = time.Now().UTC() }()

	infos, err := e.Discover(ctx)
	if err != nil {
		return report, err
	}

	report.PreWork = e.runStatements(ctx, log, "pre", e.cfg.PreWork, opts.DryRun)

	users, err := retry.Do(ctx, e.cfg.Policy(), e.workspace.GetUsers)
	if err != nil {
		werr := &WorkspaceFetchError{Table: "users", Err: err}
		if e.cfg.AbortOnWorkspaceError || ctx.Err() != nil {
			return report, werr
		}
		log.Warn("Failed to fetch workspace users, continuing without them", zap.Error(werr))
	}

	acc := NewAccumulator()
	acc.RegisterUsers(users)

	tables, skipped := e.Plan(infos)
	env := &Env{
		Store:     e.store,
		Workspace: e.workspace,
		Reader:    NewReader(e.store, e.cfg.PageSize, e.cfg.Policy()),
		Policy:    e.cfg.Policy(),
		Users:     users,
		RowLimit:  e.cfg.RowLimit,
		Logger:    log,
	}

	runs := e.read(ctx, env, tables)
	for _, r := range runs {
		if r.err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			var werr *WorkspaceFetchError
			if errors.As(r.err, &werr) && e.cfg.AbortOnWorkspaceError {
				return report, werr
			}
			continue
		}
		acc.RegisterRecords(r.snap.Records)
		acc.AddCells(r.table.Flatten(r.snap))
	}

	ledger := acc.Seal()
	report.Labels = len(ledger.Labels())
	log.Info("Identifier ledger sealed", zap.Int("labels", report.Labels), zap.Int("cells", len(ledger.Cells())))

	sets := make([]*ChangeSet, 0, len(runs))
	for _, r := range runs {
		if r.err != nil {
			continue
		}
		if ld, ok := r.table.(ledgerDiffer); ok {
			r.cs = ld.DiffLedger(r.snap, ledger)
			r.report.summarize(r.cs)
		}
		sets = append(sets, r.cs)
	}
	resolved := ledger.Resolve(sets...)
	log.Info("Identifiers resolved", zap.Int("values", resolved))

	applyOpts := ApplyOptions{BatchSize: e.cfg.InsertBatchSize, Policy: e.cfg.Policy(), DryRun: opts.DryRun}
	for _, r := range runs {
		if r.err == nil {
			e.write(ctx, log, r, applyOpts)
		}
		report.Tables = append(report.Tables, *r.report)
	}
	report.Tables = append(report.Tables, skipped...)

	report.PostWork = e.runStatements(ctx, log, "post", e.cfg.PostWork, opts.DryRun)

	log.Info("Run finished",
		zap.Int("tables", len(report.Tables)),
		zap.Bool("failed", report.Failed()))
	return report, nil
}

// read loads and diffs every table, Workers at a time. Results keep the
// order of tables.
func (e *Engine) read(ctx context.Context, env *Env, tables []Table) []*tableRun {
	workers := e.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	runs := make([]*tableRun, len(tables))
	p := pool.New().WithMaxGoroutines(workers)
	for i, t := range tables {
		p.Go(func() {
			runs[i] = e.readTable(ctx, env, t)
		})
	}
	p.Wait()

	return runs
}

func (e *Engine) readTable(ctx context.Context, env *Env, t Table) *tableRun {
	log := logger.WithTable(env.Logger, t.Name())
	r := &tableRun{
		table:  t,
		report: &TableReport{Table: t.Name(), Kind: t.Kind()},
	}

	snap, err := t.Load(ctx, env)
	if err != nil {
		log.Error("Failed to load table", zap.Error(err))
		r.err = err
		r.report.Status = StatusFailed
		r.report.Error = err.Error()
		return r
	}

	r.snap = snap
	r.report.StoredRows = len(snap.Read.Rows)
	r.report.SourceRecords = len(snap.Records)
	r.report.Degraded = snap.Read.Degraded

	r.cs = t.Diff(snap, log)
	r.report.summarize(r.cs)

	log.Info("Table read",
		zap.Int("stored_rows", r.report.StoredRows),
		zap.Int("source_records", r.report.SourceRecords),
		zap.Int("pending", len(r.cs.Rows)))
	return r
}

func (e *Engine) write(ctx context.Context, log *zap.Logger, r *tableRun, opts ApplyOptions) {
	log = logger.WithTable(log, r.table.Name())

	res, err := ApplyChangeSet(ctx, e.store, r.cs, opts)
	r.report.Deleted = res.Deleted
	r.report.Inserted = res.Inserted

	switch {
	case err != nil:
		log.Error("Failed to write table", zap.Error(err))
		r.report.Status = StatusFailed
		r.report.Error = err.Error()
	case len(r.cs.Rows) == 0:
		r.report.Status = StatusUnchanged
	case opts.DryRun:
		r.report.Status = StatusPlanned
	default:
		r.report.Status = StatusWritten
		log.Info("Table written", zap.Int("deleted", res.Deleted), zap.Int("inserted", res.Inserted))
	}
}

func (e *Engine) runStatements(ctx context.Context, log *zap.Logger, phase string, stmts []Statement, dryRun bool) []StatementReport {
	reports := make([]StatementReport, 0, len(stmts))
	policy := retry.Policy{MaxAttempts: 1, Timeout: e.cfg.Policy().Timeout}

	for _, stmt := range stmts {
		sr := StatementReport{Phase: phase, Name: stmt.Name}
		if dryRun {
			reports = append(reports, sr)
			continue
		}

		res, err := retry.Do(ctx, policy, func(ctx context.Context) (tabular.Result, error) {
			return e.store.ExecuteStatement(ctx, stmt.SQL, nil)
		})
		if err != nil {
			serr := &StatementError{Phase: phase, Name: stmt.Name, Err: err}
			log.Error("Statement failed", zap.Error(serr))
			sr.Error = serr.Error()
		} else {
			sr.Executed = true
			sr.Rows = res.RowsAffected
			log.Info("Statement executed", zap.String("phase", phase), zap.String("name", stmt.Name), zap.Int64("rows", res.RowsAffected))
		}
		reports = append(reports, sr)
	}

	return reports
}

func (r *TableReport) summarize(cs *ChangeSet) {
	r.New = cs.Count(ReasonNew)
	r.Superseded = cs.Count(ReasonSupersede)
	r.Unchanged = cs.Count(ReasonUnchanged)
	r.ReverseSyncPending = cs.Count(ReasonStoreNewer)
	r.Unverified = cs.Count(ReasonUnverified)
	r.Decisions = cs.Decisions
}
