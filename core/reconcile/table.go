package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"workspace-sync/core/logger"
	"workspace-sync/core/retry"
	"workspace-sync/core/tabular"
	"workspace-sync/core/workspace"

	"github.com/samber/lo"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Table kinds.
const (
	KindNative = "native"
	KindPeople = "people"
	KindAudit  = "audit"
)

// Env carries the collaborators a table needs to load itself.
type Env struct {
	Store     tabular.Client
	Workspace workspace.Client
	Reader    *Reader
	Policy    retry.Policy
	Users     map[string]workspace.User
	RowLimit  int
	Logger    *zap.Logger
}

// Snapshot is everything read for one table before any decision is made.
type Snapshot struct {
	// Table is the store table name.
	Table string
	// Name is the workspace container display name.
	Name string
	// Read holds the stored rows.
	Read *ReadResult
	// Dest is the lower-cased column set of the store table.
	Dest map[string]struct{}
	// Columns are the column descriptors, injected ones included.
	Columns []workspace.Column
	// Records are the workspace records, injected ones included.
	Records []workspace.Record
	// Cells are the audit cells the workspace returned for the container.
	Cells []workspace.Cell
	// Synthetic are records injected by the table itself.
	Synthetic []workspace.Record
}

// Table is one store table taking part in a run.
type Table interface {
	// Name returns the store table name.
	Name() string
	// Kind returns one of the Kind constants.
	Kind() string
	// Load reads the store table and its source.
	Load(ctx context.Context, env *Env) (*Snapshot, error)
	// Diff builds the change set from a snapshot.
	Diff(snap *Snapshot, log *zap.Logger) *ChangeSet
	// Flatten returns the audit cells of a snapshot.
	Flatten(snap *Snapshot) []workspace.Cell
}

// ledgerDiffer is implemented by tables whose rows can only be computed once
// every other table has been read.
type ledgerDiffer interface {
	DiffLedger(snap *Snapshot, ledger *Ledger) *ChangeSet
}

// readStore loads the store side of a table: its columns and its rows.
// A degraded read is logged and kept.
func readStore(ctx context.Context, env *Env, table string) (*ReadResult, map[string]struct{}, error) {
	log := logger.WithTable(env.Logger, table)

	columns, err := retry.Do(ctx, env.Policy, func(ctx context.Context) ([]tabular.Column, error) {
		return env.Store.ListColumns(ctx, table)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list columns: %w", err)
	}

	read, err := env.Reader.Fetch(ctx, table)
	if err != nil {
		var perr *PaginationError
		if !errors.As(err, &perr) {
			return nil, nil, err
		}
		log.Warn("Table read is degraded, continuing with partial rows",
			zap.Int("rows", len(read.Rows)),
			zap.Error(err))
	}

	return read, ColumnSet(columns), nil
}

func fetchDataset(ctx context.Context, env *Env, table, containerID string) (*workspace.Dataset, error) {
	ds, err := retry.Do(ctx, env.Policy, func(ctx context.Context) (*workspace.Dataset, error) {
		return env.Workspace.GetDataset(ctx, containerID, env.RowLimit)
	})
	if err != nil {
		return nil, &WorkspaceFetchError{Table: table, ContainerID: containerID, Err: err}
	}
	return ds, nil
}

// NativeTable is a store table fed by one workspace container.
type NativeTable struct {
	table       string
	containerID string
}

// NewNativeTable creates a native table.
func NewNativeTable(table, containerID string) *NativeTable {
	return &NativeTable{table: table, containerID: containerID}
}

func (t *NativeTable) Name() string { return t.table }
func (t *NativeTable) Kind() string { return KindNative }

func (t *NativeTable) Load(ctx context.Context, env *Env) (*Snapshot, error) {
	read, dest, err := readStore(ctx, env, t.table)
	if err != nil {
		return nil, err
	}

	ds, err := fetchDataset(ctx, env, t.table, t.containerID)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Table:   t.table,
		Name:    ds.Name,
		Read:    read,
		Dest:    dest,
		Columns: ds.Columns,
		Records: ds.Records,
		Cells:   ds.Cells,
	}, nil
}

func (t *NativeTable) Diff(snap *Snapshot, log *zap.Logger) *ChangeSet {
	return Build(t.table, snap.Records, snap.Columns, snap.Dest, snap.Read, log)
}

// Flatten uses the cells returned by the workspace, flattening the records
// itself when there are none.
func (t *NativeTable) Flatten(snap *Snapshot) []workspace.Cell {
	if len(snap.Cells) > 0 {
		return snap.Cells
	}
	var cells []workspace.Cell
	for _, r := range snap.Records {
		cells = append(cells, Flatten(snap.Name, r, snap.Columns)...)
	}
	return cells
}

// PeopleTable is a native table that also receives every workspace user
// missing from its container as an injected record.
type PeopleTable struct {
	NativeTable
}

// NewPeopleTable creates a people table.
func NewPeopleTable(table, containerID string) *PeopleTable {
	return &PeopleTable{NativeTable: NativeTable{table: table, containerID: containerID}}
}

func (t *PeopleTable) Kind() string { return KindPeople }

func (t *PeopleTable) Load(ctx context.Context, env *Env) (*Snapshot, error) {
	snap, err := t.NativeTable.Load(ctx, env)
	if err != nil {
		return nil, err
	}

	columns, synthetic := injectUsers(snap.Columns, snap.Records, env.Users)
	snap.Columns = columns
	snap.Synthetic = synthetic
	snap.Records = append(snap.Records, synthetic...)
	return snap, nil
}

// Flatten always flattens injected records explicitly.
func (t *PeopleTable) Flatten(snap *Snapshot) []workspace.Cell {
	native := &Snapshot{Name: snap.Name, Columns: snap.Columns, Cells: snap.Cells}
	native.Records = snap.Records[:len(snap.Records)-len(snap.Synthetic)]

	cells := t.NativeTable.Flatten(native)
	for _, r := range snap.Synthetic {
		cells = append(cells, Flatten(snap.Name, r, userColumns(snap.Columns))...)
	}
	return cells
}

// injectUsers returns the descriptors extended with name/email columns when
// the container has none, and one record per user the container lacks.
func injectUsers(columns []workspace.Column, records []workspace.Record, users map[string]workspace.User) ([]workspace.Column, []workspace.Record) {
	out := make([]workspace.Column, len(columns))
	copy(out, columns)

	nameSrc := sourceFor(out, "name")
	if nameSrc == "" {
		nameSrc = "name"
		out = append(out, workspace.Column{SourceName: nameSrc, DestName: "name", SourceType: "title", DestType: "VARCHAR", Ordinal: len(out)})
	}
	emailSrc := sourceFor(out, "email")
	if emailSrc == "" {
		emailSrc = "email"
		out = append(out, workspace.Column{SourceName: emailSrc, DestName: "email", SourceType: "email", DestType: "VARCHAR", Ordinal: len(out)})
	}

	known := lo.SliceToMap(records, func(r workspace.Record) (string, struct{}) {
		return r.ID, struct{}{}
	})

	ids := lo.Keys(users)
	sort.Strings(ids)

	var synthetic []workspace.Record
	for _, id := range ids {
		if _, ok := known[id]; ok {
			continue
		}
		u := users[id]
		synthetic = append(synthetic, workspace.Record{
			ID:    id,
			Title: u.Name,
			Fields: map[string]any{
				"id":     id,
				nameSrc:  u.Name,
				emailSrc: u.Email,
			},
		})
	}

	return out, synthetic
}

func sourceFor(columns []workspace.Column, dest string) string {
	for _, c := range columns {
		if c.DestName == dest {
			return c.SourceName
		}
	}
	return ""
}

func userColumns(columns []workspace.Column) []workspace.Column {
	return lo.Filter(columns, func(c workspace.Column, _ int) bool {
		return c.DestName == "name" || c.DestName == "email"
	})
}

// AuditTable holds the flattened cells of every other table. Its rows are
// keyed by "<row id>:<column>" and only written when new or changed.
type AuditTable struct {
	table string
}

// NewAuditTable creates an audit table.
func NewAuditTable(table string) *AuditTable {
	return &AuditTable{table: table}
}

func (t *AuditTable) Name() string { return t.table }
func (t *AuditTable) Kind() string { return KindAudit }

func (t *AuditTable) Load(ctx context.Context, env *Env) (*Snapshot, error) {
	read, dest, err := readStore(ctx, env, t.table)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Table: t.table, Name: t.table, Read: read, Dest: dest}, nil
}

// Diff is empty; the audit rows depend on the sealed ledger.
func (t *AuditTable) Diff(snap *Snapshot, _ *zap.Logger) *ChangeSet {
	return &ChangeSet{Table: t.table, HasExistingData: snap.Read.HasExistingData()}
}

func (t *AuditTable) Flatten(*Snapshot) []workspace.Cell { return nil }

// AuditID is the row id of a cell.
func AuditID(c workspace.Cell) string {
	return c.RowID + ":" + c.Column
}

// DiffLedger turns the ledger's cells into rows, keeping those missing from
// the store or whose value or count changed.
func (t *AuditTable) DiffLedger(snap *Snapshot, ledger *Ledger) *ChangeSet {
	cs := &ChangeSet{Table: t.table, HasExistingData: snap.Read.HasExistingData()}
	existing := snap.Read.Index()
	seen := make(map[string]struct{})

	for _, c := range ledger.Cells() {
		id := AuditID(c)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		d := Decision{ID: id, Action: ActionInsert, Reason: ReasonNew}
		if rows := existing[id]; len(rows) > 0 {
			d.Action, d.Reason = ActionSkip, ReasonUnchanged
			if auditChanged(rows[0], c) {
				d.Action, d.Reason = ActionInsert, ReasonSupersede
			}
		}
		cs.Decisions = append(cs.Decisions, d)
		if d.Action == ActionInsert {
			cs.Rows = append(cs.Rows, auditRow(id, c, snap.Dest))
		}
	}

	return cs
}

func auditRow(id string, c workspace.Cell, dest map[string]struct{}) tabular.Row {
	values := map[string]any{
		"container_name": c.Container,
		"column_name":    c.Column,
		"column_type":    c.Type,
		"row_id":         c.RowID,
		"cell_value":     c.Value,
		"cell_count":     c.Count,
	}
	row := tabular.Row{"id": id}
	for col, v := range values {
		if _, ok := dest[col]; ok {
			row[col] = v
		}
	}
	return row
}

func auditChanged(stored TargetRow, c workspace.Cell) bool {
	if v, ok := stored.Columns.Get("cell_value"); ok && cast.ToString(v) != c.Value {
		return true
	}
	if v, ok := stored.Columns.Get("cell_count"); ok && cast.ToInt(v) != c.Count {
		return true
	}
	return false
}
