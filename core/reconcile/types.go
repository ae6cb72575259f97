package reconcile

import (
	"time"

	"workspace-sync/core/retry"
	"workspace-sync/core/tabular"
)

// Binding ties a store table to the workspace container that feeds it.
type Binding struct {
	// Table is the store table name (e.g. CRM_CONTACTS).
	Table string `json:"table"`
	// ContainerID is the workspace container id.
	ContainerID string `json:"container_id"`
}

// Statement is a named SQL statement run before or after the main loop.
type Statement struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// Config holds the engine settings.
type Config struct {
	// TablePrefix selects binding env vars and is the LIKE prefix for table discovery.
	TablePrefix string `mapstructure:"table_prefix" default:"CRM_"`
	// PageSize is the number of rows read per page.
	PageSize int `mapstructure:"page_size" default:"10000"`
	// InsertBatchSize is the maximum number of rows per insert call.
	InsertBatchSize int `mapstructure:"insert_batch_size" default:"1000"`
	// MaxAttempts bounds every external call, first attempt included.
	MaxAttempts int `mapstructure:"max_attempts" default:"5"`
	// BackoffMillis is the wait before the first retry; it doubles afterwards.
	BackoffMillis int `mapstructure:"backoff_ms" default:"500"`
	// CallTimeoutSeconds bounds a single attempt of an external call.
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds" default:"60"`
	// Workers is the number of tables read and diffed concurrently.
	Workers int `mapstructure:"workers" default:"1"`
	// RowLimit caps the records requested per container. 0 means all.
	RowLimit int `mapstructure:"row_limit" default:"0"`
	// AbortOnWorkspaceError makes a failed dataset fetch fatal for the run.
	AbortOnWorkspaceError bool `mapstructure:"abort_on_workspace_error" default:"false"`
	// PeopleTable receives the workspace users as injected records.
	PeopleTable string `mapstructure:"people_table" default:"CRM_PEOPLE"`
	// AuditTable receives the flattened key-value cells. Empty disables it.
	AuditTable string `mapstructure:"audit_table" default:"CRM_KV_DATA"`

	// Bindings, PreWork and PostWork are collected from prefixed env vars.
	Bindings []Binding   `mapstructure:"-"`
	PreWork  []Statement `mapstructure:"-"`
	PostWork []Statement `mapstructure:"-"`
}

// Policy returns the retry policy applied to external calls.
func (c Config) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   time.Duration(c.BackoffMillis) * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Timeout:     time.Duration(c.CallTimeoutSeconds) * time.Second,
	}
}

// Options controls a single run.
type Options struct {
	// DryRun plans every write but executes none, pre/post work included.
	DryRun bool
}

// TargetRow is the store's current row for one record.
type TargetRow struct {
	// ID is the record id.
	ID string
	// LastEditedTime is the stored timestamp; nil when absent.
	LastEditedTime any
	// Columns holds every column of the stored row.
	Columns tabular.Row
}

// Action is the outcome of a per-record decision.
type Action string

const (
	// ActionSkip leaves the store untouched.
	ActionSkip Action = "skip"
	// ActionInsert writes the row, superseding any stored one.
	ActionInsert Action = "insert"
)

// Reason explains a decision.
type Reason string

const (
	ReasonNew               Reason = "new"
	ReasonSupersede         Reason = "supersede"
	ReasonUnchanged         Reason = "unchanged"
	ReasonNoStoredTimestamp Reason = "no_stored_timestamp"
	ReasonNoSourceTimestamp Reason = "no_source_timestamp"
	ReasonStoreNewer        Reason = "store_newer"
	// ReasonUnverified marks a record whose stored row may sit on a page
	// that could not be read.
	ReasonUnverified Reason = "unverified"
)

// Decision is the per-record outcome of the change set builder.
type Decision struct {
	ID     string `json:"id"`
	Action Action `json:"action"`
	Reason Reason `json:"reason"`
}

// ChangeSet holds the rows one table needs written.
type ChangeSet struct {
	// Table is the store table name.
	Table string `json:"table"`
	// Rows are the pending rows, each containing "id".
	Rows []tabular.Row `json:"-"`
	// HasExistingData is true when the read returned rows (or may have).
	HasExistingData bool `json:"has_existing_data"`
	// Resolvable marks rows subject to identifier resolution.
	Resolvable bool `json:"resolvable"`
	// Decisions lists one decision per source record.
	Decisions []Decision `json:"decisions,omitempty"`
}

// IDs returns the ids of the pending rows in order.
func (cs *ChangeSet) IDs() []string {
	ids := make([]string, 0, len(cs.Rows))
	for _, row := range cs.Rows {
		if id, ok := row["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns how many decisions carry the given reason.
func (cs *ChangeSet) Count(reason Reason) int {
	n := 0
	for _, d := range cs.Decisions {
		if d.Reason == reason {
			n++
		}
	}
	return n
}

// TableStatus is the outcome of one table in a run.
type TableStatus string

const (
	StatusWritten   TableStatus = "written"
	StatusUnchanged TableStatus = "unchanged"
	StatusPlanned   TableStatus = "planned"
	StatusSkipped   TableStatus = "skipped"
	StatusFailed    TableStatus = "failed"
)

// TableReport summarizes one table.
type TableReport struct {
	Table              string      `json:"table"`
	Kind               string      `json:"kind"`
	Status             TableStatus `json:"status"`
	StoredRows         int         `json:"stored_rows"`
	SourceRecords      int         `json:"source_records"`
	Degraded           bool        `json:"degraded"`
	New                int         `json:"new"`
	Superseded         int         `json:"superseded"`
	Unchanged          int         `json:"unchanged"`
	ReverseSyncPending int         `json:"reverse_sync_pending"`
	Unverified         int         `json:"unverified"`
	Deleted            int         `json:"deleted"`
	Inserted           int         `json:"inserted"`
	Error              string      `json:"error,omitempty"`
	Decisions          []Decision  `json:"decisions,omitempty"`
}

// StatementReport is the outcome of one pre/post work statement.
type StatementReport struct {
	Phase    string `json:"phase"`
	Name     string `json:"name"`
	Executed bool   `json:"executed"`
	Rows     int64  `json:"rows_affected"`
	Error    string `json:"error,omitempty"`
}

// RunReport is the result of a run.
type RunReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	DryRun     bool              `json:"dry_run"`
	Labels     int               `json:"labels"`
	Tables     []TableReport     `json:"tables"`
	PreWork    []StatementReport `json:"pre_work"`
	PostWork   []StatementReport `json:"post_work"`
}

// Failed reports whether any table failed.
func (r *RunReport) Failed() bool {
	for _, t := range r.Tables {
		if t.Status == StatusFailed {
			return true
		}
	}
	return false
}
