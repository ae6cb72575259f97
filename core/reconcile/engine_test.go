package reconcile

import (
	"context"
	"errors"
	"testing"

	"workspace-sync/core/tabular"
	"workspace-sync/core/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	t1 = "2024-01-01T00:00:00Z"
	t2 = "2024-01-02T00:00:00Z"
	t3 = "2024-01-03T00:00:00Z"
)

// crmFixture is a store with contacts referencing accounts and people, plus
// the audit table, and a workspace feeding them.
func crmFixture() (*memStore, *memWorkspace, Config) {
	store := newMemStore()
	store.addTable("CRM_CONTACTS", "ID", "NAME", "ACCOUNT", "OWNER", "PARENT_ID", "LAST_EDITED_TIME")
	store.addTable("CRM_ACCOUNTS", "ID", "NAME", "LAST_EDITED_TIME")
	store.addTable("CRM_PEOPLE", "ID", "NAME", "EMAIL", "LAST_EDITED_TIME")
	store.addTable("CRM_KV_DATA", "ID", "CONTAINER_NAME", "COLUMN_NAME", "COLUMN_TYPE", "ROW_ID", "CELL_VALUE", "CELL_COUNT")

	ws := newMemWorkspace()
	ws.users = map[string]workspace.User{"u-1": {Name: "Ada", Email: "ada@example.com"}}
	ws.datasets["db-contacts"] = &workspace.Dataset{
		Name: "Contacts",
		Columns: []workspace.Column{
			col("id", "id"),
			col("parent", "parent_id"),
			col("Name", "name"),
			col("Account", "account"),
			col("Owner", "owner"),
			col("Notes", "notes"),
			col("last_edited_time", "last_edited_time"),
		},
		Records: []workspace.Record{
			rec("c-1", "Jane", t2, map[string]any{
				"parent":  "db-contacts",
				"Name":    "Jane",
				"Account": []string{"acct-1"},
				"Owner":   []string{"u-1"},
				"Notes":   "dropped",
			}),
		},
	}
	ws.datasets["db-accounts"] = &workspace.Dataset{
		Name:    "Accounts",
		Columns: []workspace.Column{col("Name", "name"), col("last_edited_time", "last_edited_time")},
		Records: []workspace.Record{rec("acct-1", "Acme", t2, map[string]any{"Name": "Acme"})},
	}
	ws.datasets["db-people"] = &workspace.Dataset{Name: "People"}

	cfg := Config{
		TablePrefix:     "CRM_",
		PageSize:        2,
		InsertBatchSize: 1000,
		MaxAttempts:     2,
		Workers:         1,
		PeopleTable:     "CRM_PEOPLE",
		AuditTable:      "CRM_KV_DATA",
		// Contacts are read before the accounts they reference.
		Bindings: []Binding{
			{Table: "CRM_CONTACTS", ContainerID: "db-contacts"},
			{Table: "CRM_ACCOUNTS", ContainerID: "db-accounts"},
			{Table: "CRM_PEOPLE", ContainerID: "db-people"},
		},
	}
	return store, ws, cfg
}

func tableReport(t *testing.T, r *RunReport, table string) TableReport {
	t.Helper()
	for _, tr := range r.Tables {
		if tr.Table == table {
			return tr
		}
	}
	t.Fatalf("no report for %s", table)
	return TableReport{}
}

func TestRun_FirstRunResolvesAcrossTables(t *testing.T) {
	store, ws, cfg := crmFixture()

	report, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.NotEmpty(t, report.RunID)

	contact := store.row("CRM_CONTACTS", "c-1")
	require.NotNil(t, contact)
	assert.Equal(t, "c-1", contact["id"])
	assert.Equal(t, "Jane", contact["name"])
	assert.Equal(t, "Acme", contact["account"])
	assert.Equal(t, "Ada", contact["owner"])
	assert.Equal(t, t2, contact["last_edited_time"])
	assert.NotContains(t, contact, "notes")
	assert.NotContains(t, contact, "parent_id")

	person := store.row("CRM_PEOPLE", "u-1")
	require.NotNil(t, person)
	assert.Equal(t, "Ada", person["name"])
	assert.Equal(t, "ada@example.com", person["email"])

	audit := store.row("CRM_KV_DATA", "c-1:Account")
	require.NotNil(t, audit)
	assert.Equal(t, "acct-1", audit["cell_value"])

	// Every table was empty, so nothing was deleted.
	assert.Empty(t, store.deletes)
	assert.Equal(t, 1, store.inserts["CRM_CONTACTS"])
	assert.Equal(t, 1, store.inserts["CRM_ACCOUNTS"])
	assert.Equal(t, 1, store.inserts["CRM_PEOPLE"])

	assert.Equal(t, StatusWritten, tableReport(t, report, "CRM_CONTACTS").Status)
	assert.Equal(t, KindAudit, report.Tables[len(report.Tables)-1].Kind)
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	store, ws, cfg := crmFixture()
	engine := NewEngine(store, ws, cfg, zap.NewNop())

	_, err := engine.Run(context.Background(), Options{})
	require.NoError(t, err)
	store.resetCalls()

	report, err := engine.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Empty(t, store.deletes)
	assert.Empty(t, store.inserts)
	for _, tr := range report.Tables {
		assert.Equal(t, StatusUnchanged, tr.Status, tr.Table)
		assert.Zero(t, tr.Inserted, tr.Table)
	}
	assert.Equal(t, 1, tableReport(t, report, "CRM_CONTACTS").Unchanged)
}

func TestRun_SupersedesNewerRecords(t *testing.T) {
	store, ws, cfg := crmFixture()
	engine := NewEngine(store, ws, cfg, zap.NewNop())

	_, err := engine.Run(context.Background(), Options{})
	require.NoError(t, err)
	store.resetCalls()

	contacts := ws.datasets["db-contacts"]
	contacts.Records[0] = rec("c-1", "Jane", t3, map[string]any{"Name": "Jane Doe", "Account": []string{"acct-1"}})

	report, err := engine.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, store.deletes, 2)
	assert.Equal(t, deleteCall{table: "CRM_CONTACTS", ids: []string{"c-1"}}, store.deletes[0])
	assert.Equal(t, "CRM_KV_DATA", store.deletes[1].table)

	contact := store.row("CRM_CONTACTS", "c-1")
	assert.Equal(t, "Jane Doe", contact["name"])
	assert.Equal(t, "Acme", contact["account"])
	assert.Nil(t, contact["owner"])
	assert.Equal(t, 1, tableReport(t, report, "CRM_CONTACTS").Superseded)
}

func TestRun_StoreNewerIsReportedNotWritten(t *testing.T) {
	store, ws, cfg := crmFixture()
	store.rows["CRM_CONTACTS"] = []tabular.Row{{"id": "c-1", "name": "Edited in store", "last_edited_time": t3}}

	report, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	tr := tableReport(t, report, "CRM_CONTACTS")
	assert.Equal(t, 1, tr.ReverseSyncPending)
	assert.Equal(t, StatusUnchanged, tr.Status)
	assert.Equal(t, "Edited in store", store.row("CRM_CONTACTS", "c-1")["name"])
}

func TestRun_DegradedReadKeepsUnreadRows(t *testing.T) {
	store, ws, cfg := crmFixture()
	store.rows["CRM_ACCOUNTS"] = []tabular.Row{
		{"id": "acct-0", "name": "Zero", "last_edited_time": t1},
		{"id": "acct-05", "name": "Half", "last_edited_time": t1},
		{"id": "acct-1", "name": "Edited in store", "last_edited_time": t3},
	}
	// The second page of accounts never comes back.
	store.pageErr["CRM_ACCOUNTS"] = 2
	ws.datasets["db-accounts"].Records = []workspace.Record{
		rec("acct-00", "Initech", t2, map[string]any{"Name": "Initech"}),
		rec("acct-1", "Acme", t2, map[string]any{"Name": "Acme"}),
	}
	core, logs := observer.New(zapcore.WarnLevel)

	report, err := NewEngine(store, ws, cfg, zap.New(core)).Run(context.Background(), Options{})
	require.NoError(t, err)

	tr := tableReport(t, report, "CRM_ACCOUNTS")
	assert.True(t, tr.Degraded)
	assert.Equal(t, 2, tr.StoredRows)
	assert.Equal(t, 1, tr.New)
	assert.Equal(t, 1, tr.Unverified)
	assert.Equal(t, 1, tr.Inserted)

	account := store.row("CRM_ACCOUNTS", "acct-1")
	require.NotNil(t, account)
	assert.Equal(t, "Edited in store", account["name"])
	assert.Equal(t, t3, account["last_edited_time"])
	for _, call := range store.deletes {
		assert.NotContains(t, call.ids, "acct-1", call.table)
	}
	assert.NotNil(t, store.row("CRM_ACCOUNTS", "acct-00"))

	assert.Equal(t, StatusWritten, tableReport(t, report, "CRM_CONTACTS").Status)
	assert.Equal(t, 1, logs.FilterMessageSnippet("read is degraded").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("was not read").Len())
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	store, ws, cfg := crmFixture()
	cfg.PreWork = []Statement{{Name: "01", SQL: "DELETE FROM STAGING"}}

	report, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Empty(t, store.inserts)
	assert.Empty(t, store.deletes)
	assert.Empty(t, store.statements)
	require.Len(t, report.PreWork, 1)
	assert.False(t, report.PreWork[0].Executed)

	tr := tableReport(t, report, "CRM_CONTACTS")
	assert.Equal(t, StatusPlanned, tr.Status)
	assert.Equal(t, 1, tr.Inserted)
}

func TestRun_StatementsRunInOrderAndContinueOnError(t *testing.T) {
	store, ws, cfg := crmFixture()
	cfg.PreWork = []Statement{
		{Name: "01", SQL: "FAIL ME"},
		{Name: "02", SQL: "DELETE FROM STAGING"},
	}
	cfg.PostWork = []Statement{{Name: "01", SQL: "CALL REFRESH()"}}

	report, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"FAIL ME", "DELETE FROM STAGING", "CALL REFRESH()"}, store.statements)
	assert.NotEmpty(t, report.PreWork[0].Error)
	assert.False(t, report.PreWork[0].Executed)
	assert.True(t, report.PreWork[1].Executed)
	assert.True(t, report.PostWork[0].Executed)
	assert.False(t, report.Failed())
}

func TestRun_ConnectivityErrors(t *testing.T) {
	t.Run("authentication", func(t *testing.T) {
		store, ws, cfg := crmFixture()
		store.authErr = errors.New("bad biscuit")

		_, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})

		var cerr *ConnectivityError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "authenticate", cerr.Op)
		assert.Empty(t, store.inserts)
	})

	t.Run("no tables", func(t *testing.T) {
		_, ws, cfg := crmFixture()

		_, err := NewEngine(newMemStore(), ws, cfg, zap.NewNop()).Run(context.Background(), Options{})

		var cerr *ConnectivityError
		require.ErrorAs(t, err, &cerr)
	})
}

func TestRun_MissingTableIsSkipped(t *testing.T) {
	store, ws, cfg := crmFixture()
	cfg.Bindings = append(cfg.Bindings, Binding{Table: "CRM_DEALS", ContainerID: "db-deals"})

	report, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, tableReport(t, report, "CRM_DEALS").Status)
	assert.Zero(t, ws.calls["db-deals"])
	assert.False(t, report.Failed())
}

func TestRun_WorkspaceFailureAbortsOnlyThatTable(t *testing.T) {
	store, ws, cfg := crmFixture()
	ws.errs["db-accounts"] = errors.New("rate limited")

	report, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.True(t, report.Failed())
	assert.Equal(t, StatusFailed, tableReport(t, report, "CRM_ACCOUNTS").Status)
	assert.Equal(t, StatusWritten, tableReport(t, report, "CRM_CONTACTS").Status)
	// The account was never registered, so its id stays as is.
	assert.Equal(t, "acct-1", store.row("CRM_CONTACTS", "c-1")["account"])
}

func TestRun_WorkspaceFailureCanAbortRun(t *testing.T) {
	store, ws, cfg := crmFixture()
	cfg.AbortOnWorkspaceError = true
	ws.errs["db-accounts"] = errors.New("rate limited")

	_, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})

	var werr *WorkspaceFetchError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "CRM_ACCOUNTS", werr.Table)
	assert.Empty(t, store.inserts)
}

func TestRun_UsersFailureIsNotFatal(t *testing.T) {
	store, ws, cfg := crmFixture()
	ws.usersErr = errors.New("forbidden")

	report, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.False(t, report.Failed())
	assert.Equal(t, "u-1", store.row("CRM_CONTACTS", "c-1")["owner"])
	assert.Nil(t, store.row("CRM_PEOPLE", "u-1"))
}

func TestRun_WriteFailureIsIsolated(t *testing.T) {
	store, ws, cfg := crmFixture()
	store.insertErr["CRM_ACCOUNTS"] = errors.New("quota exceeded")

	report, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.True(t, report.Failed())
	tr := tableReport(t, report, "CRM_ACCOUNTS")
	assert.Equal(t, StatusFailed, tr.Status)
	assert.Contains(t, tr.Error, "quota exceeded")
	assert.Equal(t, StatusWritten, tableReport(t, report, "CRM_CONTACTS").Status)
	assert.Equal(t, "Acme", store.row("CRM_CONTACTS", "c-1")["account"])
}

func TestRun_ParallelReadsMatchSequential(t *testing.T) {
	seqStore, seqWS, cfg := crmFixture()
	_, err := NewEngine(seqStore, seqWS, cfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	parStore, parWS, parCfg := crmFixture()
	parCfg.Workers = 4
	report, err := NewEngine(parStore, parWS, parCfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, seqStore.rows, parStore.rows)
	assert.Equal(t, "CRM_CONTACTS", report.Tables[0].Table)
}

func TestRun_PaginatesStoreReads(t *testing.T) {
	store, ws, cfg := crmFixture()
	store.rows["CRM_ACCOUNTS"] = []tabular.Row{
		{"id": "acct-0", "name": "Zero", "last_edited_time": t1},
		{"id": "acct-1", "name": "Acme", "last_edited_time": t1},
		{"id": "acct-2", "name": "Two", "last_edited_time": t1},
	}

	report, err := NewEngine(store, ws, cfg, zap.NewNop()).Run(context.Background(), Options{})
	require.NoError(t, err)

	tr := tableReport(t, report, "CRM_ACCOUNTS")
	assert.Equal(t, 3, tr.StoredRows)
	assert.Equal(t, 1, tr.Superseded)
	assert.Contains(t, store.deletes, deleteCall{table: "CRM_ACCOUNTS", ids: []string{"acct-1"}})
}

func TestPlan_VariantsByTableIdentity(t *testing.T) {
	_, _, cfg := crmFixture()
	engine := NewEngine(newMemStore(), newMemWorkspace(), cfg, zap.NewNop())

	tables, skipped := engine.Plan([]tabular.TableInfo{
		{Table: "CRM_CONTACTS"}, {Table: "crm_people"}, {Table: "CRM_KV_DATA"},
	})

	kinds := make([]string, 0, len(tables))
	for _, tbl := range tables {
		kinds = append(kinds, tbl.Name()+"="+tbl.Kind())
	}
	assert.Equal(t, []string{"CRM_CONTACTS=native", "CRM_PEOPLE=people", "CRM_KV_DATA=audit"}, kinds)
	require.Len(t, skipped, 1)
	assert.Equal(t, "CRM_ACCOUNTS", skipped[0].Table)
}
