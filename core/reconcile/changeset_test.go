package reconcile

import (
	"testing"
	"time"

	"workspace-sync/core/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		source string
		stored []TargetRow
		action Action
		reason Reason
	}{
		{
			name:   "no stored row",
			source: "2024-01-02T00:00:00Z",
			action: ActionInsert,
			reason: ReasonNew,
		},
		{
			name:   "source newer",
			source: "2024-01-02T00:00:00Z",
			stored: []TargetRow{{ID: "r", LastEditedTime: "2024-01-01T00:00:00Z"}},
			action: ActionInsert,
			reason: ReasonSupersede,
		},
		{
			name:   "equal",
			source: "2024-01-02T00:00:00Z",
			stored: []TargetRow{{ID: "r", LastEditedTime: "2024-01-02T00:00:00Z"}},
			action: ActionSkip,
			reason: ReasonUnchanged,
		},
		{
			name:   "equal instant in another form",
			source: "2024-01-02T00:00:00.000Z",
			stored: []TargetRow{{ID: "r", LastEditedTime: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}},
			action: ActionSkip,
			reason: ReasonUnchanged,
		},
		{
			name:   "equal instant with offset",
			source: "2024-01-02T02:00:00+02:00",
			stored: []TargetRow{{ID: "r", LastEditedTime: "2024-01-02T00:00:00Z"}},
			action: ActionSkip,
			reason: ReasonUnchanged,
		},
		{
			name:   "store newer",
			source: "2024-01-01T00:00:00Z",
			stored: []TargetRow{{ID: "r", LastEditedTime: "2024-01-02T00:00:00Z"}},
			action: ActionSkip,
			reason: ReasonStoreNewer,
		},
		{
			name:   "stored timestamp absent",
			source: "2024-01-02T00:00:00Z",
			stored: []TargetRow{{ID: "r"}},
			action: ActionSkip,
			reason: ReasonNoStoredTimestamp,
		},
		{
			name:   "source timestamp absent",
			source: "",
			stored: []TargetRow{{ID: "r", LastEditedTime: "2024-01-02T00:00:00Z"}},
			action: ActionSkip,
			reason: ReasonNoSourceTimestamp,
		},
		{
			name:   "duplicate stored rows use the newest",
			source: "2024-01-02T00:00:00Z",
			stored: []TargetRow{
				{ID: "r", LastEditedTime: "2024-01-01T00:00:00Z"},
				{ID: "r", LastEditedTime: "2024-01-02T00:00:00Z"},
			},
			action: ActionSkip,
			reason: ReasonUnchanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := map[string][]TargetRow{}
			if tt.stored != nil {
				existing["r"] = tt.stored
			}
			d := Decide(workspace.Record{ID: "r", LastEditedTime: tt.source}, existing)
			assert.Equal(t, "r", d.ID)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestBuild(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	columns := []workspace.Column{col("Name", "name"), col("last_edited_time", "last_edited_time")}
	dest := map[string]struct{}{"id": {}, "name": {}, "last_edited_time": {}}
	read := &ReadResult{Rows: []TargetRow{
		{ID: "same", LastEditedTime: "2024-01-02T00:00:00Z"},
		{ID: "old", LastEditedTime: "2024-01-01T00:00:00Z"},
		{ID: "ahead", LastEditedTime: "2024-03-01T00:00:00Z"},
	}}
	records := []workspace.Record{
		rec("same", "Same", "2024-01-02T00:00:00Z", map[string]any{"Name": "Same"}),
		rec("old", "Old", "2024-01-02T00:00:00Z", map[string]any{"Name": "Old"}),
		rec("ahead", "Ahead", "2024-01-02T00:00:00Z", map[string]any{"Name": "Ahead"}),
		rec("fresh", "Fresh", "2024-01-02T00:00:00Z", map[string]any{"Name": "Fresh"}),
	}

	cs := Build("CRM_CONTACTS", records, columns, dest, read, zap.New(core))

	assert.True(t, cs.HasExistingData)
	assert.True(t, cs.Resolvable)
	assert.Equal(t, []string{"old", "fresh"}, cs.IDs())
	assert.Equal(t, 1, cs.Count(ReasonUnchanged))
	assert.Equal(t, 1, cs.Count(ReasonSupersede))
	assert.Equal(t, 1, cs.Count(ReasonNew))
	assert.Equal(t, 1, cs.Count(ReasonStoreNewer))
	assert.Len(t, cs.Decisions, 4)

	warnings := logs.FilterMessageSnippet("reverse sync").All()
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, "ahead", warnings[0].ContextMap()["id"])
	}
}

func TestBuild_DegradedReadSkipsUnreadIDs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	columns := []workspace.Column{col("Name", "name")}
	dest := map[string]struct{}{"id": {}, "name": {}}
	read := &ReadResult{
		Rows:     []TargetRow{{ID: "b", LastEditedTime: "2024-01-01T00:00:00Z"}},
		Degraded: true,
		LastID:   "b",
	}
	records := []workspace.Record{
		rec("a", "A", "2024-01-02T00:00:00Z", nil),
		rec("b", "B", "2024-01-02T00:00:00Z", nil),
		rec("c", "C", "2024-01-02T00:00:00Z", nil),
	}

	cs := Build("T", records, columns, dest, read, zap.New(core))

	require.Len(t, cs.Rows, 2)
	assert.Equal(t, "a", cs.Rows[0]["id"])
	assert.Equal(t, "b", cs.Rows[1]["id"])
	assert.Equal(t, 1, cs.Count(ReasonNew))
	assert.Equal(t, 1, cs.Count(ReasonSupersede))
	assert.Equal(t, 1, cs.Count(ReasonUnverified))
	assert.Equal(t, Decision{ID: "c", Action: ActionSkip, Reason: ReasonUnverified}, cs.Decisions[2])

	warnings := logs.FilterMessageSnippet("was not read").All()
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, "c", warnings[0].ContextMap()["id"])
		assert.Equal(t, "b", warnings[0].ContextMap()["last_read_id"])
	}
}

func TestBuild_EmptyTable(t *testing.T) {
	columns := []workspace.Column{col("Name", "name")}
	dest := map[string]struct{}{"id": {}, "name": {}}

	cs := Build("T", []workspace.Record{rec("a", "A", "2024-01-01T00:00:00Z", nil)}, columns, dest, &ReadResult{}, zap.NewNop())

	assert.False(t, cs.HasExistingData)
	assert.Len(t, cs.Rows, 1)
}
