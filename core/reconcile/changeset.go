package reconcile

import (
	"time"

	"workspace-sync/core/workspace"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Decide compares a source record with its stored rows.
//
// A record without stored rows is inserted. A stored row without a timestamp,
// or a source record without a parseable one, is skipped. Otherwise the record
// is inserted only when the source is strictly newer. When several rows share
// the id the newest stored timestamp wins.
func Decide(record workspace.Record, existing map[string][]TargetRow) Decision {
	d := Decision{ID: record.ID, Action: ActionSkip}

	rows := existing[record.ID]
	if len(rows) == 0 {
		d.Action = ActionInsert
		d.Reason = ReasonNew
		return d
	}

	stored, ok := newestTimestamp(rows)
	if !ok {
		d.Reason = ReasonNoStoredTimestamp
		return d
	}

	source, ok := parseTime(record.LastEditedTime)
	if !ok {
		d.Reason = ReasonNoSourceTimestamp
		return d
	}

	switch {
	case source.Equal(stored):
		d.Reason = ReasonUnchanged
	case source.After(stored):
		d.Action = ActionInsert
		d.Reason = ReasonSupersede
	default:
		d.Reason = ReasonStoreNewer
	}
	return d
}

func newestTimestamp(rows []TargetRow) (time.Time, bool) {
	var newest time.Time
	found := false
	for _, row := range rows {
		t, ok := parseTime(row.LastEditedTime)
		if !ok {
			continue
		}
		if !found || t.After(newest) {
			newest = t
			found = true
		}
	}
	return newest, found
}

func parseTime(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	if s, ok := v.(string); ok && s == "" {
		return time.Time{}, false
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// Build maps every record and keeps the rows whose decision is insert.
// Records whose stored row is newer are logged and left untouched. After a
// degraded read, records without a stored row that sort past the last id
// read are skipped as unverified.
func Build(table string, records []workspace.Record, columns []workspace.Column, dest map[string]struct{}, read *ReadResult, log *zap.Logger) *ChangeSet {
	cs := &ChangeSet{
		Table:           table,
		HasExistingData: read.HasExistingData(),
		Resolvable:      true,
		Decisions:       make([]Decision, 0, len(records)),
	}

	existing := read.Index()
	for _, record := range records {
		d := Decide(record, existing)
		if d.Reason == ReasonNew && !read.Covers(record.ID) {
			d = Decision{ID: record.ID, Action: ActionSkip, Reason: ReasonUnverified}
		}
		cs.Decisions = append(cs.Decisions, d)

		switch {
		case d.Action == ActionInsert:
			cs.Rows = append(cs.Rows, Map(record, columns, dest))
		case d.Reason == ReasonStoreNewer:
			log.Warn("Store row is newer than workspace record, reverse sync pending",
				zap.String("table", table),
				zap.String("id", record.ID),
				zap.String("source_time", record.LastEditedTime))
		case d.Reason == ReasonUnverified:
			log.Warn("Stored row of workspace record was not read, skipping",
				zap.String("table", table),
				zap.String("id", record.ID),
				zap.String("last_read_id", read.LastID))
		}
	}

	return cs
}
