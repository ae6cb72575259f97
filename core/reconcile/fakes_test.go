package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"workspace-sync/core/tabular"
	"workspace-sync/core/workspace"

	"github.com/spf13/cast"
)

type deleteCall struct {
	table string
	ids   []string
}

// memStore is an in-memory tabular.Client recording every write.
type memStore struct {
	mu         sync.Mutex
	columns    map[string][]string
	rows       map[string][]tabular.Row
	deletes    []deleteCall
	inserts    map[string]int
	statements []string
	authErr    error
	insertErr  map[string]error
	// pageErr fails SelectPage on a table from the given offset on.
	pageErr map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		columns:   make(map[string][]string),
		rows:      make(map[string][]tabular.Row),
		inserts:   make(map[string]int),
		insertErr: make(map[string]error),
		pageErr:   make(map[string]int),
	}
}

func (s *memStore) addTable(name string, columns ...string) {
	s.columns[name] = columns
	s.rows[name] = nil
}

func (s *memStore) Authenticate(context.Context) (string, error) {
	if s.authErr != nil {
		return "", s.authErr
	}
	return "token", nil
}

func (s *memStore) ListTables(_ context.Context, pattern string) ([]tabular.TableInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tabular.TableInfo
	for name := range s.columns {
		if tabular.MatchLike(pattern, name) {
			out = append(out, tabular.TableInfo{Schema: "SXT", Table: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out, nil
}

func (s *memStore) ListColumns(_ context.Context, table string) ([]tabular.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cols, ok := s.columns[table]
	if !ok {
		return nil, fmt.Errorf("no table %s", table)
	}
	out := make([]tabular.Column, 0, len(cols))
	for _, c := range cols {
		out = append(out, tabular.Column{Name: c, Type: "VARCHAR"})
	}
	return out, nil
}

func (s *memStore) SelectPage(_ context.Context, table, orderBy string, limit, offset int) ([]tabular.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if from, ok := s.pageErr[table]; ok && offset >= from {
		return nil, fmt.Errorf("page at offset %d timed out", offset)
	}
	rows := make([]tabular.Row, 0, len(s.rows[table]))
	for _, r := range s.rows[table] {
		// Stored column names come back upper-cased.
		up := make(tabular.Row, len(r))
		for k, v := range r {
			up[strings.ToUpper(k)] = v
		}
		rows = append(rows, up)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Get(orderBy)
		b, _ := rows[j].Get(orderBy)
		return cast.ToString(a) < cast.ToString(b)
	})
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (s *memStore) DeleteWhereIDIn(_ context.Context, table string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, deleteCall{table: table, ids: append([]string(nil), ids...)})
	if len(ids) == 0 {
		return tabular.ErrEmptyIDList
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.rows[table][:0]
	for _, r := range s.rows[table] {
		if _, ok := drop[cast.ToString(r["id"])]; !ok {
			kept = append(kept, r)
		}
	}
	s.rows[table] = kept
	return nil
}

func (s *memStore) InsertBatch(_ context.Context, table string, rows []tabular.Row, batchSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertErr[table]; err != nil {
		return err
	}
	for _, r := range rows {
		s.rows[table] = append(s.rows[table], r.Clone())
	}
	s.inserts[table] += len(rows)
	return nil
}

func (s *memStore) ExecuteStatement(_ context.Context, sql string, _ []string) (tabular.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements = append(s.statements, sql)
	if strings.Contains(sql, "FAIL") {
		return tabular.Result{}, errors.New("syntax error")
	}
	return tabular.Result{RowsAffected: 1}, nil
}

func (s *memStore) row(table, id string) tabular.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows[table] {
		if cast.ToString(r["id"]) == id {
			return r
		}
	}
	return nil
}

func (s *memStore) resetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = nil
	s.inserts = make(map[string]int)
	s.statements = nil
}

// memWorkspace is an in-memory workspace.Client.
type memWorkspace struct {
	mu       sync.Mutex
	datasets map[string]*workspace.Dataset
	users    map[string]workspace.User
	errs     map[string]error
	usersErr error
	calls    map[string]int
}

func newMemWorkspace() *memWorkspace {
	return &memWorkspace{
		datasets: make(map[string]*workspace.Dataset),
		users:    make(map[string]workspace.User),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (w *memWorkspace) GetDataset(_ context.Context, containerID string, _ int) (*workspace.Dataset, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[containerID]++
	if err := w.errs[containerID]; err != nil {
		return nil, err
	}
	ds, ok := w.datasets[containerID]
	if !ok {
		return nil, fmt.Errorf("container %s not found", containerID)
	}
	return ds, nil
}

func (w *memWorkspace) GetUsers(context.Context) (map[string]workspace.User, error) {
	if w.usersErr != nil {
		return nil, w.usersErr
	}
	return w.users, nil
}

func col(source, dest string) workspace.Column {
	return workspace.Column{SourceName: source, DestName: dest, SourceType: "rich_text", DestType: "VARCHAR"}
}

func rec(id, title, ts string, fields map[string]any) workspace.Record {
	all := map[string]any{"id": id, "last_edited_time": ts}
	for k, v := range fields {
		all[k] = v
	}
	return workspace.Record{ID: id, Title: title, LastEditedTime: ts, Fields: all}
}

var (
	_ tabular.Client   = (*memStore)(nil)
	_ workspace.Client = (*memWorkspace)(nil)
)
