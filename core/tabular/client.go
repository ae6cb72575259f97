package tabular

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyIDList is returned by DeleteWhereIDIn when called without ids.
	ErrEmptyIDList = errors.New("delete requires at least one id")
	// ErrMissingBiscuit is returned when a call is made without any capability token.
	ErrMissingBiscuit = errors.New("no biscuit provided")
)

// Row is a single store row keyed by column name. A nil value is the absent marker.
type Row map[string]any

// Get looks a column up case-insensitively.
func (r Row) Get(column string) (any, bool) {
	if v, ok := r[column]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return nil, false
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// TableInfo describes a table found during discovery.
type TableInfo struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// Column describes a column of a store table.
type Column struct {
	Name string `json:"column"`
	Type string `json:"type"`
}

// Result is the outcome of an arbitrary statement.
type Result struct {
	RowsAffected int64 `json:"rows_affected"`
}

// Client defines the operations the engine performs against the table store.
type Client interface {
	// Authenticate opens a session and returns its token.
	Authenticate(ctx context.Context) (string, error)
	// ListTables returns the tables whose name matches a SQL LIKE pattern (e.g. "CRM_%").
	ListTables(ctx context.Context, pattern string) ([]TableInfo, error)
	// ListColumns returns the columns of a table with lower-cased names.
	ListColumns(ctx context.Context, table string) ([]Column, error)
	// SelectPage returns one page of rows ordered by orderBy.
	SelectPage(ctx context.Context, table, orderBy string, limit, offset int) ([]Row, error)
	// DeleteWhereIDIn deletes every row whose id is in ids. ids must not be empty.
	DeleteWhereIDIn(ctx context.Context, table string, ids []string) error
	// InsertBatch inserts rows, at most batchSize per statement.
	InsertBatch(ctx context.Context, table string, rows []Row, batchSize int) error
	// ExecuteStatement runs arbitrary SQL with the given extra biscuits.
	ExecuteStatement(ctx context.Context, sql string, biscuits []string) (Result, error)
}

// MatchLike reports whether name matches a SQL LIKE pattern, case-insensitively.
// '%' matches any run of characters and '_' matches exactly one.
func MatchLike(pattern, name string) bool {
	p := []rune(strings.ToUpper(pattern))
	s := []rune(strings.ToUpper(name))

	// Iterative wildcard match with single-star backtracking.
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == s[si]):
			pi++
			si++
		case pi < len(p) && p[pi] == '%':
			star = pi
			mark = si
			pi++
		case star != -1:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
