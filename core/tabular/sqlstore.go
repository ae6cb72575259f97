package tabular

import (
	"context"
	"fmt"
	"sort"

	"workspace-sync/core/database"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// SQLStore implements Client on top of a GORM connection.
type SQLStore struct {
	db       *gorm.DB
	schema   string
	biscuits []string
}

// NewSQLStore creates a store bound to db. Table names are qualified with schema
// when it is non-empty. biscuits are presented on every call.
func NewSQLStore(db *gorm.DB, schema string, biscuits []string) *SQLStore {
	return &SQLStore{
		db:       db,
		schema:   schema,
		biscuits: lo.Compact(biscuits),
	}
}

// Authenticate pings the database and returns a fresh session token.
func (s *SQLStore) Authenticate(ctx context.Context) (string, error) {
	if err := s.requireBiscuit(); err != nil {
		return "", err
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return "", fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return "", fmt.Errorf("failed to ping store: %w", err)
	}

	return uuid.NewString(), nil
}

// ListTables returns the tables of the store's schema matching pattern,
// sorted by name.
func (s *SQLStore) ListTables(ctx context.Context, pattern string) ([]TableInfo, error) {
	if err := s.requireBiscuit(); err != nil {
		return nil, err
	}

	names, err := database.ListTables(ctx, s.db, s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Strings(names)

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		if pattern != "" && !MatchLike(pattern, name) {
			continue
		}
		tables = append(tables, TableInfo{Schema: s.schema, Table: name})
	}

	return tables, nil
}

// ListColumns returns the columns of table.
func (s *SQLStore) ListColumns(ctx context.Context, table string) ([]Column, error) {
	if err := s.requireBiscuit(); err != nil {
		return nil, err
	}

	infos, err := database.GetTableColumns(ctx, s.db, s.qualified(table))
	if err != nil {
		return nil, err
	}

	return lo.Map(infos, func(info database.ColumnInfo, _ int) Column {
		return Column{Name: info.Field, Type: info.Type}
	}), nil
}

// SelectPage returns one page of rows.
func (s *SQLStore) SelectPage(ctx context.Context, table, orderBy string, limit, offset int) ([]Row, error) {
	if err := s.requireBiscuit(); err != nil {
		return nil, err
	}

	var results []map[string]any
	err := s.db.WithContext(ctx).
		Table(s.qualified(table)).
		Order(orderBy).
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}

	rows := make([]Row, 0, len(results))
	for _, r := range results {
		row := make(Row, len(r))
		for k, v := range r {
			// Some drivers hand text back as bytes
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DeleteWhereIDIn deletes rows by id using a single IN clause.
func (s *SQLStore) DeleteWhereIDIn(ctx context.Context, table string, ids []string) error {
	if err := s.requireBiscuit(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return ErrEmptyIDList
	}

	result := s.db.WithContext(ctx).
		Table(s.qualified(table)).
		Where("id IN ?", ids).
		Delete(nil)
	if result.Error != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, result.Error)
	}

	return nil
}

// InsertBatch inserts rows in batches inside a transaction.
func (s *SQLStore) InsertBatch(ctx context.Context, table string, rows []Row, batchSize int) error {
	if err := s.requireBiscuit(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(rows)
	}

	values := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, map[string]any(row))
	}

	if err := s.db.WithContext(ctx).Table(s.qualified(table)).CreateInBatches(values, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	return nil
}

// ExecuteStatement runs arbitrary SQL.
func (s *SQLStore) ExecuteStatement(ctx context.Context, sql string, biscuits []string) (Result, error) {
	if err := s.requireBiscuit(biscuits...); err != nil {
		return Result{}, err
	}

	result := s.db.WithContext(ctx).Exec(sql)
	if result.Error != nil {
		return Result{}, fmt.Errorf("failed to execute statement: %w", result.Error)
	}

	return Result{RowsAffected: result.RowsAffected}, nil
}

func (s *SQLStore) requireBiscuit(extra ...string) error {
	if len(s.biscuits) == 0 && len(lo.Compact(extra)) == 0 {
		return ErrMissingBiscuit
	}
	return nil
}

func (s *SQLStore) qualified(table string) string {
	if s.schema == "" {
		return table
	}
	return s.schema + "." + table
}
