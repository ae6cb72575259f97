package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // Pointer because NULL default is possible
	Extra   string
}

// ListTables returns the table names of schema, or of the connection's
// default schema when schema is empty.
func ListTables(ctx context.Context, db *gorm.DB, schema string) ([]string, error) {
	tx := db.WithContext(ctx)
	if schema == "" {
		return tx.Migrator().GetTables()
	}

	var names []string
	var err error
	if db.Dialector.Name() == "sqlite" {
		err = tx.Raw(fmt.Sprintf("SELECT name FROM %s.sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%%'", quoteSQLite(schema))).
			Scan(&names).Error
	} else {
		err = tx.Raw("SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE'", schema).
			Scan(&names).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of schema %s: %w", schema, err)
	}
	return names, nil
}

// GetTableColumns retrieves the column definitions for a given table, which
// may be qualified as schema.table. Field and Type are lower-cased.
func GetTableColumns(ctx context.Context, db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	tx := db.WithContext(ctx)

	if db.Dialector.Name() == "sqlite" {
		type SQLiteColumn struct {
			Cid        int
			Name       string
			Type       string
			Notnull    int
			DefaultVal *string `gorm:"column:dflt_value"`
			Pk         int
		}
		prefix, table := "", tableName
		if schema, name, ok := strings.Cut(tableName, "."); ok {
			prefix, table = quoteSQLite(schema)+".", name
		}
		query := fmt.Sprintf("PRAGMA %stable_info('%s')", prefix, strings.ReplaceAll(table, "'", "''"))
		var sqliteCols []SQLiteColumn
		if err := tx.Raw(query).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range sqliteCols {
			columns = append(columns, ColumnInfo{
				Field:   strings.ToLower(col.Name),
				Type:    strings.ToLower(col.Type),
				Default: col.DefaultVal,
			})
		}
		return columns, nil
	}

	if err := tx.Raw(fmt.Sprintf("SHOW COLUMNS FROM %s", quoteMySQL(tableName))).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// quoteMySQL quotes a possibly schema-qualified identifier.
func quoteMySQL(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
