package checks

import (
	"context"
	"fmt"
	"strings"

	"workspace-sync/core/reconcile"
	"workspace-sync/core/tabular"
)

// SchemaReport strictly types the result of a schema check.
type SchemaReport struct {
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	Kind           string   `json:"kind"`
	MissingColumns []string `json:"missing_columns"`
	TypeMismatches []string `json:"type_mismatches"`
	Status         string   `json:"status"` // "ok", "error"
}

// ExpectedColumn is a column a table kind cannot sync without. Types lists
// accepted fragments of the store type; empty accepts any type.
type ExpectedColumn struct {
	Name  string
	Types []string
}

// ExpectedColumns returns the columns required for a table kind.
func ExpectedColumns(kind string) []ExpectedColumn {
	id := ExpectedColumn{Name: "id", Types: []string{"char", "text", "string"}}
	if kind == reconcile.KindAudit {
		return []ExpectedColumn{
			id,
			{Name: "container_name"},
			{Name: "column_name"},
			{Name: "column_type"},
			{Name: "row_id"},
			{Name: "cell_value"},
			{Name: "cell_count", Types: []string{"int", "decimal", "numeric", "number"}},
		}
	}
	return []ExpectedColumn{
		id,
		{Name: "last_edited_time", Types: []string{"time", "date", "char", "text"}},
	}
}

// CheckSchema verifies that every table has the columns its kind requires.
func CheckSchema(ctx context.Context, store tabular.Client, tables []reconcile.Table) (*SchemaReport, error) {
	if store == nil {
		return nil, fmt.Errorf("store client is nil")
	}

	report := &SchemaReport{
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}

	for _, t := range tables {
		columns, err := store.ListColumns(ctx, t.Name())
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", t.Name(), err))
			report.Matched = false
			continue
		}

		actual := make(map[string]string, len(columns))
		for _, col := range columns {
			actual[strings.ToLower(col.Name)] = strings.ToLower(col.Type)
		}

		tbl := TableReport{
			Kind:           t.Kind(),
			MissingColumns: []string{},
			TypeMismatches: []string{},
			Status:         "ok",
		}
		for _, exp := range ExpectedColumns(t.Kind()) {
			actType, ok := actual[exp.Name]
			if !ok {
				tbl.MissingColumns = append(tbl.MissingColumns, exp.Name)
				continue
			}
			// Soft check: the store may report no type at all.
			if actType != "" && len(exp.Types) > 0 && !containsAny(actType, exp.Types) {
				tbl.TypeMismatches = append(tbl.TypeMismatches,
					fmt.Sprintf("%s: expected one of %v, got %s", exp.Name, exp.Types, actType))
			}
		}

		if len(tbl.MissingColumns) > 0 || len(tbl.TypeMismatches) > 0 {
			tbl.Status = "error"
			report.Matched = false
		}
		report.Tables[t.Name()] = tbl
	}

	return report, nil
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
