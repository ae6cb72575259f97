package reconcile

import (
	"strings"

	"workspace-sync/core/tabular"
	"workspace-sync/core/workspace"

	"github.com/samber/lo"
)

// reservedFields are structural source fields never mapped onto columns.
var reservedFields = map[string]struct{}{
	"parent": {},
	"id":     {},
	"object": {},
}

// ColumnSet returns the lower-cased names of the store columns.
func ColumnSet(columns []tabular.Column) map[string]struct{} {
	return lo.SliceToMap(columns, func(c tabular.Column) (string, struct{}) {
		return strings.ToLower(c.Name), struct{}{}
	})
}

// Map converts a source record into a candidate row. Every destination column a
// descriptor maps onto is present; those without a value carry nil. Reserved,
// absent and empty fields are dropped, as are columns the table does not have.
func Map(record workspace.Record, columns []workspace.Column, dest map[string]struct{}) tabular.Row {
	row := tabular.Row{"id": record.ID}

	for _, col := range columns {
		if _, reserved := reservedFields[col.SourceName]; reserved {
			continue
		}
		name := strings.ToLower(col.DestName)
		if _, ok := dest[name]; !ok || name == "id" {
			continue
		}
		if _, set := row[name]; !set {
			row[name] = nil
		}

		value, ok := record.Fields[col.SourceName]
		if !ok || isEmpty(value) {
			continue
		}
		row[name] = normalize(value)
	}

	return row
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

// normalize turns multi-valued fields into their stored string form.
func normalize(v any) any {
	if items, ok := v.([]string); ok {
		return strings.Join(items, ", ")
	}
	return v
}
