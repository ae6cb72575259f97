package reconcile

import (
	"workspace-sync/core/workspace"
)

// Flatten emits one audit cell per non-identity field of record that holds a value.
// Multi-valued fields count their items; scalars count one.
func Flatten(container string, record workspace.Record, columns []workspace.Column) []workspace.Cell {
	cells := make([]workspace.Cell, 0, len(columns))
	for _, col := range columns {
		if col.SourceName == "id" {
			continue
		}
		v, ok := record.Fields[col.SourceName]
		if !ok || isEmpty(v) {
			continue
		}

		count := 1
		if items, ok := v.([]string); ok {
			count = len(items)
		}

		cells = append(cells, workspace.Cell{
			Container: container,
			Column:    col.SourceName,
			Type:      col.SourceType,
			RowID:     record.ID,
			Value:     workspace.CellValue(v),
			Count:     count,
		})
	}
	return cells
}
