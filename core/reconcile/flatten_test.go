package reconcile

import (
	"testing"

	"workspace-sync/core/workspace"

	"github.com/stretchr/testify/assert"
)

func TestFlatten(t *testing.T) {
	columns := []workspace.Column{
		{SourceName: "id", SourceType: "id"},
		{SourceName: "Name", SourceType: "title"},
		{SourceName: "Tags", SourceType: "multi_select"},
		{SourceName: "Size", SourceType: "number"},
		{SourceName: "Empty", SourceType: "rich_text"},
		{SourceName: "Missing", SourceType: "rich_text"},
	}
	record := workspace.Record{ID: "r-1", Fields: map[string]any{
		"id":    "r-1",
		"Name":  "Ada",
		"Tags":  []string{"a", "b", "c"},
		"Size":  12.5,
		"Empty": "",
	}}

	cells := Flatten("Contacts", record, columns)

	assert.Equal(t, []workspace.Cell{
		{Container: "Contacts", Column: "Name", Type: "title", RowID: "r-1", Value: "Ada", Count: 1},
		{Container: "Contacts", Column: "Tags", Type: "multi_select", RowID: "r-1", Value: "a, b, c", Count: 3},
		{Container: "Contacts", Column: "Size", Type: "number", RowID: "r-1", Value: "12.5", Count: 1},
	}, cells)
}
