package workspace

// Record is a single page of a workspace container.
type Record struct {
	// ID is the opaque page id, unique within the workspace.
	ID string `json:"id"`
	// Title is the page's display title.
	Title string `json:"title"`
	// LastEditedTime is the raw last-modified timestamp.
	LastEditedTime string `json:"last_edited_time"`
	// Fields maps source field names to raw values: scalars, or []string for multi-valued fields.
	Fields map[string]any `json:"fields"`
}

// Column describes how a source field maps onto a store column.
type Column struct {
	SourceName string `json:"notion_name"`
	DestName   string `json:"db_name"`
	SourceType string `json:"notion_type"`
	DestType   string `json:"db_type"`
	Ordinal    int    `json:"ordinal"`
}

// Cell is a flattened audit fact for a single source cell.
type Cell struct {
	Container string `json:"container"`
	Column    string `json:"column"`
	Type      string `json:"type"`
	RowID     string `json:"row_id"`
	Value     string `json:"value"`
	Count     int    `json:"count"`
}

// Dataset is the full content of a workspace container.
type Dataset struct {
	Name    string   `json:"name"`
	Records []Record `json:"records"`
	Cells   []Cell   `json:"cells"`
	Columns []Column `json:"columns"`
}

// User is an internal workspace user.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
