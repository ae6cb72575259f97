package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// NotionClient implements Client over the Notion REST API.
type NotionClient struct {
	http *retryablehttp.Client
	cfg  Config
}

// NewNotionClient creates a client from configuration.
func NewNotionClient(cfg Config, logger *zap.Logger) *NotionClient {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = 100
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient.Timeout = time.Duration(timeout) * time.Second
	client.Logger = leveledLogger{logger.Sugar()}

	return &NotionClient{http: client, cfg: cfg}
}

// GetDataset fetches a database's schema and all of its pages.
func (c *NotionClient) GetDataset(ctx context.Context, containerID string, rowLimit int) (*Dataset, error) {
	var db notionDatabase
	if err := c.do(ctx, http.MethodGet, "/databases/"+url.PathEscape(containerID), nil, &db); err != nil {
		return nil, fmt.Errorf("failed to get database %s: %w", containerID, err)
	}

	columns := buildColumns(db.Properties)
	ds := &Dataset{
		Name:    plainText(db.Title),
		Columns: columns,
	}

	cursor := ""
	for {
		body := map[string]any{"page_size": c.cfg.PageSize}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var page notionQueryResponse
		if err := c.do(ctx, http.MethodPost, "/databases/"+url.PathEscape(containerID)+"/query", body, &page); err != nil {
			return nil, fmt.Errorf("failed to query database %s: %w", containerID, err)
		}

		for _, p := range page.Results {
			record, cells := flattenPage(ds.Name, p, columns)
			ds.Records = append(ds.Records, record)
			ds.Cells = append(ds.Cells, cells...)
			if rowLimit > 0 && len(ds.Records) >= rowLimit {
				return ds, nil
			}
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return ds, nil
}

// GetUsers returns every person (bots excluded) in the workspace.
func (c *NotionClient) GetUsers(ctx context.Context) (map[string]User, error) {
	users := make(map[string]User)

	cursor := ""
	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(c.cfg.PageSize))
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}

		var page notionUsersResponse
		if err := c.do(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		for _, u := range page.Results {
			if u.Type != "person" {
				continue
			}
			user := User{Name: u.Name}
			if u.Person != nil {
				user.Email = u.Person.Email
			}
			users[u.ID] = user
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return users, nil
}

func (c *NotionClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = b
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.ApiKey)
	req.Header.Set("Notion-Version", c.cfg.Version)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr notionError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("notion api %d %s: %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("notion api returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// structural fields every page carries, in column order
var structuralColumns = []Column{
	{SourceName: "id", DestName: "id", SourceType: "id", DestType: "VARCHAR"},
	{SourceName: "object", DestName: "object", SourceType: "object", DestType: "VARCHAR"},
	{SourceName: "parent", DestName: "parent_id", SourceType: "parent", DestType: "VARCHAR"},
	{SourceName: "created_time", DestName: "created_time", SourceType: "created_time", DestType: "TIMESTAMP"},
	{SourceName: "last_edited_time", DestName: "last_edited_time", SourceType: "last_edited_time", DestType: "TIMESTAMP"},
	{SourceName: "url", DestName: "url", SourceType: "url", DestType: "VARCHAR"},
}

func buildColumns(props map[string]notionPropertySchema) []Column {
	columns := make([]Column, 0, len(structuralColumns)+len(props))
	columns = append(columns, structuralColumns...)

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		columns = append(columns, Column{
			SourceName: name,
			DestName:   DestinationName(name),
			SourceType: props[name].Type,
			DestType:   destinationType(props[name].Type),
		})
	}

	for i := range columns {
		columns[i].Ordinal = i
	}
	return columns
}

// DestinationName converts a source field name into a store column name:
// lower-cased, with every run of non-alphanumeric characters collapsed to '_'.
func DestinationName(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func destinationType(sourceType string) string {
	switch sourceType {
	case "number":
		return "DECIMAL"
	case "checkbox":
		return "BOOLEAN"
	case "date", "created_time", "last_edited_time":
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

func flattenPage(container string, p notionPage, columns []Column) (Record, []Cell) {
	record := Record{
		ID:             p.ID,
		LastEditedTime: p.LastEditedTime,
		Fields: map[string]any{
			"id":               p.ID,
			"object":           p.Object,
			"parent":           p.Parent.id(),
			"created_time":     p.CreatedTime,
			"last_edited_time": p.LastEditedTime,
			"url":              p.URL,
		},
	}
	counts := make(map[string]int)

	for name, prop := range p.Properties {
		value, count := prop.value()
		record.Fields[name] = value
		counts[name] = count
		if prop.Type == "title" {
			record.Title = plainText(prop.Title)
		}
	}

	var cells []Cell
	for _, col := range columns {
		if col.SourceName == "id" {
			continue
		}
		value, ok := record.Fields[col.SourceName]
		if !ok || value == nil || value == "" {
			continue
		}
		count, ok := counts[col.SourceName]
		if !ok {
			count = 1
		}
		cells = append(cells, Cell{
			Container: container,
			Column:    col.SourceName,
			Type:      col.SourceType,
			RowID:     p.ID,
			Value:     CellValue(value),
			Count:     count,
		})
	}

	return record, cells
}
