package reconcile

import (
	"context"
	"errors"
	"strings"

	"workspace-sync/core/retry"
	"workspace-sync/core/tabular"

	"github.com/spf13/cast"
)

// ReadResult is the content of a table as read from the store.
type ReadResult struct {
	// Rows are the stored rows in id order.
	Rows []TargetRow
	// Degraded is true when a page failed and Rows is incomplete.
	Degraded bool
	// LastID is the id of the last row read.
	LastID string
}

// HasExistingData reports whether the table held rows at read time.
// A degraded read counts as holding rows.
func (r *ReadResult) HasExistingData() bool {
	return len(r.Rows) > 0 || r.Degraded
}

// Covers reports whether the stored side of id is known. After a degraded
// read only ids up to LastID were reached, since pages are read in id order.
func (r *ReadResult) Covers(id string) bool {
	if !r.Degraded {
		return true
	}
	return r.LastID != "" && id <= r.LastID
}

// Index groups the rows by id.
func (r *ReadResult) Index() map[string][]TargetRow {
	idx := make(map[string][]TargetRow, len(r.Rows))
	for _, row := range r.Rows {
		idx[row.ID] = append(idx[row.ID], row)
	}
	return idx
}

// Reader pages through a store table.
type Reader struct {
	client   tabular.Client
	pageSize int
	policy   retry.Policy
}

// NewReader creates a reader issuing pages of pageSize rows.
func NewReader(client tabular.Client, pageSize int, policy retry.Policy) *Reader {
	if pageSize <= 0 {
		pageSize = 10000
	}
	return &Reader{client: client, pageSize: pageSize, policy: policy}
}

// Fetch reads every row of table ordered by id. The first page is always
// requested; reading stops after a short page. When a page exhausts its
// retries the rows read so far are returned along with a *PaginationError.
func (r *Reader) Fetch(ctx context.Context, table string) (*ReadResult, error) {
	result := &ReadResult{}

	offset := 0
	for {
		page, err := retry.Do(ctx, r.policy, func(ctx context.Context) ([]tabular.Row, error) {
			return r.client.SelectPage(ctx, table, "id", r.pageSize, offset)
		})
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return result, err
			}
			result.Degraded = true
			return result, &PaginationError{Table: table, Offset: offset, Err: err}
		}

		for _, row := range page {
			tr := toTargetRow(row)
			result.Rows = append(result.Rows, tr)
			result.LastID = tr.ID
		}

		if len(page) < r.pageSize {
			return result, nil
		}
		offset += len(page)
	}
}

func toTargetRow(row tabular.Row) TargetRow {
	cols := make(tabular.Row, len(row))
	for k, v := range row {
		if s, ok := v.(string); ok && s == "" {
			v = nil
		}
		cols[strings.ToLower(k)] = v
	}

	id, _ := cols.Get("id")
	ts, _ := cols.Get("last_edited_time")

	return TargetRow{
		ID:             cast.ToString(id),
		LastEditedTime: ts,
		Columns:        cols,
	}
}
