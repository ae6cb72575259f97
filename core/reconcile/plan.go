package reconcile

import (
	"context"

	"workspace-sync/core/retry"
	"workspace-sync/core/tabular"

	"github.com/samber/lo"
)

// ApplyOptions controls how a change set is written.
type ApplyOptions struct {
	// BatchSize bounds the rows per insert and the ids per delete.
	BatchSize int
	// Policy retries each delete and insert chunk.
	Policy retry.Policy
	// DryRun counts the writes without issuing them.
	DryRun bool
}

// WriteResult counts the rows a write touched (or would touch on a dry run).
type WriteResult struct {
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
}

// ApplyChangeSet writes a change set: a delete of the pending ids when the
// table held rows at read time, then the inserts in batches. An empty change
// set issues nothing.
func ApplyChangeSet(ctx context.Context, client tabular.Client, cs *ChangeSet, opts ApplyOptions) (WriteResult, error) {
	var res WriteResult
	if cs == nil || len(cs.Rows) == 0 {
		return res, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	ids := lo.Uniq(cs.IDs())
	deleting := cs.HasExistingData && len(ids) > 0

	if opts.DryRun {
		if deleting {
			res.Deleted = len(ids)
		}
		res.Inserted = len(cs.Rows)
		return res, nil
	}

	if deleting {
		for _, chunk := range lo.Chunk(ids, batchSize) {
			err := retry.Run(ctx, opts.Policy, func(ctx context.Context) error {
				return client.DeleteWhereIDIn(ctx, cs.Table, chunk)
			})
			if err != nil {
				return res, &WriteError{Table: cs.Table, Op: "delete", Err: err}
			}
			res.Deleted += len(chunk)
		}
	}

	// Each chunk is one statement, so a failed attempt leaves nothing behind.
	for _, chunk := range lo.Chunk(cs.Rows, batchSize) {
		err := retry.Run(ctx, opts.Policy, func(ctx context.Context) error {
			return client.InsertBatch(ctx, cs.Table, chunk, batchSize)
		})
		if err != nil {
			return res, &WriteError{Table: cs.Table, Op: "insert", Err: err}
		}
		res.Inserted += len(chunk)
	}

	return res, nil
}
