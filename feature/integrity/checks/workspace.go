package checks

import (
	"context"

	"workspace-sync/core/reconcile"
	"workspace-sync/core/retry"
	"workspace-sync/core/workspace"

	"github.com/sourcegraph/conc/pool"
)

// ContainerReport is the result of probing one bound workspace database.
type ContainerReport struct {
	Table       string `json:"table"`
	ContainerID string `json:"container_id"`
	Name        string `json:"name,omitempty"`
	Columns     int    `json:"columns"`
	Status      string `json:"status"` // "ok", "error"
	Error       string `json:"error,omitempty"`
}

// CheckWorkspace fetches the schema and at most one record of every bound
// container, workers at a time. Reports keep the order of bindings.
func CheckWorkspace(ctx context.Context, ws workspace.Client, bindings []reconcile.Binding, policy retry.Policy, workers int) []ContainerReport {
	if workers < 1 {
		workers = 1
	}

	reports := make([]ContainerReport, len(bindings))
	p := pool.New().WithMaxGoroutines(workers)
	for i, b := range bindings {
		p.Go(func() {
			reports[i] = checkContainer(ctx, ws, b, policy)
		})
	}
	p.Wait()

	return reports
}

func checkContainer(ctx context.Context, ws workspace.Client, b reconcile.Binding, policy retry.Policy) ContainerReport {
	r := ContainerReport{Table: b.Table, ContainerID: b.ContainerID, Status: "ok"}
	if b.ContainerID == "" {
		r.Status = "error"
		r.Error = "no container bound"
		return r
	}

	ds, err := retry.Do(ctx, policy, func(ctx context.Context) (*workspace.Dataset, error) {
		return ws.GetDataset(ctx, b.ContainerID, 1)
	})
	if err != nil {
		r.Status = "error"
		r.Error = err.Error()
		return r
	}

	r.Name = ds.Name
	r.Columns = len(ds.Columns)
	return r
}
