// Command debug_record shows how a single record would be reconciled.
//
// Usage: debug_record <TABLE> <record id>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"workspace-sync/core/config"
	"workspace-sync/core/database"
	"workspace-sync/core/reconcile"
	"workspace-sync/core/tabular"
	"workspace-sync/core/workspace"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) != 3 {
		log.Fatal("usage: debug_record <TABLE> <record id>")
	}
	table, id := strings.ToUpper(os.Args[1]), os.Args[2]

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	containerID := ""
	for _, b := range cfg.Sync.Bindings {
		if strings.EqualFold(b.Table, table) {
			containerID = b.ContainerID
		}
	}
	if containerID == "" {
		log.Fatalf("no workspace database bound to %s", table)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	store := tabular.NewSQLStore(db, cfg.Database.Schema, cfg.Database.Biscuits)
	ws := workspace.NewNotionClient(cfg.Workspace, zap.NewNop())
	ctx := context.Background()

	// Step 1: the stored rows
	fmt.Println("=== STEP 1: Store ===")
	read, err := reconcile.NewReader(store, cfg.Sync.PageSize, cfg.Sync.Policy()).Fetch(ctx, table)
	if err != nil {
		log.Fatal(err)
	}
	existing := read.Index()
	fmt.Printf("Total stored rows: %d (degraded=%v)\n", len(read.Rows), read.Degraded)
	if rows, ok := existing[id]; ok {
		for _, r := range rows {
			fmt.Printf("FOUND in store: last_edited_time=%v\n", r.LastEditedTime)
		}
	} else {
		fmt.Println("NOT FOUND in store")
	}

	// Step 2: the workspace record
	fmt.Println("\n=== STEP 2: Workspace ===")
	ds, err := ws.GetDataset(ctx, containerID, cfg.Sync.RowLimit)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Total workspace records: %d\n", len(ds.Records))

	var record *workspace.Record
	for i := range ds.Records {
		if ds.Records[i].ID == id {
			record = &ds.Records[i]
			break
		}
	}
	if record == nil {
		fmt.Println("NOT FOUND in workspace")
		return
	}
	fmt.Printf("FOUND in workspace: title=%q, last_edited_time=%s\n", record.Title, record.LastEditedTime)

	// Step 3: the decision and the row that would be written
	fmt.Println("\n=== STEP 3: Decision ===")
	d := reconcile.Decide(*record, existing)
	fmt.Printf("action=%s reason=%s\n", d.Action, d.Reason)

	columns, err := store.ListColumns(ctx, table)
	if err != nil {
		log.Fatal(err)
	}
	row := reconcile.Map(*record, ds.Columns, reconcile.ColumnSet(columns))
	out, err := json.MarshalIndent(row, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode mapped row: %v", err)
	}
	fmt.Println(string(out))
}
