// Package reconcile brings the tabular store up to date with the workspace.
//
// A run reads every bound table, decides per workspace record whether the store
// needs it written, rewrites embedded identifiers into labels once every table
// has been read, and then writes each table as a delete of the changed ids
// followed by batched inserts.
//
// # Run Phases
//
//  1. Discover: authenticate and list the tables matching the binding prefix.
//     Failure, or no table at all, is a ConnectivityError and nothing is written.
//  2. Pre-work: configured statements, in name order. Failures are recorded.
//  3. Read and diff: per table, the store rows are paged in (Reader) and the
//     workspace container is fetched. Each record is mapped onto the table's
//     columns (Map) and decided (Decide). Tables may be read concurrently.
//  4. Resolve: the Accumulator holding every record's id/title pair (and the
//     workspace users) is sealed into a Ledger, which rewrites the pending rows.
//  5. Write: per table, a delete of the pending ids when the table held rows,
//     then inserts in batches. A failure only fails that table.
//  6. Post-work.
//
// # Decisions
//
// A record is inserted when the store has no row for it, or when its
// last-edited time is strictly newer than the stored one. It is skipped when
// the timestamps are equal, when either side has none, and when the store is
// newer. The last case is logged and counted as reverse_sync_pending.
//
// # Tables
//
// NativeTable is fed by one container. PeopleTable additionally receives the
// workspace users missing from its container. AuditTable stores the flattened
// cells of every record and is only written where a cell is new or changed.
//
// # Usage
//
//	engine := reconcile.NewEngine(store, notion, cfg.Sync, log)
//	report, err := engine.Run(ctx, reconcile.Options{DryRun: true})
//	if err != nil {
//	    return err
//	}
//	_, err = reconcile.ArchiveReport(ctx, objects, bucket, "reports", report)
package reconcile
