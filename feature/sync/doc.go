// Package sync exposes the reconciliation engine over HTTP.
//
// A run can be triggered on demand or on a schedule. Concurrent triggers for
// the same mode (live or dry-run) are collapsed into one run with
// singleflight, so two callers never write the same tables at once. The
// report of the latest run is kept in memory; when archiving is enabled every
// report is also uploaded to object storage and old ones are pruned.
//
// # Components
//
//   - Service: Triggers runs, keeps the last report, archives reports.
//   - Handler: Exposes the HTTP endpoints.
//   - Loader: Registers the feature with the application.
//
// # HTTP Endpoints
//
//   - POST /sync : Runs a sync (supports ?dry_run=true).
//   - GET /sync/report : Report of the most recent run.
//   - GET /sync/reports : Archived report keys, newest first (supports ?limit=N).
//   - GET /sync/reports/{key} : One archived report.
package sync
