// Package integrity provides pre-flight checks for a sync.
//
// Unlike the 'sync' package which moves data, this package validates that the
// surroundings of a run are in place before anything is written.
//
// # Checks Provided
//
//   - Schema: Every bound table exists in the store and has the columns its kind needs
//     (id and last_edited_time for record tables, the cell columns for the audit table).
//   - Workspace: Every bound workspace database answers and exposes a schema.
//   - Archive: The report bucket and prefix exist in object storage.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/workspace : Runs the workspace check.
//   - GET /integrity/archive : Runs the archive check (supports ?fix=true).
package integrity
