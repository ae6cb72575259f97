// Package tabular is the client for the append/delete oriented table store that
// the reconciliation engine writes into.
//
// The store does not support in-place updates: a row is superseded by deleting
// it by id and inserting a fresh copy. Every call requires a capability token
// ("biscuit"); the SQL implementation refuses to run without one.
//
// # Client Interface
//
// The Client interface is the narrow surface the engine needs:
//   - Authenticate: opens a session and returns its token.
//   - ListTables / ListColumns: discovery of target tables and their columns.
//   - SelectPage: ordered, paged reads.
//   - DeleteWhereIDIn / InsertBatch: the supersede-and-reinsert write model.
//   - ExecuteStatement: arbitrary pre/post-work SQL.
//
// SQLStore implements it on top of GORM (MySQL or SQLite) and a testify mock
// lives in core/tabular/mocks.
package tabular
