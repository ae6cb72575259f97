// Package workspace is the client for the document-oriented workspace (Notion)
// that holds the human-edited source records.
//
// A workspace container (a Notion database) is fetched as a Dataset: its display
// name, its records, the flattened key-value cells of every record, and the column
// descriptors that describe how each source field maps onto a store column.
//
// # Client Interface
//
//   - GetDataset: one container, up to rowLimit records (0 = all).
//   - GetUsers: the internal workspace users keyed by user id.
//
// NotionClient implements the interface over the Notion REST API using
// go-retryablehttp, which retries rate-limited and 5xx responses. Callers are still
// expected to wrap calls in the engine's retry policy.
package workspace
