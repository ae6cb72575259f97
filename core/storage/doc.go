// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client and is used to archive sync run reports. This
// abstraction supports both AWS S3 and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - BucketExists / MakeBucket: ensure the report bucket exists.
//   - PutObject: uploads a report.
//   - GetObject: retrieves a report as a stream.
//   - ListObjects: lists archived reports (prefix/recursive).
//   - RemoveObjects: prunes old reports in one call.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "sync-reports")
package storage
