package workspace

import "context"

// Client defines the read operations on the workspace.
type Client interface {
	// GetDataset returns the content of a container. rowLimit <= 0 means no limit.
	GetDataset(ctx context.Context, containerID string, rowLimit int) (*Dataset, error)
	// GetUsers returns the internal users keyed by user id.
	GetUsers(ctx context.Context) (map[string]User, error)
}
