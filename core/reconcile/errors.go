package reconcile

import "fmt"

// ConnectivityError means the store could not be reached or held no tables.
// It aborts the run before any write.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store connectivity: %s", e.Op)
	}
	return fmt.Sprintf("store connectivity: %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// PaginationError means a page could not be read; rows before it were kept.
type PaginationError struct {
	Table  string
	Offset int
	Err    error
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("table %s: page at offset %d failed: %v", e.Table, e.Offset, e.Err)
}

func (e *PaginationError) Unwrap() error { return e.Err }

// WorkspaceFetchError means a container or the user list could not be fetched.
type WorkspaceFetchError struct {
	Table       string
	ContainerID string
	Err         error
}

func (e *WorkspaceFetchError) Error() string {
	if e.ContainerID == "" {
		return fmt.Sprintf("workspace fetch for %s failed: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("workspace fetch for %s (%s) failed: %v", e.Table, e.ContainerID, e.Err)
}

func (e *WorkspaceFetchError) Unwrap() error { return e.Err }

// StatementError means a pre or post work statement failed.
type StatementError struct {
	Phase string
	Name  string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s statement %s failed: %v", e.Phase, e.Name, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// WriteError means a table's delete or insert failed. Other tables are unaffected.
type WriteError struct {
	Table string
	Op    string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("table %s: %s failed: %v", e.Table, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
