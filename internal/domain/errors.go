package domain

import "fmt"

// StorageError wraps a failure of either durable store the gateway writes
// to: the object bucket or the artifact table. Op names the failed action
// ("put", "delete", "insert", ...) and Target the object key or table.
type StorageError struct {
	Op     string
	Target string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
