package leasemanagement

import (
	"fmt"
)

// StorageCorruptError means the stored document is not a readable lease.
type StorageCorruptError struct {
	FileName string
	Err      error
}

func (e *StorageCorruptError) Error() string {
	return fmt.Sprintf("lease document %q is corrupt: %v", e.FileName, e.Err)
}

func (e *StorageCorruptError) Unwrap() error {
	return e.Err
}

// StorageUnavailableError means the store could not be reached or refused the
// request.
type StorageUnavailableError struct {
	Op       string
	FileName string
	Err      error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("failed to %v lease document %q: %v", e.Op, e.FileName, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

// ConflictError means someone else wrote the lease document between our read
// and our write.
type ConflictError struct {
	FileName string
	Version  string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("lease document %q changed since version %q was read", e.FileName, e.Version)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
