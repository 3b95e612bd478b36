package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups of unknown nodes, node instances and resources.
var ErrNotFound = errors.New("not found")

// ErrUnknownBackend marks an invalid storage backend choice in Config.
var ErrUnknownBackend = errors.New("unknown storage backend")

// ConflictError rejects a property update whose expected version no longer
// matches the stored version. The caller is expected to reload the instance
// and retry; nothing was written.
type ConflictError struct {
	// InstanceID is the node instance the update targeted.
	InstanceID string

	// Expected is the version the caller asserted.
	Expected int64

	// Actual is the version currently stored.
	Actual int64
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("version %d does not match current version of node instance %s which is %d",
		e.Expected, e.InstanceID, e.Actual)
}

// IsConflict reports whether err is a version conflict.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsNotFound reports whether err marks a missing node, instance or resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFoundf(format string, args ...any) error {
	args = append(args, ErrNotFound)
	return fmt.Errorf(format+": %w", args...)
}
