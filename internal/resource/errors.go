package resource

import (
	"errors"
	"fmt"
)

// ErrInsertReturnedNoRow means an INSERT ... RETURNING * produced nothing,
// which indicates a misconfigured table rather than bad input.
var ErrInsertReturnedNoRow = errors.New("insert returned no row")

// OperationError wraps an unexpected database failure with the operation
// and resource type that produced it. Registry misses and projection
// failures pass through unwrapped; only genuine database errors wear this.
type OperationError struct {
	Op           string
	ResourceType string
	Err          error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ResourceType, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func opErr(op, resourceType string, err error) error {
	return &OperationError{Op: op, ResourceType: resourceType, Err: err}
}
