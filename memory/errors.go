package memory

import "fmt"

// SchemaMismatchError reports a stored value that failed validation against
// its declared record shape. Mismatches are surfaced rather than coerced so a
// malformed record cannot leak into prompt formatting.
type SchemaMismatchError struct {
	Namespace Namespace
	Key       string
	Schema    string
	Err       error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("memory: record %s/%s does not match schema %s: %v",
		e.Namespace, e.Key, e.Schema, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

// StoreError wraps an underlying store failure with the namespace and
// operation it occurred in. The core never retries; retry policy, if any,
// belongs to the store implementation.
type StoreError struct {
	Namespace Namespace
	Op        string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("memory: %s %s: %v", e.Op, e.Namespace, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
