package service

import "fmt"

// PersistenceError wraps a customer store failure. It is fatal to the
// current daily run and surfaces as 503 on HTTP triggers.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
