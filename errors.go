package pathlock

import (
	"errors"
	"fmt"
)

// ErrHandleClosed is returned by Handle.Close when called more than once
// on the same handle. Closing twice is a programmer error, not a
// recoverable condition; it is reported rather than left to silently
// double-release the underlying record.
var ErrHandleClosed = errors.New("pathlock: handle already closed")

// AcquiringLockWouldBlockError is the base of the would-block error
// hierarchy: a non-blocking acquisition found the lock incompatible with
// its current state. Callers normally match on the more specific
// AcquiringThreadLevelLockWouldBlockError or
// AcquiringProcessLevelLockWouldBlockError, but can use errors.Is against
// this type to catch either.
type AcquiringLockWouldBlockError struct {
	layer string
}

func (e *AcquiringLockWouldBlockError) Error() string {
	return fmt.Sprintf("pathlock: acquiring %s-level lock would block", e.layer)
}

// Is reports whether target is any AcquiringLockWouldBlockError, letting
// errors.Is(err, &AcquiringLockWouldBlockError{}) match thread-level and
// process-level instances alike.
func (e *AcquiringLockWouldBlockError) Is(target error) bool {
	_, ok := target.(*AcquiringLockWouldBlockError)
	return ok
}

// AcquiringThreadLevelLockWouldBlockError is returned when a non-blocking
// acquisition at the goroutine (thread) level would have to wait.
type AcquiringThreadLevelLockWouldBlockError struct {
	*AcquiringLockWouldBlockError
}

func newThreadLevelWouldBlockError() error {
	return &AcquiringThreadLevelLockWouldBlockError{&AcquiringLockWouldBlockError{layer: "thread"}}
}

// Unwrap exposes the shared base so errors.Is/As can match it.
func (e *AcquiringThreadLevelLockWouldBlockError) Unwrap() error {
	return e.AcquiringLockWouldBlockError
}

// AcquiringProcessLevelLockWouldBlockError is returned when a non-blocking
// acquisition at the process (OS file lock) level would have to wait.
type AcquiringProcessLevelLockWouldBlockError struct {
	*AcquiringLockWouldBlockError
}

func newProcessLevelWouldBlockError() error {
	return &AcquiringProcessLevelLockWouldBlockError{&AcquiringLockWouldBlockError{layer: "process"}}
}

// Unwrap exposes the shared base so errors.Is/As can match it.
func (e *AcquiringProcessLevelLockWouldBlockError) Unwrap() error {
	return e.AcquiringLockWouldBlockError
}

// RecursiveDeadlockError is returned when a goroutine attempts to acquire
// a lock it already holds with reentrant=false. It is a bug-catching
// safety net, not a recoverable condition: the caller asked for something
// that would deadlock against itself.
type RecursiveDeadlockError struct {
	layer string
}

func (e *RecursiveDeadlockError) Error() string {
	return fmt.Sprintf("pathlock: recursive deadlock: %s-level lock already held by this goroutine", e.layer)
}

func newRecursiveDeadlockError(layer string) error {
	return &RecursiveDeadlockError{layer: layer}
}
