// Package osfile is a thin, portable wrapper over the OS advisory per-fd
// readers-writer lock (flock(2)). It is the only place in this module that
// knows about the kernel primitive; everything above it reasons purely in
// terms of shared/exclusive and success/would-block.
package osfile

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Mode is the mode an advisory file lock is held in.
type Mode int

const (
	// Shared allows any number of other shared holders, and excludes
	// exclusive holders.
	Shared Mode = iota
	// Exclusive excludes any other holder, shared or exclusive.
	Exclusive
)

// ErrWouldBlock is returned by Acquire when a non-blocking request is
// incompatible with the lock's current kernel-held state.
var ErrWouldBlock = errors.New("osfile: acquiring file lock would block")

// Acquire requests the advisory lock on fd in the given mode. If blocking
// is false and the request cannot be satisfied immediately, it returns
// ErrWouldBlock without side effect.
//
// Calling Acquire again on an fd that already holds a lock (in either
// mode) reacquires it in the new mode as a single flock(2) call; this is
// the supported mechanism for upgrade/downgrade. flock(2) does not
// guarantee that such a conversion is atomic: the kernel may remove the
// existing lock before placing the new one, so another process can take
// the lock in between.
func Acquire(fd uintptr, mode Mode, blocking bool) error {
	op := unix.LOCK_SH
	if mode == Exclusive {
		op = unix.LOCK_EX
	}
	if !blocking {
		op |= unix.LOCK_NB
	}

	for {
		err := unix.Flock(int(fd), op)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EWOULDBLOCK):
			return ErrWouldBlock
		default:
			return err
		}
	}
}

// Release releases any mode of lock held on fd.
func Release(fd uintptr) error {
	for {
		err := unix.Flock(int(fd), unix.LOCK_UN)
		if err == nil {
			return nil
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}
