package pathlock

import (
	"errors"
	"os"

	"github.com/dreadlocks/pathlock/osfile"
)

// Process-level readers-writer lock: component D. Composes an
// intra-process reader/writer accounting, identical in shape to the
// goroutine-level lock, with the OS advisory file lock held on
// rec.fd/rec.fileMode. Only the first shared acquirer in the process opens
// the fd and takes the kernel lock; only the last releaser gives it back.
//
// The record mutex is released before any blocking call into the kernel
// and reacquired before updating counters, so that cross-process waits
// never hold a Go mutex and intra-process waits never busy-poll the
// kernel.

func toOSMode(m mode) osfile.Mode {
	if m == modeExclusive {
		return osfile.Exclusive
	}
	return osfile.Shared
}

func (rec *record) acquireProcess(m mode, blocking, reentrant bool, gid int64) error {
	rec.mu.Lock()

	if owner, held := rec.pOwners[gid]; held && owner.mode != modeNone {
		defer rec.mu.Unlock()
		if !reentrant {
			return newRecursiveDeadlockError("process")
		}
		if owner.mode != m {
			return newRecursiveDeadlockError("process")
		}
		owner.depth++
		rec.pOwners[gid] = owner
		return nil
	}

	// A pending transition (another goroutine already in the kernel call
	// below, or already releasing the kernel lock) is treated as
	// incompatible with every mode, including for non-blocking callers:
	// its outcome isn't known yet, so there is nothing safe to report.
	for rec.pPending != modeNone || !rec.pState.compatible(m) {
		if !blocking {
			rec.mu.Unlock()
			return newProcessLevelWouldBlockError()
		}
		rec.pCond.Wait()
	}

	// rec.pState is idle exactly when fileMode==modeNone (invariant 3),
	// so the OS lock only needs touching on this first transition. Mark
	// the transition as pending before releasing rec.mu so a second
	// acquirer racing in here sees pPending set and waits instead of
	// also deciding it's the first opener.
	needOS := rec.pState.idle()

	if needOS {
		if rec.fd == nil {
			f, err := os.OpenFile(rec.path, os.O_RDWR, 0)
			if err != nil {
				rec.mu.Unlock()
				return err
			}
			rec.fd = f
		}
		fd := rec.fd.Fd()
		rec.pPending = m

		rec.mu.Unlock()
		err := osfile.Acquire(fd, toOSMode(m), blocking)
		rec.mu.Lock()

		rec.pPending = modeNone
		rec.pCond.Broadcast()

		if err != nil {
			rec.mu.Unlock()
			if errors.Is(err, osfile.ErrWouldBlock) {
				return newProcessLevelWouldBlockError()
			}
			return err
		}
		rec.fileMode = m
	}

	switch m {
	case modeShared:
		rec.pState.readers++
	case modeExclusive:
		rec.pState.writer = true
	}
	rec.pOwners[gid] = ownerState{mode: m, depth: 1}
	rec.mu.Unlock()
	return nil
}

func (rec *record) releaseProcess(gid int64) error {
	rec.mu.Lock()

	owner, held := rec.pOwners[gid]
	if !held {
		rec.mu.Unlock()
		return nil
	}

	owner.depth--
	if owner.depth > 0 {
		rec.pOwners[gid] = owner
		rec.mu.Unlock()
		return nil
	}

	delete(rec.pOwners, gid)
	switch owner.mode {
	case modeShared:
		rec.pState.readers--
	case modeExclusive:
		rec.pState.writer = false
	}

	releaseOS := rec.pState.idle()
	var fd uintptr
	if releaseOS && rec.fd != nil {
		fd = rec.fd.Fd()
		// Mark the close as pending too: rec.pState is already idle, so
		// without this a concurrent acquirer would see "idle, no
		// pending" and race osfile.Acquire against our osfile.Release on
		// the same fd.
		rec.pPending = owner.mode
	}
	rec.mu.Unlock()

	if !releaseOS {
		return nil
	}

	err := osfile.Release(fd)

	rec.mu.Lock()
	rec.fileMode = modeNone
	rec.pPending = modeNone
	rec.pCond.Broadcast()
	rec.mu.Unlock()

	return err
}
