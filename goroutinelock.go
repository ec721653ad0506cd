package pathlock

// Goroutine-level readers-writer lock: per-record in-memory coordination
// among goroutines of this process, with non-blocking attempts,
// reentrance tracking keyed by goroutine id, and an owner ledger. This is
// component C of the design: the lock that the composite PathLock always
// acquires before touching the OS file lock, so that no goroutine of this
// process ever holds the kernel file lock while blocked on another
// goroutine's in-memory state.
//
// Policy: reader-preferring. A writer waiting on gCond does not prevent a
// new compatible reader from joining an already-held shared state; this
// matches the chained-readers scenarios the composite lock's test suite
// depends on (see pathlock_test.go).

func (rec *record) acquireGoroutine(m mode, blocking, reentrant bool, gid int64) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if owner, held := rec.gOwners[gid]; held && owner.mode != modeNone {
		if !reentrant {
			return newRecursiveDeadlockError("thread")
		}
		if owner.mode != m {
			// Mode changes under reentrance are not supported; treat as
			// the same bug class as non-reentrant self-deadlock.
			return newRecursiveDeadlockError("thread")
		}
		owner.depth++
		rec.gOwners[gid] = owner
		return nil
	}

	for !rec.gState.compatible(m) {
		if !blocking {
			return newThreadLevelWouldBlockError()
		}
		rec.gCond.Wait()
	}

	switch m {
	case modeShared:
		rec.gState.readers++
	case modeExclusive:
		rec.gState.writer = true
	}
	rec.gOwners[gid] = ownerState{mode: m, depth: 1}
	return nil
}

func (rec *record) releaseGoroutine(gid int64) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	owner, held := rec.gOwners[gid]
	if !held {
		return
	}

	owner.depth--
	if owner.depth > 0 {
		rec.gOwners[gid] = owner
		return
	}

	delete(rec.gOwners, gid)
	switch owner.mode {
	case modeShared:
		rec.gState.readers--
	case modeExclusive:
		rec.gState.writer = false
	}
	rec.gCond.Broadcast()
}
