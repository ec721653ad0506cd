// Package pathlock implements a cross-process, cross-goroutine
// readers-writer lock keyed by filesystem path.
//
// A lock is named by a path; every goroutine of every process that opens
// the same (canonicalized) path is arbitrated by the same lock, in shared
// (reader) or exclusive (writer) mode, blocking or not, reentrant or not.
//
// The composite lock is two layers acquired in a fixed order: first an
// in-memory, process-wide goroutine-level readers-writer lock (component
// C), then the OS advisory file lock composed with an intra-process
// reader/writer count (component D). The order is the single most
// important correctness property of this package; see the comment on
// PathLock below for why reversing it would deadlock.
package pathlock

import "github.com/dreadlocks/pathlock/internal/gid"

// Handle is the scoped-acquisition handle returned by PathLock,
// ThreadLevelPathLock, and ProcessLevelPathLock. The lock is released by
// calling Close, which is safe to call via defer at the acquisition site
// and guaranteed to unwind in the reverse of the acquisition order
// regardless of how much of the acquisition succeeded.
type Handle struct {
	rec  *record
	gid  int64
	mode mode

	gAcquired bool
	pAcquired bool
	closed    bool
}

// Fd returns the open file descriptor backing the locked path, valid for
// the lifetime of the handle. Callers may use it to perform I/O on the
// locked file without opening it separately. The descriptor belongs to the
// path's record, not to the handle: it returns 0 when no descriptor is open
// on the record, as for a ThreadLevelPathLock handle while no process-level
// holder of the same path exists in this process.
func (h *Handle) Fd() uintptr {
	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	if h.rec.fd == nil {
		return 0
	}
	return h.rec.fd.Fd()
}

// Close releases the lock in the reverse of its acquisition order:
// process level, then goroutine level, then the registry reference. It
// must be called exactly once per successful acquisition; the typical
// usage is `defer h.Close()` immediately after a successful PathLock call.
// A second call is a programmer error: rather than double-releasing the
// record (which would corrupt its refcount), Close reports
// ErrHandleClosed and does nothing else.
func (h *Handle) Close() error {
	if h.closed {
		return ErrHandleClosed
	}
	h.closed = true

	var err error
	if h.pAcquired {
		err = h.rec.releaseProcess(h.gid)
		h.pAcquired = false
	}
	if h.gAcquired {
		h.rec.releaseGoroutine(h.gid)
		h.gAcquired = false
	}
	releaseRecord(h.rec)
	return err
}

func resolveMode(cfg config) mode {
	if cfg.shared {
		return modeShared
	}
	return modeExclusive
}

// PathLock acquires the composite lock on path and returns a handle that
// releases it on Close. Acquisition proceeds in a fixed order:
//
//  1. registry.acquireRecord(path)
//  2. goroutine-level acquire (component C)
//  3. process-level acquire (component D, which takes the OS file lock)
//
// Release is the exact reverse, guaranteed on every return path including
// a failure of step 3.
//
// The goroutine-level lock is always acquired first so that intra-process
// contention is resolved without ever holding the kernel file lock across
// a wait that depends on another goroutine of the same process: if this
// were reversed, goroutine A could hold the file lock exclusively while
// waiting on goroutine B's in-memory shared lock, while B is itself
// blocked on the kernel primitive that A holds: a deadlock with no
// recovery. Requiring process-level acquisition to come after
// goroutine-level success rules this out: no goroutine of this process is
// ever holding the goroutine-level lock in an incompatible mode at the
// moment the file lock is taken.
func PathLock(path string, opts ...Option) (*Handle, error) {
	return acquireComposite(path, opts, true, true)
}

// ThreadLevelPathLock exposes only the goroutine-level layer (C+B), for
// callers that already coordinate across processes by other means.
func ThreadLevelPathLock(path string, opts ...Option) (*Handle, error) {
	return acquireComposite(path, opts, true, false)
}

// ProcessLevelPathLock exposes only the process-level layer (D+B).
func ProcessLevelPathLock(path string, opts ...Option) (*Handle, error) {
	return acquireComposite(path, opts, false, true)
}

func acquireComposite(path string, opts []Option, useGoroutine, useProcess bool) (*Handle, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	m := resolveMode(cfg)

	rec, err := acquireRecord(path)
	if err != nil {
		return nil, err
	}

	h := &Handle{rec: rec, gid: gid.Get(), mode: m}

	if useGoroutine {
		if err := rec.acquireGoroutine(m, cfg.blocking, cfg.reentrant, h.gid); err != nil {
			releaseRecord(rec)
			return nil, err
		}
		h.gAcquired = true
	}

	if useProcess {
		if err := rec.acquireProcess(m, cfg.blocking, cfg.reentrant, h.gid); err != nil {
			if h.gAcquired {
				rec.releaseGoroutine(h.gid)
			}
			releaseRecord(rec)
			return nil, err
		}
		h.pAcquired = true
	}

	return h, nil
}
