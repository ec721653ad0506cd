package pathlock

import (
	"os"
	"path/filepath"
	"sync"
)

// mode is the lock mode a goroutine, a process, or the kernel file lock is
// held in.
type mode int

const (
	modeNone mode = iota
	modeShared
	modeExclusive
)

// rwState is a readers-writer counter: at most one of writer==true or
// readers>0 holds at any time (enforced by the compatibility checks in
// goroutinelock.go and processlock.go, never by this type itself).
type rwState struct {
	readers int
	writer  bool
}

func (s rwState) idle() bool { return s.readers == 0 && !s.writer }

func (s rwState) compatible(m mode) bool {
	switch m {
	case modeShared:
		return !s.writer
	case modeExclusive:
		return s.idle()
	default:
		return true
	}
}

// ownerState records a single goroutine's currently held mode and
// reentrance depth for one record. A goroutine absent from the owning map
// holds nothing.
type ownerState struct {
	mode  mode
	depth int
}

// record is the per-path LockRecord: all state needed to arbitrate shared
// and exclusive access to one canonical path, both within this process
// (goroutine level) and across processes (via the OS file lock).
//
// Invariants (see SPEC_FULL.md §3, restated here next to the fields they
// constrain):
//  1. fileMode==modeExclusive  => pState has exactly one writer, no readers.
//  2. fileMode==modeShared     => pState has >=1 reader, no writer.
//  3. fileMode==modeNone       <=> no goroutine in this process holds the
//     process-level lock.
//  4. A goroutine present in gOwners/pOwners with mode != modeNone is
//     counted exactly once in gState/pState.
//  5. A goroutine's held mode never changes while held.
//  6. refcount>0 <=> the record is present in the registry map.
type record struct {
	mu       sync.Mutex
	path     string
	refcount int

	gState  rwState
	gOwners map[int64]ownerState
	gCond   *sync.Cond

	pState  rwState
	pOwners map[int64]ownerState
	pCond   *sync.Cond
	// pPending is modeNone unless a goroutine is currently in the kernel
	// flock(2) call that transitions the record from idle to shared or
	// exclusive, or back from held to idle; while set, every other
	// blocking acquirer (even a compatible one) waits and every
	// non-blocking one gets a would-block error, since the outcome of that
	// call is not yet known.
	pPending mode

	fd       *os.File
	fileMode mode
}

func newRecord(path string) *record {
	rec := &record{
		path:    path,
		gOwners: make(map[int64]ownerState),
		pOwners: make(map[int64]ownerState),
	}
	rec.gCond = sync.NewCond(&rec.mu)
	rec.pCond = sync.NewCond(&rec.mu)
	return rec
}

var (
	registryMu  sync.Mutex
	registryMap = make(map[string]*record)
)

// acquireRecord canonicalizes path, looks up or creates its record, and
// increments its refcount. The registry mutex is only ever held for this
// map mutation, never across a blocking call on the returned record.
func acquireRecord(path string) (*record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	rec, ok := registryMap[abs]
	if !ok {
		rec = newRecord(abs)
		registryMap[abs] = rec
	}
	rec.refcount++
	return rec, nil
}

// releaseRecord decrements rec's refcount and removes it from the
// registry, closing its file descriptor, once it drops to zero.
func releaseRecord(rec *record) {
	registryMu.Lock()
	defer registryMu.Unlock()

	rec.refcount--
	if rec.refcount > 0 {
		return
	}

	delete(registryMap, rec.path)

	rec.mu.Lock()
	if rec.fd != nil {
		rec.fd.Close()
		rec.fd = nil
	}
	rec.mu.Unlock()
}
