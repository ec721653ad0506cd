// Package gid extracts a best-effort identifier for the calling goroutine.
//
// Go deliberately has no public API for this (the runtime treats goroutine
// identity as an implementation detail), so reentrance tracking here keys
// off the same textual trick every other goroutine-id shim in the Go
// ecosystem uses: ask the runtime for a stack trace and parse the numeric
// id out of its "goroutine N [running]:" header. It is slower than a
// native field read, but it is called only on lock acquire/release, never
// in a hot per-byte loop.
package gid

import (
	"bytes"
	"runtime"
	"strconv"
)

// Get returns the id of the calling goroutine. It is stable for the
// lifetime of the goroutine and distinct from every other live goroutine's
// id, which is exactly what reentrance tracking needs: a thread identity
// key.
func Get() int64 {
	buf := make([]byte, 64)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	i := bytes.IndexByte(buf, ' ')
	if i < 0 {
		panic("gid: could not parse goroutine id from runtime.Stack output")
	}

	id, err := strconv.ParseInt(string(buf[:i]), 10, 64)
	if err != nil {
		panic("gid: could not parse goroutine id from runtime.Stack output: " + err.Error())
	}
	return id
}
