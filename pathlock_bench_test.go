package pathlock

import (
	"context"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/semaphore"
)

// benchLog is a discardable diagnostic logger: wired up so a developer
// debugging a hang can flip the output back on, never written to on the
// default path.
var benchLog = log.New(io.Discard, "pathlock-bench: ", log.Lmicroseconds)

// Benchmark workload: mutexes[i] (here, paths[i]) covers values[i:], and
// each iteration picks an offset and a shared/exclusive mix governed by
// writePerc. An exclusive holder at offset takes every PathLock in
// paths[0:offset+1], in ascending order, and bumps values[offset:] while
// holding all of them; a shared holder does the same walk but stops at a
// shared acquisition on paths[offset]. Values are read back after all
// goroutines have finished, so a broken lock shows up as values going
// backward under assertNonDecreasing or as a data race under -race.
//
// Concurrency is bounded by a weighted semaphore so "concurrency" names an
// actual ceiling on in-flight acquisitions rather than unbounded fan-out.

const benchPaths = 10

func benchmarkLocking(b *testing.B, concurrency int, writePerc int) []uint32 {
	b.Helper()

	dir := b.TempDir()
	var paths [benchPaths]string
	var values [benchPaths]uint32

	for i := range paths {
		p := filepath.Join(dir, "lock-"+string(rune('a'+i)))
		f, err := os.Create(p)
		if err != nil {
			b.Fatal(err)
		}
		f.Close()
		paths[i] = p
	}

	acquireChain := func(offset int, shared bool) []*Handle {
		handles := make([]*Handle, 0, offset+1)
		for i := 0; i < offset; i++ {
			h, err := PathLock(paths[i], Shared(true), Blocking(true))
			if err != nil {
				b.Error(err)
				return handles
			}
			benchLog.Printf("chain(%d) -> shared %d", offset, i)
			handles = append(handles, h)
		}
		h, err := PathLock(paths[offset], Shared(shared), Blocking(true))
		if err != nil {
			b.Error(err)
			return handles
		}
		benchLog.Printf("chain(%d) -> %v %d", offset, shared, offset)
		return append(handles, h)
	}

	releaseChain := func(handles []*Handle) {
		for i := len(handles) - 1; i >= 0; i-- {
			if err := handles[i].Close(); err != nil {
				b.Error(err)
			}
		}
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	ctx := context.Background()
	var wg sync.WaitGroup

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			b.Fatal(err)
		}

		offset := rand.Intn(benchPaths)
		exclusive := rand.Intn(100) < writePerc

		wg.Add(1)
		go func(offset int, exclusive bool) {
			defer wg.Done()
			defer sem.Release(1)

			handles := acquireChain(offset, !exclusive)
			if exclusive {
				for i := offset; i < benchPaths; i++ {
					values[i]++
				}
			}
			releaseChain(handles)
		}(offset, exclusive)
	}

	wg.Wait()
	b.StopTimer()

	return append([]uint32(nil), values[:]...)
}

func assertNonDecreasing(b *testing.B, values []uint32) {
	b.Helper()
	for i := 1; i < len(values); i++ {
		assert.LessOrEqual(b, values[i-1], values[i], "nondecreasing value")
	}
}

func BenchmarkSerial(b *testing.B) {
	assertNonDecreasing(b, benchmarkLocking(b, 1, 10))
}

func BenchmarkSerialHeavyWrites(b *testing.B) {
	assertNonDecreasing(b, benchmarkLocking(b, 1, 50))
}

func BenchmarkLowConcurrency(b *testing.B) {
	assertNonDecreasing(b, benchmarkLocking(b, 2, 10))
}

func BenchmarkMediumConcurrency(b *testing.B) {
	assertNonDecreasing(b, benchmarkLocking(b, 10, 10))
}

func BenchmarkHighConcurrency(b *testing.B) {
	benchmarkLocking(b, 20, 10)
}

func BenchmarkHighConcurrencyHeavyWrites(b *testing.B) {
	benchmarkLocking(b, 20, 50)
}
