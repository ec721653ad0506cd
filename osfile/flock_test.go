package osfile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "osfile-*.lock")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestAcquireExclusiveThenRelease(t *testing.T) {
	f := openTemp(t)
	require.NoError(t, Acquire(f.Fd(), Exclusive, true))
	require.NoError(t, Release(f.Fd()))
}

func TestAcquireSharedConcurrent(t *testing.T) {
	path := openTemp(t).Name()

	f1, err := os.Open(path)
	require.NoError(t, err)
	defer f1.Close()
	f2, err := os.Open(path)
	require.NoError(t, err)
	defer f2.Close()

	require.NoError(t, Acquire(f1.Fd(), Shared, true))
	defer Release(f1.Fd())

	require.NoError(t, Acquire(f2.Fd(), Shared, false))
	defer Release(f2.Fd())
}

func TestAcquireExclusiveNonBlockingWouldBlock(t *testing.T) {
	path := openTemp(t).Name()

	f1, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f1.Close()
	f2, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f2.Close()

	require.NoError(t, Acquire(f1.Fd(), Exclusive, true))
	defer Release(f1.Fd())

	err = Acquire(f2.Fd(), Exclusive, false)
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestAcquireSharedThenExclusiveNonBlockingWouldBlock(t *testing.T) {
	path := openTemp(t).Name()

	f1, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f1.Close()
	f2, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f2.Close()

	require.NoError(t, Acquire(f1.Fd(), Shared, true))
	defer Release(f1.Fd())

	err = Acquire(f2.Fd(), Exclusive, false)
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestReacquireSameFdChangesMode(t *testing.T) {
	f := openTemp(t)
	require.NoError(t, Acquire(f.Fd(), Shared, true))
	require.NoError(t, Acquire(f.Fd(), Exclusive, true))
	require.NoError(t, Release(f.Fd()))
}
