package pathlock

// config holds the resolved parameters of an acquisition: exclusive,
// blocking, non-reentrant by default.
type config struct {
	shared    bool
	blocking  bool
	reentrant bool
}

func defaultConfig() config {
	return config{
		shared:    false,
		blocking:  true,
		reentrant: false,
	}
}

// Option configures a single call to PathLock, ThreadLevelPathLock, or
// ProcessLevelPathLock.
type Option func(*config)

// Shared requests the shared (reader) mode instead of the default
// exclusive (writer) mode.
func Shared(shared bool) Option {
	return func(c *config) { c.shared = shared }
}

// Blocking controls whether acquisition waits for a compatible state
// (true, the default) or fails immediately with a would-block error
// (false).
func Blocking(blocking bool) Option {
	return func(c *config) { c.blocking = blocking }
}

// Reentrant allows the calling goroutine to reacquire a lock it already
// holds, provided the requested mode matches the mode already held.
// Without it, a goroutine that already holds the lock gets a
// RecursiveDeadlockError instead of blocking on itself.
func Reentrant(reentrant bool) Option {
	return func(c *config) { c.reentrant = reentrant }
}
