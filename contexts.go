package coalescer

import (
	"sync"

	"github.com/quenchkit/go-coalescer/core"
)

// =============================================================================
// Default Contexts Helper (Singleton)
// =============================================================================

var (
	defaultsMu     sync.Mutex
	mainRunner     *core.SerialRunner
	backgroundPool *core.PoolRunner
)

// InitDefaultContexts initializes the process-wide default execution
// contexts: a serial "main" runner and a shared background pool with the
// specified number of workers. Both start immediately. Calling it again
// before shutdown is a no-op.
func InitDefaultContexts(backgroundWorkers int) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()

	if mainRunner != nil {
		return // Already initialized
	}
	mainRunner = core.NewSerialRunner("main")
	backgroundPool = core.NewPoolRunner("background", backgroundWorkers)
}

// MainContext returns the default serial runner.
// It panics if InitDefaultContexts has not been called.
func MainContext() *core.SerialRunner {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()

	if mainRunner == nil {
		panic("default contexts not initialized. Call InitDefaultContexts() first.")
	}
	return mainRunner
}

// BackgroundContext returns the default background pool.
// It panics if InitDefaultContexts has not been called.
func BackgroundContext() *core.PoolRunner {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()

	if backgroundPool == nil {
		panic("default contexts not initialized. Call InitDefaultContexts() first.")
	}
	return backgroundPool
}

// ShutdownDefaultContexts stops both default contexts.
func ShutdownDefaultContexts() {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()

	if mainRunner != nil {
		mainRunner.Stop()
		mainRunner = nil
	}
	if backgroundPool != nil {
		backgroundPool.Stop()
		backgroundPool = nil
	}
}
