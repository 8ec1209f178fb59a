package app

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "ORDERDESK_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether external backends (Redis, NATS, Postgres) should
// be skipped in favour of in-memory ones.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}

// CloseQuietly closes c on shutdown paths and logs a failure instead of
// returning it.
func CloseQuietly(logger *slog.Logger, name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && logger != nil {
		logger.Warn("close "+name, slog.Any("error", err))
	}
}
