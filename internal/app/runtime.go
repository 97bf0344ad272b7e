package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv is set by test binaries so entrypoints return before dialing Postgres or Redis.
const TestModeEnv = "LEDGER_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return parseTestMode(os.Getenv(TestModeEnv))
})

// InTestMode reports whether the application should skip runtime side effects.
// The environment is read once per process.
func InTestMode() bool {
	return testMode()
}

func parseTestMode(raw string) bool {
	on, err := strconv.ParseBool(raw)
	return err == nil && on
}
