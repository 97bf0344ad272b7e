// Package testing pins the environment shared by ledger test binaries.
// Import it for side effects from packages whose tests read LEDGER_* settings.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var defaults = map[string]string{
	"LEDGER_TEST_MODE": "1",
	"LEDGER_CURRENCY":  "IDR",
	"APP_ENV":          "test",
	"LOG_LEVEL":        "warn",
}

var once sync.Once

func ensureTestEnv() {
	once.Do(func() {
		for key, value := range defaults {
			if key != "LEDGER_TEST_MODE" && os.Getenv(key) != "" {
				continue
			}
			_ = os.Setenv(key, value)
		}
	})
}

func init() {
	ensureTestEnv()
}

// TestMain lets packages delegate their TestMain here to get the same environment.
func TestMain(m *stdtesting.M) {
	ensureTestEnv()
	os.Exit(m.Run())
}
