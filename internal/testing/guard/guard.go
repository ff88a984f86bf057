// Package guard forces test mode before any package init runs side
// effects. Import for side effect only.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("RIDGELINE_TEST_MODE") == "" {
			_ = os.Setenv("RIDGELINE_TEST_MODE", "1")
		}
	})
}
