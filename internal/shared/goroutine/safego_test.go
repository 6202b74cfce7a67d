package goroutine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orris-inc/payrecon/internal/shared/logger"
)

func TestSafeGoGroup_RecoversPanic(t *testing.T) {
	var wg sync.WaitGroup
	ran := false

	SafeGoGroup(&wg, logger.NewNopLogger(), "panics", func() {
		panic("boom")
	})
	SafeGoGroup(&wg, logger.NewNopLogger(), "runs", func() {
		ran = true
	})
	wg.Wait()

	assert.True(t, ran)
}
