// Package goroutine provides utilities for safely launching goroutines with panic recovery.
package goroutine

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// SafeGo launches a goroutine with panic recovery. A panic is logged with its
// stack trace instead of crashing the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go Recover(log, name, fn)
}

// SafeGoGroup is SafeGo tracked by wg so callers can wait for shutdown.
func SafeGoGroup(wg *sync.WaitGroup, log logger.Interface, name string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		Recover(log, name, fn)
	}()
}

// Recover runs fn in the current goroutine and logs any panic.
func Recover(log logger.Interface, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("goroutine panicked",
				"goroutine", name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
