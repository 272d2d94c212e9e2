package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook receives every EnhancedError built while reporting is active.
// Hooks must not block; they run on the goroutine that built the error.
type ErrorHook func(*EnhancedError)

var (
	hooksMutex         sync.RWMutex
	errorHooks         []ErrorHook
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook invoked for every built error.
// Used by the notification service to surface high-priority failures.
func AddErrorHook(hook ErrorHook) {
	hooksMutex.Lock()
	defer hooksMutex.Unlock()
	errorHooks = append(errorHooks, hook)
	hasActiveReporting.Store(true)
}

// ClearErrorHooks removes all registered hooks. Intended for tests.
func ClearErrorHooks() {
	hooksMutex.Lock()
	defer hooksMutex.Unlock()
	errorHooks = nil
	hasActiveReporting.Store(false)
}

func reportToHooks(ee *EnhancedError) {
	hooksMutex.RLock()
	hooks := errorHooks
	hooksMutex.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
}
