package config

import "sync"

// RuntimeSettings holds values the viewer may change while running.
type RuntimeSettings struct {
	mu       sync.RWMutex
	fpsLimit int
}

var globalRuntimeSettings = &RuntimeSettings{
	fpsLimit: 60,
}

// GetFPSLimit returns the current frame cap; 0 means uncapped.
func GetFPSLimit() int {
	globalRuntimeSettings.mu.RLock()
	defer globalRuntimeSettings.mu.RUnlock()
	return globalRuntimeSettings.fpsLimit
}

// SetFPSLimit sets the frame cap, clamping to [0, 1000].
func SetFPSLimit(limit int) {
	globalRuntimeSettings.mu.Lock()
	defer globalRuntimeSettings.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}
	globalRuntimeSettings.fpsLimit = limit
}
