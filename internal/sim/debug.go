package sim

import "sync/atomic"

// debugLoggingEnabled gates per-tick debug logs so the hot loop skips building
// log attributes when the level is above debug.
var debugLoggingEnabled atomic.Bool

// EnableDebugLogging enables or disables per-tick debug logging.
// Call once from main after parsing the log level.
func EnableDebugLogging(enabled bool) {
	debugLoggingEnabled.Store(enabled)
}

// IsDebugEnabled returns true if per-tick debug logging is enabled.
//
//	if sim.IsDebugEnabled() {
//	    slog.Debug("tick", "stats", stats)
//	}
func IsDebugEnabled() bool {
	return debugLoggingEnabled.Load()
}
