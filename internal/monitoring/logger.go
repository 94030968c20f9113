// Package monitoring carries the mutable diagnostic logger used by the
// payload decoder. Decode diagnostics are chatty on a busy tether, so
// callers can redirect or mute them without touching the global log output.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// and may be replaced with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the diagnostic logger. Passing nil installs a no-op
// logger, which silences decode diagnostics entirely.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
