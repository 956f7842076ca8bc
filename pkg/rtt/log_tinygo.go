//go:build tinygo

package rtt

// Bare-metal builds have no log sink; registration errors are still
// returned to the caller.

func logInfof(format string, args ...interface{})    {}
func logWarningf(format string, args ...interface{}) {}
