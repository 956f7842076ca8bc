//go:build !rttdebug

package rtt

type Stats struct{}

func dbgWrite(want, n int) {}
func dbgBlockWait()        {}
func dbgTimeout()          {}
func dbgRead(n int)        {}

func DebugReset()       {}
func DebugStats() Stats { return Stats{} }
