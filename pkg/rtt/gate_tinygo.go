//go:build tinygo

package rtt

import "runtime/interrupt"

// InterruptGate masks interrupts while it is held.
// It only serializes contexts running on the same core.
type InterruptGate struct {
	state interrupt.State
}

// Lock disables interrupts and remembers the previous state.
func (g *InterruptGate) Lock() {
	state := interrupt.Disable()
	g.state = state
}

// Unlock restores the interrupt state saved by Lock.
func (g *InterruptGate) Unlock() {
	interrupt.Restore(g.state)
}
