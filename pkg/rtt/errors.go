package rtt

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSlot indicates every slot of the channel table is taken.
	// Table sizes are fixed when the control block is created.
	ErrNoSlot = errors.New("no free channel slot")
	// ErrSlotActive indicates the requested slot is already registered.
	ErrSlotActive = errors.New("channel slot already active")
	// ErrIndexRange indicates the requested slot does not exist.
	ErrIndexRange = errors.New("channel index out of range")
	// ErrBufferTooSmall indicates a buffer without usable capacity.
	ErrBufferTooSmall = errors.New("channel buffer must hold at least 2 bytes")
	// ErrInvalidMode indicates an unknown buffer-full mode.
	ErrInvalidMode = errors.New("invalid channel mode")
	// ErrInvalidCapacity indicates unusable control block table sizes.
	ErrInvalidCapacity = errors.New("invalid channel table capacity")
)

// RegisterError reports a rejected channel registration.
type RegisterError struct {
	Direction Direction
	Index     int // -1 when no specific slot was requested
	Name      string
	Err       error
}

// Error implements error.
func (e *RegisterError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("register %s channel %q: %v", e.Direction, e.Name, e.Err)
	}
	return fmt.Sprintf("register %s channel %d %q: %v", e.Direction, e.Index, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *RegisterError) Unwrap() error {
	return e.Err
}
