package layout

import (
	"fmt"
	"strings"
)

// Mode specifies what a write does when the buffer is full.
// It occupies the low bits of the channel flags.
type Mode uintptr

const (
	// ModeNoBlockSkip drops a write that does not fit in its entirety.
	ModeNoBlockSkip Mode = 0
	// ModeNoBlockTrim writes as much as fits and drops the rest.
	ModeNoBlockTrim Mode = 1
	// ModeBlockIfFull waits for the consumer to make room.
	ModeBlockIfFull Mode = 2
	// ModeOverwrite evicts the oldest unread bytes to make room.
	ModeOverwrite Mode = 3

	// ModeMask selects the mode bits of the flags word.
	ModeMask Mode = 3
)

var modeNames = []string{"skip", "trim", "block", "overwrite"}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m <= ModeOverwrite
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m.Valid() {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uintptr(m))
}

// ParseMode accepts the names printed by String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for n, str := range modeNames {
		if str == name {
			return Mode(n), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", uintptr(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
