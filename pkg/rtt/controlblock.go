package rtt

import (
	"sync"
	"unsafe"

	"github.com/robotalks/rtt.go/pkg/rtt/layout"
	"github.com/robotalks/rtt.go/pkg/rtt/ring"
)

// Mode specifies what a write does when the buffer is full.
type Mode = layout.Mode

// Buffer-full modes.
const (
	ModeNoBlockSkip = layout.ModeNoBlockSkip
	ModeNoBlockTrim = layout.ModeNoBlockTrim
	ModeBlockIfFull = layout.ModeBlockIfFull
	ModeOverwrite   = layout.ModeOverwrite
)

// ParseMode parses a mode name: skip, trim, block or overwrite.
func ParseMode(s string) (Mode, error) {
	return layout.ParseMode(s)
}

// Default table sizes used by Default.
const (
	DefaultMaxUpChannels   = 3
	DefaultMaxDownChannels = 3
)

// Direction tells up channels from down channels.
type Direction int

const (
	// Up channels carry data from the target to the probe.
	Up Direction = iota
	// Down channels carry data from the probe to the target.
	Down
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ControlBlock is the table of channels a probe discovers.
//
// Its memory is a single word-aligned arena laid out as layout.Header
// followed by the up and then the down descriptors. The arena never moves.
// Descriptors store plain addresses, so the block also keeps the Go
// references to every registered buffer and name.
type ControlBlock struct {
	words  []uintptr
	header *layout.Header
	descs  []layout.Channel
	maxUp  int

	lock  sync.Mutex
	bufs  [][]byte
	names [][]byte
}

// ChannelInfo is a snapshot of one channel slot.
type ChannelInfo struct {
	Direction Direction `json:"direction"`
	Index     int       `json:"index"`
	Name      string    `json:"name,omitempty"`
	Active    bool      `json:"active"`
	Size      int       `json:"size,omitempty"`
	Mode      Mode      `json:"mode"`
	Used      int       `json:"used"`
}

// NewControlBlock creates a control block with fixed table sizes.
// Most firmware wants the process-wide block from Init or Default instead.
func NewControlBlock(maxUp, maxDown int) (*ControlBlock, error) {
	if maxUp < 0 || maxDown < 0 || maxUp+maxDown == 0 {
		return nil, ErrInvalidCapacity
	}
	words := make([]uintptr, layout.BlockWords(maxUp, maxDown))
	base := unsafe.Pointer(&words[0])
	cb := &ControlBlock{
		words:  words,
		header: (*layout.Header)(base),
		descs:  unsafe.Slice((*layout.Channel)(unsafe.Add(base, layout.HeaderSize)), maxUp+maxDown),
		maxUp:  maxUp,
		bufs:   make([][]byte, maxUp+maxDown),
		names:  make([][]byte, maxUp+maxDown),
	}
	cb.header.Stamp(maxUp, maxDown)
	logInfof("rtt: control block at %#x: %d up, %d down", cb.Address(), maxUp, maxDown)
	return cb, nil
}

var (
	defaultOnce sync.Once
	defaultCB   *ControlBlock
)

// Init creates the process-wide control block. Only the first successful
// call creates it; later calls return the same block.
func Init(maxUp, maxDown int) (*ControlBlock, error) {
	if maxUp < 0 || maxDown < 0 || maxUp+maxDown == 0 {
		return nil, ErrInvalidCapacity
	}
	defaultOnce.Do(func() {
		defaultCB, _ = NewControlBlock(maxUp, maxDown)
	})
	if defaultCB.MaxUpChannels() != maxUp || defaultCB.MaxDownChannels() != maxDown {
		logWarningf("rtt: control block already created with %d up, %d down; requested %d up, %d down",
			defaultCB.MaxUpChannels(), defaultCB.MaxDownChannels(), maxUp, maxDown)
	}
	return defaultCB, nil
}

// Default returns the process-wide control block, creating it with the
// default table sizes if Init has not been called.
func Default() *ControlBlock {
	defaultOnce.Do(func() {
		defaultCB, _ = NewControlBlock(DefaultMaxUpChannels, DefaultMaxDownChannels)
	})
	return defaultCB
}

// Address returns the address a probe finds the block at.
func (cb *ControlBlock) Address() uintptr {
	return uintptr(unsafe.Pointer(&cb.words[0]))
}

// Bytes returns the raw memory of the block. It aliases live state which
// changes under the caller; use it for dumps and diagnostics only.
func (cb *ControlBlock) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&cb.words[0])), len(cb.words)*int(layout.WordSize))
}

// Header returns the block header.
func (cb *ControlBlock) Header() *layout.Header {
	return cb.header
}

// MaxUpChannels returns the size of the up table.
func (cb *ControlBlock) MaxUpChannels() int {
	return cb.maxUp
}

// MaxDownChannels returns the size of the down table.
func (cb *ControlBlock) MaxDownChannels() int {
	return len(cb.descs) - cb.maxUp
}

// RegisterUp binds buf to the lowest free up slot.
func (cb *ControlBlock) RegisterUp(name string, buf []byte, mode Mode) (UpChannel, error) {
	return cb.RegisterUpAt(-1, name, buf, mode)
}

// RegisterUpAt binds buf to up slot index, or to the lowest free slot if
// index is negative.
func (cb *ControlBlock) RegisterUpAt(index int, name string, buf []byte, mode Mode) (UpChannel, error) {
	slot, err := cb.register(Up, index, name, buf, mode)
	if err != nil {
		return UpChannel{}, err
	}
	return UpChannel{ring: cb.ring(slot), index: slot}, nil
}

// RegisterDown binds buf to the lowest free down slot.
func (cb *ControlBlock) RegisterDown(name string, buf []byte, mode Mode) (DownChannel, error) {
	return cb.RegisterDownAt(-1, name, buf, mode)
}

// RegisterDownAt binds buf to down slot index, or to the lowest free slot if
// index is negative.
func (cb *ControlBlock) RegisterDownAt(index int, name string, buf []byte, mode Mode) (DownChannel, error) {
	slot, err := cb.register(Down, index, name, buf, mode)
	if err != nil {
		return DownChannel{}, err
	}
	return DownChannel{ring: cb.ring(slot), index: slot - cb.maxUp}, nil
}

// Up returns a handle for an active up channel.
func (cb *ControlBlock) Up(index int) (UpChannel, bool) {
	if index < 0 || index >= cb.maxUp {
		return UpChannel{}, false
	}
	cb.lock.Lock()
	defer cb.lock.Unlock()
	if cb.bufs[index] == nil {
		return UpChannel{}, false
	}
	return UpChannel{ring: cb.ring(index), index: index}, true
}

// Down returns a handle for an active down channel.
func (cb *ControlBlock) Down(index int) (DownChannel, bool) {
	if index < 0 || index >= cb.MaxDownChannels() {
		return DownChannel{}, false
	}
	slot := cb.maxUp + index
	cb.lock.Lock()
	defer cb.lock.Unlock()
	if cb.bufs[slot] == nil {
		return DownChannel{}, false
	}
	return DownChannel{ring: cb.ring(slot), index: index}, true
}

// Channels returns a snapshot of all slots, up channels first.
func (cb *ControlBlock) Channels() []ChannelInfo {
	cb.lock.Lock()
	defer cb.lock.Unlock()
	infos := make([]ChannelInfo, len(cb.descs))
	for slot := range cb.descs {
		info := &infos[slot]
		info.Direction, info.Index = Up, slot
		if slot >= cb.maxUp {
			info.Direction, info.Index = Down, slot-cb.maxUp
		}
		if cb.bufs[slot] == nil {
			continue
		}
		r := cb.ring(slot)
		info.Active = true
		info.Size = r.Size()
		info.Mode = r.Mode()
		info.Used = r.Used()
		if name := cb.names[slot]; len(name) > 0 {
			info.Name = string(name[:len(name)-1])
		}
	}
	return infos
}

// ring returns the engine view of a slot. Caller must know the slot is active.
func (cb *ControlBlock) ring(slot int) ring.Ring {
	return ring.New(&cb.descs[slot], cb.bufs[slot])
}

// register claims a slot and returns its position in descs.
func (cb *ControlBlock) register(dir Direction, index int, name string, buf []byte, mode Mode) (int, error) {
	fail := func(err error) (int, error) {
		regErr := &RegisterError{Direction: dir, Index: index, Name: name, Err: err}
		logWarningf("rtt: %v", regErr)
		return -1, regErr
	}
	if index < 0 {
		index = -1
	}
	if len(buf) < 2 {
		return fail(ErrBufferTooSmall)
	}
	if !mode.Valid() {
		return fail(ErrInvalidMode)
	}

	first, count := 0, cb.maxUp
	if dir == Down {
		first, count = cb.maxUp, cb.MaxDownChannels()
	}

	cb.lock.Lock()
	defer cb.lock.Unlock()
	if index < 0 {
		for n := 0; n < count; n++ {
			if cb.bufs[first+n] == nil {
				index = n
				break
			}
		}
		if index < 0 {
			return fail(ErrNoSlot)
		}
	} else if index >= count {
		return fail(ErrIndexRange)
	} else if cb.bufs[first+index] != nil {
		return fail(ErrSlotActive)
	}

	slot := first + index
	var nameAddr uintptr
	if name != "" {
		cstr := append([]byte(name), 0)
		cb.names[slot] = cstr
		nameAddr = uintptr(unsafe.Pointer(&cstr[0]))
	}
	cb.bufs[slot] = buf
	cb.descs[slot].Activate(nameAddr, uintptr(unsafe.Pointer(&buf[0])), len(buf), mode)
	logInfof("rtt: %s[%d] %q registered: %d bytes, %s", dir, index, name, len(buf), mode)
	return slot, nil
}
