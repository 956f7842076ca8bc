// Package layout defines the in-memory structures shared with the debug probe.
//
// The probe knows nothing about the target except this layout: it scans RAM
// for the control block id, reads the two channel counts and then walks the
// channel descriptors that immediately follow the header (all up channels,
// then all down channels). Every field is one pointer-width word, so the
// layout matches the SEGGER RTT convention on 32-bit targets.
//
// Field order and widths must not change without changing Magic.
package layout

import (
	"sync/atomic"
	"unsafe"
)

// IDSize is the length of the control block id.
const IDSize = 16

// Magic is the control block id a probe scans for.
var Magic = [IDSize]byte{'S', 'E', 'G', 'G', 'E', 'R', ' ', 'R', 'T', 'T'}

// Header is the fixed prefix of the control block.
type Header struct {
	id              [IDSize]byte // 0x00: Magic, written last
	maxUpChannels   uintptr      // 0x10: number of up descriptors
	maxDownChannels uintptr      // 0x10+W: number of down descriptors
	// up descriptors start at HeaderSize, down descriptors follow them
}

// Channel describes one ring buffer.
type Channel struct {
	name        uintptr // 0*W: address of NUL-terminated name, 0 if absent
	buffer      uintptr // 1*W: address of the data buffer, 0 if inactive
	size        uintptr // 2*W: buffer size in bytes
	writeOffset uintptr // 3*W: next byte to write, owned by the producer
	readOffset  uintptr // 4*W: next byte to read, owned by the consumer
	flags       uintptr // 5*W: mode bits
}

// Layout sizes in bytes.
const (
	WordSize    = unsafe.Sizeof(uintptr(0))
	HeaderSize  = unsafe.Sizeof(Header{})
	ChannelSize = unsafe.Sizeof(Channel{})
)

// BlockSize returns the size of a control block holding up and down channels.
func BlockSize(up, down int) uintptr {
	return HeaderSize + uintptr(up+down)*ChannelSize
}

// BlockWords returns BlockSize in words.
func BlockWords(up, down int) int {
	return int(BlockSize(up, down) / WordSize)
}

// UpChannelOffset returns the byte offset of up channel index.
func UpChannelOffset(index int) uintptr {
	return HeaderSize + uintptr(index)*ChannelSize
}

// DownChannelOffset returns the byte offset of down channel index in a block
// with maxUp up channels.
func DownChannelOffset(maxUp, index int) uintptr {
	return HeaderSize + uintptr(maxUp+index)*ChannelSize
}

// ID returns a copy of the id bytes.
func (h *Header) ID() [IDSize]byte {
	return h.id
}

// MaxUpChannels returns the capacity of the up table.
func (h *Header) MaxUpChannels() int {
	return int(atomic.LoadUintptr(&h.maxUpChannels))
}

// MaxDownChannels returns the capacity of the down table.
func (h *Header) MaxDownChannels() int {
	return int(atomic.LoadUintptr(&h.maxDownChannels))
}

// Stamp sets the table capacities and then the id.
// The id is stored as 4-byte words from its end toward its start so the
// leading "SEGG" only appears once everything else is in place.
func (h *Header) Stamp(maxUp, maxDown int) {
	atomic.StoreUintptr(&h.maxUpChannels, uintptr(maxUp))
	atomic.StoreUintptr(&h.maxDownChannels, uintptr(maxDown))
	for i := IDSize - 4; i >= 0; i -= 4 {
		atomic.StoreUint32((*uint32)(unsafe.Pointer(&h.id[i])), magicWord(i))
	}
}

// Stamped reports whether the id matches Magic.
func (h *Header) Stamped() bool {
	for i := 0; i < IDSize; i += 4 {
		word := atomic.LoadUint32((*uint32)(unsafe.Pointer(&h.id[i])))
		if word != magicWord(i) {
			return false
		}
	}
	return true
}

// magicWord returns Magic[i:i+4] as a native-endian word. Magic itself
// is only byte aligned.
func magicWord(i int) uint32 {
	var w uint32
	copy((*[4]byte)(unsafe.Pointer(&w))[:], Magic[i:i+4])
	return w
}

// Activate fills the descriptor and publishes the buffer address last.
// name and buffer are target addresses; the caller keeps the memory alive.
func (c *Channel) Activate(name, buffer uintptr, size int, mode Mode) {
	atomic.StoreUintptr(&c.name, name)
	atomic.StoreUintptr(&c.size, uintptr(size))
	atomic.StoreUintptr(&c.writeOffset, 0)
	atomic.StoreUintptr(&c.readOffset, 0)
	atomic.StoreUintptr(&c.flags, uintptr(mode&ModeMask))
	atomic.StoreUintptr(&c.buffer, buffer)
}

// Active reports whether the descriptor is bound to a buffer.
func (c *Channel) Active() bool {
	return atomic.LoadUintptr(&c.buffer) != 0 && atomic.LoadUintptr(&c.size) != 0
}

// NameAddr returns the address of the channel name.
func (c *Channel) NameAddr() uintptr {
	return atomic.LoadUintptr(&c.name)
}

// BufferAddr returns the address of the channel buffer.
func (c *Channel) BufferAddr() uintptr {
	return atomic.LoadUintptr(&c.buffer)
}

// Size returns the buffer size.
func (c *Channel) Size() int {
	return int(atomic.LoadUintptr(&c.size))
}

// WriteOffset loads the write offset.
func (c *Channel) WriteOffset() int {
	return int(atomic.LoadUintptr(&c.writeOffset))
}

// SetWriteOffset stores the write offset.
func (c *Channel) SetWriteOffset(off int) {
	atomic.StoreUintptr(&c.writeOffset, uintptr(off))
}

// ReadOffset loads the read offset.
func (c *Channel) ReadOffset() int {
	return int(atomic.LoadUintptr(&c.readOffset))
}

// SetReadOffset stores the read offset.
func (c *Channel) SetReadOffset(off int) {
	atomic.StoreUintptr(&c.readOffset, uintptr(off))
}

// CompareAndSwapReadOffset replaces the read offset if it still equals old.
func (c *Channel) CompareAndSwapReadOffset(old, off int) bool {
	return atomic.CompareAndSwapUintptr(&c.readOffset, uintptr(old), uintptr(off))
}

// Flags loads the raw flags word.
func (c *Channel) Flags() uintptr {
	return atomic.LoadUintptr(&c.flags)
}

// Mode returns the buffer-full mode.
func (c *Channel) Mode() Mode {
	return Mode(atomic.LoadUintptr(&c.flags) & uintptr(ModeMask))
}

// SetMode replaces the mode bits, keeping the other flag bits.
func (c *Channel) SetMode(mode Mode) {
	for {
		old := atomic.LoadUintptr(&c.flags)
		flags := old&^uintptr(ModeMask) | uintptr(mode&ModeMask)
		if atomic.CompareAndSwapUintptr(&c.flags, old, flags) {
			return
		}
	}
}
