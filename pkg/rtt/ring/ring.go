// Package ring implements the circular buffer algorithms over a channel
// descriptor.
//
// The producer only stores the write offset and the consumer only stores the
// read offset; ModeOverwrite is the single exception, where the producer
// advances the read offset to evict old data. Payload bytes are always copied
// before the offset covering them is published, and the offsets are only
// accessed atomically, so a peer polling the descriptor never sees an offset
// that points past bytes which are not yet in place.
//
// One slot of the buffer is always kept free so that equal offsets mean
// empty: the usable capacity is Size()-1.
package ring

import (
	"github.com/robotalks/rtt.go/pkg/rtt/layout"
)

// Ring is a view of one channel: its descriptor and the memory it points to.
// The zero Ring is an inactive channel which accepts and yields nothing.
type Ring struct {
	desc *layout.Channel
	buf  []byte
}

// New binds a descriptor to its buffer. len(buf) must equal the descriptor size.
func New(desc *layout.Channel, buf []byte) Ring {
	return Ring{desc: desc, buf: buf}
}

// Desc returns the descriptor.
func (r Ring) Desc() *layout.Channel {
	return r.desc
}

// Size returns the buffer size.
func (r Ring) Size() int {
	return len(r.buf)
}

// Usable returns the maximum number of unread bytes the buffer can hold.
func (r Ring) Usable() int {
	if len(r.buf) == 0 {
		return 0
	}
	return len(r.buf) - 1
}

// Mode returns the mode currently stored in the descriptor flags.
func (r Ring) Mode() layout.Mode {
	if r.desc == nil {
		return layout.ModeNoBlockSkip
	}
	return r.desc.Mode()
}

// Used returns the number of unread bytes.
func (r Ring) Used() int {
	if r.desc == nil {
		return 0
	}
	used, _ := r.used(r.desc.WriteOffset(), r.desc.ReadOffset())
	return used
}

// Free returns the number of bytes a write can add without evicting.
func (r Ring) Free() int {
	if r.desc == nil {
		return 0
	}
	return r.free(r.desc.WriteOffset(), r.desc.ReadOffset())
}

// used returns the distance from rd to wr. ok is false if either offset is
// outside the buffer, which only a misbehaving peer can cause.
func (r Ring) used(wr, rd int) (used int, ok bool) {
	size := len(r.buf)
	if wr < 0 || wr >= size || rd < 0 || rd >= size {
		return 0, false
	}
	if wr >= rd {
		return wr - rd, true
	}
	return size - rd + wr, true
}

// free returns the free space seen by the producer. An invalid read offset
// is treated as a full buffer.
func (r Ring) free(wr, rd int) int {
	used, ok := r.used(wr, rd)
	if !ok {
		return 0
	}
	return len(r.buf) - 1 - used
}

// Write writes p according to the current mode and returns the number of
// bytes accepted. ModeBlockIfFull makes a single pass like ModeNoBlockTrim;
// waiting for room is left to the caller.
func (r Ring) Write(p []byte) int {
	switch r.Mode() {
	case layout.ModeNoBlockSkip:
		return r.WriteSkip(p)
	case layout.ModeOverwrite:
		return r.WriteOverwrite(p)
	default:
		return r.WriteTrim(p)
	}
}

// WriteSkip writes all of p or nothing.
func (r Ring) WriteSkip(p []byte) int {
	if r.desc == nil || len(p) == 0 {
		return 0
	}
	wr := r.desc.WriteOffset()
	if len(p) > r.free(wr, r.desc.ReadOffset()) {
		return 0
	}
	r.publish(wr, p)
	return len(p)
}

// WriteTrim writes the prefix of p that fits and drops the rest.
func (r Ring) WriteTrim(p []byte) int {
	if r.desc == nil || len(p) == 0 {
		return 0
	}
	wr := r.desc.WriteOffset()
	n := r.free(wr, r.desc.ReadOffset())
	if n == 0 {
		return 0
	}
	if n > len(p) {
		n = len(p)
	}
	r.publish(wr, p[:n])
	return n
}

// WriteOverwrite writes p, evicting the oldest unread bytes as needed.
// When p is longer than the usable capacity only its tail is kept. All of p
// is reported as accepted.
func (r Ring) WriteOverwrite(p []byte) int {
	if r.desc == nil || len(p) == 0 {
		return 0
	}
	size := len(r.buf)
	if size < 2 {
		return 0
	}
	wr := r.desc.WriteOffset()
	if wr < 0 || wr >= size {
		return 0
	}
	data := p
	if usable := size - 1; len(data) > usable {
		data = data[len(data)-usable:]
	}
	// The consumer may advance the read offset concurrently; retry until the
	// eviction lands on the value we computed it from.
	for {
		rd := r.desc.ReadOffset()
		used, ok := r.used(wr, rd)
		if !ok {
			// reset a corrupted read offset to empty
			r.desc.CompareAndSwapReadOffset(rd, wr)
			continue
		}
		evict := len(data) - (size - 1 - used)
		if evict <= 0 {
			break
		}
		if r.desc.CompareAndSwapReadOffset(rd, (rd+evict)%size) {
			break
		}
	}
	r.publish(wr, data)
	return len(p)
}

// publish copies p at wr and then stores the new write offset.
// The caller guarantees len(p) fits.
func (r Ring) publish(wr int, p []byte) {
	n := copy(r.buf[wr:], p) // tail of the buffer
	copy(r.buf, p[n:])       // wraparound to the head
	r.desc.SetWriteOffset((wr + len(p)) % len(r.buf))
}

// Read copies up to len(p) unread bytes into p and returns the count.
// It never blocks; 0 means empty.
func (r Ring) Read(p []byte) int {
	if r.desc == nil || len(p) == 0 {
		return 0
	}
	rd := r.desc.ReadOffset()
	n, ok := r.used(r.desc.WriteOffset(), rd)
	if !ok || n == 0 {
		return 0
	}
	if n > len(p) {
		n = len(p)
	}
	k := copy(p[:n], r.buf[rd:])
	copy(p[k:n], r.buf)
	r.desc.SetReadOffset((rd + n) % len(r.buf))
	return n
}
