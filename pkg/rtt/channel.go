package rtt

import (
	"context"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/robotalks/rtt.go/pkg/rtt/ring"
)

// UpChannel writes to one up channel from a single context.
// It is a cheap value; copies refer to the same slot.
// The zero UpChannel drops everything written to it.
type UpChannel struct {
	ring    ring.Ring
	index   int
	timeout time.Duration
}

// Index returns the slot index in the up table.
func (c UpChannel) Index() int {
	return c.index
}

// Mode returns the current buffer-full mode.
func (c UpChannel) Mode() Mode {
	return c.ring.Mode()
}

// SetMode changes the buffer-full mode.
func (c UpChannel) SetMode(mode Mode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	if desc := c.ring.Desc(); desc != nil {
		desc.SetMode(mode)
	}
	return nil
}

// Available returns the number of bytes the probe has not read yet.
func (c UpChannel) Available() int {
	return c.ring.Used()
}

// Free returns the number of bytes that fit without waiting or dropping.
func (c UpChannel) Free() int {
	return c.ring.Free()
}

// Capacity returns the usable size of the buffer.
func (c UpChannel) Capacity() int {
	return c.ring.Usable()
}

// WithBlockTimeout returns a copy whose blocking writes give up after d.
// Zero waits forever.
func (c UpChannel) WithBlockTimeout(d time.Duration) UpChannel {
	c.timeout = d
	return c
}

// Shared returns a handle which serializes writers with gate.
// A nil gate gets a private mutex.
func (c UpChannel) Shared(gate Gate) SharedUpChannel {
	if gate == nil {
		gate = &sync.Mutex{}
	}
	return SharedUpChannel{up: c, gate: gate}
}

// Write writes p and returns the number of bytes accepted.
//
// ModeNoBlockSkip accepts all of p or nothing, ModeNoBlockTrim the prefix
// that fits and ModeOverwrite always all of p. ModeBlockIfFull waits until
// all of p is in, or until the block timeout elapses and returns the bytes
// written so far.
func (c UpChannel) Write(p []byte) int {
	if c.ring.Mode() != ModeBlockIfFull {
		n := c.ring.Write(p)
		dbgWrite(len(p), n)
		return n
	}
	n := c.ring.WriteTrim(p)
	if n < len(p) {
		dbgBlockWait()
		var deadline time.Time
		if c.timeout > 0 {
			deadline = time.Now().Add(c.timeout)
		}
		for n < len(p) {
			if !deadline.IsZero() && time.Now().After(deadline) {
				dbgTimeout()
				break
			}
			runtime.Gosched()
			n += c.ring.WriteTrim(p[n:])
		}
	}
	dbgWrite(len(p), n)
	return n
}

// WriteContext is Write with ctx bounding the wait of ModeBlockIfFull
// instead of the block timeout. Other modes never wait and ignore ctx.
func (c UpChannel) WriteContext(ctx context.Context, p []byte) (int, error) {
	if c.ring.Mode() != ModeBlockIfFull {
		return c.Write(p), nil
	}
	n := c.ring.WriteTrim(p)
	if n < len(p) {
		dbgBlockWait()
	}
	for n < len(p) {
		select {
		case <-ctx.Done():
			dbgTimeout()
			dbgWrite(len(p), n)
			return n, ctx.Err()
		default:
		}
		runtime.Gosched()
		n += c.ring.WriteTrim(p[n:])
	}
	dbgWrite(len(p), n)
	return n, nil
}

// Flush waits until the probe has read everything or ctx is done.
func (c UpChannel) Flush(ctx context.Context) error {
	for c.ring.Used() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		runtime.Gosched()
	}
	return nil
}

// Writer adapts the channel to io.Writer for formatting code.
// Like the channel itself it never fails: dropped bytes are still reported
// as written.
func (c UpChannel) Writer() io.Writer {
	return upWriter{c}
}

type upWriter struct {
	ch interface{ Write([]byte) int }
}

func (w upWriter) Write(p []byte) (int, error) {
	w.ch.Write(p)
	return len(p), nil
}

// SharedUpChannel writes to an up channel from several contexts. Each Write
// holds the gate from the free space check to the offset update, so writes
// never interleave.
type SharedUpChannel struct {
	up   UpChannel
	gate Gate
}

// Index returns the slot index in the up table.
func (c SharedUpChannel) Index() int {
	return c.up.index
}

// Mode returns the current buffer-full mode.
func (c SharedUpChannel) Mode() Mode {
	return c.up.Mode()
}

// SetMode changes the buffer-full mode.
func (c SharedUpChannel) SetMode(mode Mode) error {
	return c.up.SetMode(mode)
}

// Available returns the number of bytes the probe has not read yet.
func (c SharedUpChannel) Available() int {
	return c.up.Available()
}

// Free returns the number of bytes that fit without waiting or dropping.
func (c SharedUpChannel) Free() int {
	return c.up.Free()
}

// Capacity returns the usable size of the buffer.
func (c SharedUpChannel) Capacity() int {
	return c.up.Capacity()
}

// WithBlockTimeout returns a copy whose blocking writes give up after d.
func (c SharedUpChannel) WithBlockTimeout(d time.Duration) SharedUpChannel {
	c.up.timeout = d
	return c
}

// Write is UpChannel.Write under the gate. In ModeBlockIfFull the gate is
// held while waiting, which stalls the other writers too.
// The zero SharedUpChannel has no gate and drops everything.
func (c SharedUpChannel) Write(p []byte) int {
	if c.gate == nil {
		return c.up.Write(p)
	}
	c.gate.Lock()
	defer c.gate.Unlock()
	return c.up.Write(p)
}

// WriteContext is UpChannel.WriteContext under the gate.
func (c SharedUpChannel) WriteContext(ctx context.Context, p []byte) (int, error) {
	if c.gate == nil {
		return c.up.WriteContext(ctx, p)
	}
	c.gate.Lock()
	defer c.gate.Unlock()
	return c.up.WriteContext(ctx, p)
}

// Flush waits until the probe has read everything or ctx is done.
func (c SharedUpChannel) Flush(ctx context.Context) error {
	return c.up.Flush(ctx)
}

// Writer adapts the channel to io.Writer.
func (c SharedUpChannel) Writer() io.Writer {
	return upWriter{c}
}

// DownChannel reads from one down channel.
// The zero DownChannel is always empty.
type DownChannel struct {
	ring  ring.Ring
	index int
}

// Index returns the slot index in the down table.
func (c DownChannel) Index() int {
	return c.index
}

// Available returns the number of bytes ready to read.
func (c DownChannel) Available() int {
	return c.ring.Used()
}

// Read copies up to len(p) bytes into p. It never blocks and returns 0 when
// nothing arrived.
func (c DownChannel) Read(p []byte) int {
	n := c.ring.Read(p)
	dbgRead(n)
	return n
}

// ReadContext polls until at least one byte is read or ctx is done.
func (c DownChannel) ReadContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if n := c.Read(p); n > 0 {
			return n, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		runtime.Gosched()
	}
}

// Reader adapts the channel to io.Reader. Read blocks until data arrives.
func (c DownChannel) Reader() io.Reader {
	return downReader{c}
}

type downReader struct {
	ch DownChannel
}

func (r downReader) Read(p []byte) (int, error) {
	return r.ch.ReadContext(context.Background(), p)
}
