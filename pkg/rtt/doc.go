// Package rtt implements the target side of Real-Time Transfer.
//
// RTT moves data between firmware and a debug probe through ring buffers in
// RAM. The probe reads and writes that memory over the debug interface while
// the target keeps running, so the target never waits for I/O: a write is a
// copy into a buffer plus one offset store.
//
// A ControlBlock holds the tables of up (target to probe) and down (probe to
// target) channels and starts with an id the probe scans for. Channels are
// registered once at startup and never released:
//
//	cb := rtt.Default()
//	term, err := cb.RegisterUp("Terminal", make([]byte, 1024), rtt.ModeNoBlockSkip)
//	if err != nil {
//		// fall back to the zero UpChannel, which drops everything
//	}
//	term.Write([]byte("hello\n"))
//
// UpChannel assumes a single writer. When several goroutines or interrupt
// handlers write the same channel, wrap it with Shared and a Gate.
//
// With ModeBlockIfFull a write spins until the probe drains the buffer. If no
// probe is attached that is forever, so never use it on latency critical paths.
package rtt
