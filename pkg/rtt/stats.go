//go:build rttdebug

package rtt

import "sync/atomic"

// Stats holds handle counters since the last reset, summed over all channels.
type Stats struct {
	Writes       uint32 // Write calls on up channels
	BytesWritten uint32 // bytes accepted
	Dropped      uint32 // bytes not accepted
	BlockWaits   uint32 // writes that had to wait for room
	Timeouts     uint32 // blocking writes that gave up
	Reads        uint32 // down channel reads that returned data
	BytesRead    uint32 // bytes read from down channels
}

var stats Stats

func dbgWrite(want, n int) {
	atomic.AddUint32(&stats.Writes, 1)
	atomic.AddUint32(&stats.BytesWritten, uint32(n))
	if n < want {
		atomic.AddUint32(&stats.Dropped, uint32(want-n))
	}
}

func dbgBlockWait() {
	atomic.AddUint32(&stats.BlockWaits, 1)
}

func dbgTimeout() {
	atomic.AddUint32(&stats.Timeouts, 1)
}

func dbgRead(n int) {
	if n > 0 {
		atomic.AddUint32(&stats.Reads, 1)
		atomic.AddUint32(&stats.BytesRead, uint32(n))
	}
}

// DebugReset zeroes the counters.
func DebugReset() {
	atomic.StoreUint32(&stats.Writes, 0)
	atomic.StoreUint32(&stats.BytesWritten, 0)
	atomic.StoreUint32(&stats.Dropped, 0)
	atomic.StoreUint32(&stats.BlockWaits, 0)
	atomic.StoreUint32(&stats.Timeouts, 0)
	atomic.StoreUint32(&stats.Reads, 0)
	atomic.StoreUint32(&stats.BytesRead, 0)
}

// DebugStats returns a copy of the counters.
func DebugStats() Stats {
	return Stats{
		Writes:       atomic.LoadUint32(&stats.Writes),
		BytesWritten: atomic.LoadUint32(&stats.BytesWritten),
		Dropped:      atomic.LoadUint32(&stats.Dropped),
		BlockWaits:   atomic.LoadUint32(&stats.BlockWaits),
		Timeouts:     atomic.LoadUint32(&stats.Timeouts),
		Reads:        atomic.LoadUint32(&stats.Reads),
		BytesRead:    atomic.LoadUint32(&stats.BytesRead),
	}
}
