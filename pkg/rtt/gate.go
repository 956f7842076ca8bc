package rtt

// Gate is the critical section guarding a channel written from several
// contexts. It is supplied by the platform: *sync.Mutex serves goroutines,
// InterruptGate (TinyGo) also excludes interrupt handlers on a single core.
//
// Lock may wait but must not fail. The probe is never behind the gate.
type Gate interface {
	Lock()
	Unlock()
}
