package protocol

import (
	"sync"

	"github.com/resonance-relay/sniffer/sets"
)

// DiscoveredFields is a process-wide record of protobuf field numbers seen
// on port 5003 that the decoder did not otherwise route, so the decoder can
// log each one exactly once instead of flooding the log on every frame.
type DiscoveredFields struct {
	mu   sync.Mutex
	seen sets.OrderedSet[uint32]
}

func NewDiscoveredFields() *DiscoveredFields {
	return &DiscoveredFields{seen: sets.NewOrderedSet[uint32]()}
}

// Note reports whether fieldNum is seen here for the first time (true) or
// was already known (false). It records fieldNum as known regardless, so a
// caller can use the return value to decide whether to log.
func (d *DiscoveredFields) Note(fieldNum uint32) (firstSeen bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen.Contains(fieldNum) {
		return false
	}
	d.seen.Insert(fieldNum)
	return true
}

func (d *DiscoveredFields) Snapshot() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen.AsSlice()
}
