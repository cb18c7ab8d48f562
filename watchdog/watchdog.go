// Package watchdog owns the process-wide mutable state shared across
// capture generations (the generation counter, the last-traffic timestamp,
// the dedup cache, and the discovered-fields set) and the liveness/sweep
// ticker that watches over a single capture generation.
package watchdog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/resonance-relay/sniffer/dedup"
	"github.com/resonance-relay/sniffer/protocol"
)

const silenceTimeout = 15 * time.Second

// tickInterval is a var, not a const, so tests can shorten it rather than
// waiting on real 5 s ticks; production code never changes it.
var tickInterval = 5 * time.Second

// State is the single home for the shared mutable state the base spec
// otherwise leaves as free-floating globals: the generation counter, the
// last-traffic clock, the emission dedup gate, and the discovered-fields
// set. All fields are safe for concurrent use.
type State struct {
	generation  atomic.Uint64
	lastTraffic atomic.Int64 // unix nanoseconds; 0 means "never touched"

	gate   *dedup.Gate
	fields *protocol.DiscoveredFields

	clock clockWrapper
}

// NewState builds a State. onEntityRemoved, if non-nil, is invoked with the
// dedup key of every cache entry a sweep evicts.
func NewState(onEntityRemoved func(key string)) *State {
	return &State{
		gate:   dedup.NewGate(onEntityRemoved),
		fields: protocol.NewDiscoveredFields(),
		clock:  &realClock{},
	}
}

// Gate returns the dedup gate shared by every capture generation.
func (s *State) Gate() *dedup.Gate { return s.gate }

// Fields returns the discovered-fields set shared by every capture
// generation.
func (s *State) Fields() *protocol.DiscoveredFields { return s.fields }

// Bump increments the generation counter and returns the new value. Call
// this once at the start of each capture run; every older watchdog/capture
// goroutine observes the mismatch and retires cooperatively.
func (s *State) Bump() uint64 {
	return s.generation.Add(1)
}

// Generation returns the current generation.
func (s *State) Generation() uint64 {
	return s.generation.Load()
}

// Touch records that traffic was just observed, resetting the silence
// clock. Called once per forwarded capture payload.
func (s *State) Touch() {
	s.lastTraffic.Store(s.clock.Now().UnixNano())
}

// Snapshot is a point-in-time, race-free read of the state's liveness
// fields, handed out for tests and diagnostics.
type Snapshot struct {
	Generation  uint64
	LastTraffic time.Time
}

func (s *State) Snapshot() Snapshot {
	last := s.lastTraffic.Load()
	snap := Snapshot{Generation: s.generation.Load()}
	if last != 0 {
		snap.LastTraffic = time.Unix(0, last)
	}
	return snap
}

// Run drives one capture generation's liveness ticker until ctx is
// cancelled or state's generation advances past myGeneration, at which
// point it exits. emitStatus is invoked with "warning" after 15 s of
// silence; every 60 s it calls state's dedup gate Sweep to drop stale
// entries.
func Run(ctx context.Context, state *State, myGeneration uint64, emitStatus func(status string)) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var sinceSweep time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if state.Generation() != myGeneration {
				return
			}

			last := state.lastTraffic.Load()
			if last != 0 {
				silentFor := state.clock.Now().Sub(time.Unix(0, last))
				if silentFor > silenceTimeout {
					if emitStatus != nil {
						emitStatus("warning")
					}
					// Suppress re-firing every tick until traffic resumes.
					state.Touch()
				}
			}

			sinceSweep += tickInterval
			if sinceSweep >= dedup.SweepInterval {
				sinceSweep = 0
				state.gate.Sweep()
			}
		}
	}
}
