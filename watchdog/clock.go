package watchdog

import "time"

// clockWrapper is injected so tests can control elapsed time without
// sleeping real seconds, the same pattern the capture engine's teacher
// package uses for its own reassembly timers.
type clockWrapper interface {
	Now() time.Time
}

type realClock struct{}

func (*realClock) Now() time.Time { return time.Now() }
