package lifecycle

import "sync/atomic"

// Phase is the process lifecycle stage reported by /health.
type Phase int32

const (
	// Starting lasts until the initial dashboard batch has settled.
	Starting Phase = iota
	Serving
	// Draining is set on SIGTERM/SIGINT; /health returns 503 so no new traffic arrives.
	Draining
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Serving:
		return "serving"
	case Draining:
		return "shutting-down"
	default:
		return "unknown"
	}
}

var phase atomic.Int32

// Set moves the process to p. Draining is terminal: later calls cannot leave it.
func Set(p Phase) {
	for {
		cur := phase.Load()
		if Phase(cur) == Draining && p != Draining {
			return
		}
		if phase.CompareAndSwap(cur, int32(p)) {
			return
		}
	}
}

// Current returns the current phase.
func Current() Phase {
	return Phase(phase.Load())
}

// IsDraining reports whether shutdown has begun.
func IsDraining() bool {
	return Current() == Draining
}

// Reset returns to Starting. For tests only.
func Reset() {
	phase.Store(int32(Starting))
}
