package traffic

import (
	"sync"
	"time"
)

type outcome uint8

const (
	outcomeSuccess outcome = iota
	outcomeError
	outcomeDenied
)

type event struct {
	at   time.Time
	kind outcome
}

// Tracker keeps a sliding window of upstream fetch outcomes and rate-limit denials.
// It feeds the degraded status on /health. The zero value is not usable; call NewTracker.
type Tracker struct {
	mu     sync.Mutex
	window time.Duration
	events []event
	now    func() time.Time
}

// NewTracker returns a Tracker that retains events for window.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = time.Minute
	}
	return &Tracker{window: window, now: time.Now}
}

// RecordSuccess records a successful city fetch.
func (t *Tracker) RecordSuccess() { t.record(outcomeSuccess) }

// RecordError records a failed city fetch.
func (t *Tracker) RecordError() { t.record(outcomeError) }

// RecordDenied records a request rejected by the rate limiter.
func (t *Tracker) RecordDenied() { t.record(outcomeDenied) }

func (t *Tracker) record(k outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, kind: k})
	t.pruneLocked(now)
}

// ErrorRate returns (errors, total) for fetches inside the window. Denials are excluded.
func (t *Tracker) ErrorRate() (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(t.now())
	for _, e := range t.events {
		switch e.kind {
		case outcomeError:
			errors++
			total++
		case outcomeSuccess:
			total++
		}
	}
	return errors, total
}

// DenialCount returns the number of rate-limit denials inside the window.
func (t *Tracker) DenialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(t.now())
	n := 0
	for _, e := range t.events {
		if e.kind == outcomeDenied {
			n++
		}
	}
	return n
}

// Degraded reports whether the fetch error percentage inside the window is at or above
// thresholdPct. A window without errors is never degraded.
func (t *Tracker) Degraded(thresholdPct float64) bool {
	errs, total := t.ErrorRate()
	if errs == 0 {
		return false
	}
	return float64(errs)*100/float64(total) >= thresholdPct
}

// pruneLocked drops events older than the window. Events are appended in time order.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for ; i < len(t.events) && t.events[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
