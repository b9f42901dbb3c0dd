package cities

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// ErrDuplicate is returned by Add when the exact name is already tracked.
var ErrDuplicate = errors.New("city already tracked")

// List is the tracked city list, most-recently-added first.
// Names are unique by exact (case-sensitive) match.
type List struct {
	mu     sync.RWMutex
	names  []string
	maxLen int
}

// NewList returns a List seeded with initial in the given order. Invalid or duplicate
// seeds are skipped. maxLen bounds city name length in runes (0 = unbounded).
func NewList(initial []string, maxLen int) *List {
	l := &List{maxLen: maxLen}
	for _, name := range initial {
		clean, err := validation.ValidateCityName(name, maxLen)
		if err != nil || l.indexLocked(clean) >= 0 {
			continue
		}
		l.names = append(l.names, clean)
	}
	return l
}

// Add validates name and prepends it. Returns the stored (trimmed) name.
// A rejected add leaves the list untouched.
func (l *List) Add(name string) (string, error) {
	clean, err := validation.ValidateCityName(name, l.maxLen)
	if err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexLocked(clean) >= 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicate, clean)
	}
	names := make([]string, 0, len(l.names)+1)
	names = append(names, clean)
	l.names = append(names, l.names...)
	return clean, nil
}

// Remove drops every exact match of name. Returns false when nothing matched.
func (l *List) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.names[:0:0]
	for _, n := range l.names {
		if n != name {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(l.names) {
		return false
	}
	l.names = kept
	return true
}

// Snapshot returns a copy of the current list.
func (l *List) Snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Len returns the number of tracked cities.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.names)
}

func (l *List) indexLocked(name string) int {
	for i, n := range l.names {
		if n == name {
			return i
		}
	}
	return -1
}
