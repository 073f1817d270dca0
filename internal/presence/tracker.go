// Package presence tracks machine liveness from periodic pings.
//
// A machine is online while its last ping is younger than the tracker's
// threshold. State is in memory only and lost on restart.
package presence

import (
	"sync"
	"time"
)

const (
	// DefaultOnlineThreshold is how recent a ping must be for a machine to count as online
	DefaultOnlineThreshold = 60 * time.Second

	// UnknownMachine is used when a ping does not name its machine
	UnknownMachine = "unknown"
)

// Tracker records the last ping time of named machines
type Tracker struct {
	mu        sync.RWMutex
	lastSeen  map[string]time.Time
	threshold time.Duration
	now       func() time.Time
}

// NewTracker creates a tracker using DefaultOnlineThreshold and the wall clock
func NewTracker() *Tracker {
	return &Tracker{
		lastSeen:  make(map[string]time.Time),
		threshold: DefaultOnlineThreshold,
		now:       time.Now,
	}
}

// WithThreshold sets the online threshold and returns the tracker
func (t *Tracker) WithThreshold(d time.Duration) *Tracker {
	if d > 0 {
		t.threshold = d
	}
	return t
}

// WithClock replaces the time source and returns the tracker
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	if now != nil {
		t.now = now
	}
	return t
}

// RecordPing marks name as seen now and returns the stored timestamp
func (t *Tracker) RecordPing(name string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Read the clock under the lock so the newest ping is stored last
	now := t.now()
	t.lastSeen[name] = now
	return now
}

// IsOnline reports whether name pinged within the threshold.
// Names that never pinged are offline.
func (t *Tracker) IsOnline(name string) bool {
	t.mu.RLock()
	last, ok := t.lastSeen[name]
	t.mu.RUnlock()

	if !ok {
		return false
	}
	return t.now().Sub(last) < t.threshold
}

// LastSeen returns the last ping time for name
func (t *Tracker) LastSeen(name string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	last, ok := t.lastSeen[name]
	return last, ok
}

// Len returns the number of machines that have ever pinged
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lastSeen)
}
