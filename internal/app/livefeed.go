package app

import (
	"sync"
	"time"
)

// Pulse is the aggregate outcome snapshot for one challenge date: how many
// players finished, and how. It carries no per-user data and never any
// answer material, so it is safe to broadcast before a viewer has played.
type Pulse struct {
	Date      time.Time `json:"date"`
	Played    int       `json:"played"`
	Solved    int       `json:"solved"`
	Exhausted int       `json:"exhausted"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LiveFeed fans today's aggregate results out to subscribers as terminal
// outcomes land. Counters reset when the challenge date rolls over.
type LiveFeed struct {
	now func() time.Time

	mu          sync.Mutex
	date        time.Time
	solved      int
	exhausted   int
	subscribers map[chan Pulse]struct{}
}

// NewLiveFeed returns an empty feed.
func NewLiveFeed() *LiveFeed {
	return newLiveFeedWithClock(time.Now)
}

// newLiveFeedWithClock allows deterministic timestamps in tests.
func newLiveFeedWithClock(now func() time.Time) *LiveFeed {
	return &LiveFeed{
		now:         now,
		subscribers: make(map[chan Pulse]struct{}),
	}
}

// RecordTerminal folds one terminal ledger outcome into the pulse and
// broadcasts the new snapshot.
func (f *LiveFeed) RecordTerminal(date time.Time, solved bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.date.Equal(date) {
		f.date = date
		f.solved = 0
		f.exhausted = 0
	}
	if solved {
		f.solved++
	} else {
		f.exhausted++
	}
	f.broadcastLocked()
}

// Subscribe returns a channel receiving pulse updates, primed with the
// current snapshot. The caller must invoke cancel to avoid leaks.
func (f *LiveFeed) Subscribe() (<-chan Pulse, func()) {
	ch := make(chan Pulse, 8)

	// Priming under the lock keeps every send to a subscriber channel
	// serialized with broadcast, so the drain-then-send fallback in
	// broadcastLocked can never find its freed slot re-taken.
	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	ch <- f.snapshotLocked()
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *LiveFeed) broadcastLocked() {
	pulse := f.snapshotLocked()
	for ch := range f.subscribers {
		select {
		case ch <- pulse:
		default:
			// Drop the stale pulse so a slow reader never blocks broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- pulse
		}
	}
}

func (f *LiveFeed) snapshotLocked() Pulse {
	return Pulse{
		Date:      f.date,
		Played:    f.solved + f.exhausted,
		Solved:    f.solved,
		Exhausted: f.exhausted,
		UpdatedAt: f.now(),
	}
}
