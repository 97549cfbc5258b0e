package game

import (
	"sync"
	"time"
)

// TurnTimers keeps at most one pending defense deadline per room in this
// process. The callback re-checks the turn number, so a timer that loses a race
// with a manual end of turn does nothing.
type TurnTimers struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	now    func() time.Time
	closed bool
}

func NewTurnTimers() *TurnTimers {
	return &TurnTimers{timers: make(map[string]*time.Timer), now: time.Now}
}

func (t *TurnTimers) Schedule(roomID string, at time.Time, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if existing, ok := t.timers[roomID]; ok {
		existing.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(at.Sub(t.now()), func() {
		t.mu.Lock()
		if t.timers[roomID] == timer {
			delete(t.timers, roomID)
		}
		t.mu.Unlock()
		fire()
	})
	t.timers[roomID] = timer
}

func (t *TurnTimers) Cancel(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[roomID]; ok {
		timer.Stop()
		delete(t.timers, roomID)
	}
}

// Pending reports how many rooms have a deadline scheduled.
func (t *TurnTimers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// Stop cancels every pending timer and ignores later Schedule calls.
func (t *TurnTimers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
