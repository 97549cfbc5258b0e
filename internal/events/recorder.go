package events

import (
	"context"
	"sync"

	"github.com/thereayou/hotseat/internal/models"
)

// Recorder keeps announcements in memory. Tests use it to assert on what was emitted.
type Recorder struct {
	mu      sync.Mutex
	updated []*models.Room
	closed  []string
	Err     error
}

func (r *Recorder) AnnounceRoomUpdated(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, room)
	return r.Err
}

func (r *Recorder) AnnounceRoomClosed(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, roomID)
	return r.Err
}

func (r *Recorder) Updated() []*models.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Room(nil), r.updated...)
}

func (r *Recorder) Closed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

// LastUpdated returns the most recent room-updated payload, or nil.
func (r *Recorder) LastUpdated() *models.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updated) == 0 {
		return nil
	}
	return r.updated[len(r.updated)-1]
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = nil
	r.closed = nil
}
