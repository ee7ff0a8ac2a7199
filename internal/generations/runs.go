package generations

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// runHandle is the in-memory state of one active run: its cancellation hook
// and the monotonic progress value the status endpoint reports.
type runHandle struct {
	userID   uuid.UUID
	cancel   context.CancelFunc
	mu       sync.Mutex
	progress int
}

func (h *runHandle) setProgress(value int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if value > h.progress {
		h.progress = value
	}
}

func (h *runHandle) currentProgress() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.progress
}

// runRegistry tracks active runs by generation ID.
type runRegistry struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*runHandle
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[uuid.UUID]*runHandle)}
}

func (r *runRegistry) register(generationID, userID uuid.UUID, cancel context.CancelFunc) *runHandle {
	handle := &runHandle{userID: userID, cancel: cancel}
	r.mu.Lock()
	r.runs[generationID] = handle
	r.mu.Unlock()
	return handle
}

func (r *runRegistry) deregister(generationID uuid.UUID) {
	r.mu.Lock()
	delete(r.runs, generationID)
	r.mu.Unlock()
}

func (r *runRegistry) get(generationID uuid.UUID) (*runHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, ok := r.runs[generationID]
	return handle, ok
}

func (r *runRegistry) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

// stopAll cancels every active run.
func (r *runRegistry) stopAll() {
	r.mu.Lock()
	handles := make([]*runHandle, 0, len(r.runs))
	for _, handle := range r.runs {
		handles = append(handles, handle)
	}
	r.mu.Unlock()

	for _, handle := range handles {
		handle.cancel()
	}
}
