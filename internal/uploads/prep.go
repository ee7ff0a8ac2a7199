package uploads

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// prepScheduler owns the per-asset preparation timers. Each model upload gets
// one timer; rescheduling an asset replaces its pending timer.
type prepScheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[uuid.UUID]*time.Timer
	onDone func(assetID uuid.UUID)
}

func newPrepScheduler(delay time.Duration, onDone func(assetID uuid.UUID)) *prepScheduler {
	return &prepScheduler{
		delay:  delay,
		timers: make(map[uuid.UUID]*time.Timer),
		onDone: onDone,
	}
}

// Schedule arms the preparation timer for the asset.
func (p *prepScheduler) Schedule(assetID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.timers[assetID]; ok {
		existing.Stop()
	}
	p.timers[assetID] = time.AfterFunc(p.delay, func() {
		p.mu.Lock()
		delete(p.timers, assetID)
		p.mu.Unlock()
		p.onDone(assetID)
	})
}

// Cancel stops the pending timer for the asset, if any.
func (p *prepScheduler) Cancel(assetID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if timer, ok := p.timers[assetID]; ok {
		timer.Stop()
		delete(p.timers, assetID)
	}
}

// StopAll cancels every pending timer.
func (p *prepScheduler) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, timer := range p.timers {
		timer.Stop()
		delete(p.timers, id)
	}
}

// Pending reports how many timers are armed.
func (p *prepScheduler) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.timers)
}
