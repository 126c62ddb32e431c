package livesync

import (
	"context"
	"sync"
	"time"
)

// Refresher is the optional auto-refresh loop: on a fixed interval it
// re-fetches the assessment list and, when one is selected, its findings.
// Transient errors are swallowed by the underlying refresh helpers.
type Refresher struct {
	tracker  *Tracker
	interval time.Duration
	root     context.Context

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewRefresher(ctx context.Context, tracker *Tracker, interval time.Duration) *Refresher {
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Refresher{tracker: tracker, interval: interval, root: ctx}
}

// Toggle flips the loop on or off and reports the new state.
func (r *Refresher) Toggle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
		return false
	}
	ctx, cancel := context.WithCancel(r.root)
	r.cancel = cancel
	go r.run(ctx)
	return true
}

// Running reports whether the loop is active.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Stop is idempotent.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Refresher) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tracker.RefreshList(ctx)
			if selected := r.tracker.store.Selected(); selected != "" {
				r.tracker.RefreshFindings(ctx, selected)
			}
		}
	}
}
