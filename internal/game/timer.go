package game

import (
	"context"
	"log"
	"time"

	"github.com/scythe504/mission-backend/internal"
)

// =============================================================================
// RETENTION
// =============================================================================

// Run evicts expired sessions every interval until ctx is cancelled. It
// returns immediately when retention is disabled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if e.retention <= 0 || interval <= 0 {
		log.Printf("[Run] retention disabled, ended games are kept")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("[Run] janitor started: retention=%v interval=%v", e.retention, interval)

	for {
		select {
		case <-ticker.C:
			if n := e.EvictExpired(e.now()); n > 0 {
				log.Printf("[Run] evicted %d ended game(s)", n)
			}
		case <-ctx.Done():
			log.Printf("[Run] janitor stopping: %v", ctx.Err())
			return
		}
	}
}

// EvictExpired drops every session that ended at least retention before now
// and emits evict with its final summary. It returns the number evicted.
func (e *Engine) EvictExpired(now time.Time) int {
	if e.retention <= 0 {
		return 0
	}

	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	var pending []pendingEvent
	for id, s := range e.sessions {
		if s.state != internal.StateEnd || now.Sub(s.endedAt) < e.retention {
			continue
		}
		pending = append(pending, pendingEvent{EventEvict, s.summary()})
		delete(e.sessions, id)
	}
	e.mu.Unlock()

	e.emit(pending)
	return len(pending)
}
