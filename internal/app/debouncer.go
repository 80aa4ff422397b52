package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
)

// EvictFunc runs the full eviction sequence for a connection whose
// grace window elapsed without a reconnect.
type EvictFunc func(conn core.ConnID)

type pendingEviction struct {
	timer *time.Timer
	fired bool
}

// Debouncer delays eviction of a dropped connection by a grace window,
// cancellable by a rebind. Pending evictions are keyed by connection id
// so cancellation is a direct lookup. The fired flag and cancellation
// share one mutex: a cancel that loses the race to a firing timer
// observes fired and reports failure, never a half-run eviction.
type Debouncer struct {
	mu      sync.Mutex
	grace   time.Duration
	pending map[core.ConnID]*pendingEviction
	evict   EvictFunc
}

func NewDebouncer(grace time.Duration, evict EvictFunc) *Debouncer {
	return &Debouncer{
		grace:   grace,
		pending: make(map[core.ConnID]*pendingEviction),
		evict:   evict,
	}
}

// OnDisconnect schedules eviction after the grace window. Idempotent:
// redundant disconnect signals for a connection already pending do not
// stack timers.
func (d *Debouncer) OnDisconnect(conn core.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pending[conn]; ok {
		return
	}
	p := &pendingEviction{}
	p.timer = time.AfterFunc(d.grace, func() { d.fire(conn) })
	d.pending[conn] = p
	log.Info().Str("module", "app.debounce").Str("conn", string(conn)).Dur("grace", d.grace).Msg("eviction scheduled")
}

func (d *Debouncer) fire(conn core.ConnID) {
	d.mu.Lock()
	p, ok := d.pending[conn]
	if !ok || p.fired {
		d.mu.Unlock()
		return
	}
	p.fired = true
	delete(d.pending, conn)
	d.mu.Unlock()

	log.Info().Str("module", "app.debounce").Str("conn", string(conn)).Msg("grace window elapsed, evicting")
	d.evict(conn)
}

// Cancel withdraws a pending eviction. Returns false when none is
// pending or the eviction already began irrevocably; the caller then
// performs a fresh join instead of a rebind.
func (d *Debouncer) Cancel(conn core.ConnID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[conn]
	if !ok || p.fired {
		return false
	}
	p.timer.Stop()
	delete(d.pending, conn)
	log.Info().Str("module", "app.debounce").Str("conn", string(conn)).Msg("eviction cancelled")
	return true
}

// Pending reports whether a connection awaits eviction.
func (d *Debouncer) Pending(conn core.ConnID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[conn]
	return ok
}
