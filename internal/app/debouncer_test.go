package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Poker/internal/core"
)

type evictRecorder struct {
	mu    sync.Mutex
	conns []core.ConnID
}

func (e *evictRecorder) evict(conn core.ConnID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conns = append(e.conns, conn)
}

func (e *evictRecorder) evicted() []core.ConnID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.ConnID(nil), e.conns...)
}

func TestDebouncer_EvictsAfterGrace(t *testing.T) {
	r := require.New(t)
	rec := &evictRecorder{}
	d := NewDebouncer(20*time.Millisecond, rec.evict)

	// Given a dropped connection
	d.OnDisconnect("c1")
	r.True(d.Pending("c1"))

	// Then eviction runs exactly once after the grace window
	r.Eventually(func() bool {
		return len(rec.evicted()) == 1
	}, time.Second, 5*time.Millisecond)
	r.Equal([]core.ConnID{"c1"}, rec.evicted())
	r.False(d.Pending("c1"))
}

func TestDebouncer_RedundantDisconnectsDoNotStack(t *testing.T) {
	r := require.New(t)
	rec := &evictRecorder{}
	d := NewDebouncer(20*time.Millisecond, rec.evict)

	// Given redundant disconnect signals for the same connection
	d.OnDisconnect("c1")
	d.OnDisconnect("c1")
	d.OnDisconnect("c1")

	// Then a single eviction fires
	time.Sleep(60 * time.Millisecond)
	r.Equal([]core.ConnID{"c1"}, rec.evicted())
}

func TestDebouncer_CancelWithinGrace(t *testing.T) {
	r := require.New(t)
	rec := &evictRecorder{}
	d := NewDebouncer(40*time.Millisecond, rec.evict)

	d.OnDisconnect("c1")

	// When the participant reconnects within the window
	r.True(d.Cancel("c1"))

	// Then no eviction ever runs
	time.Sleep(80 * time.Millisecond)
	r.Empty(rec.evicted())
	r.False(d.Pending("c1"))
}

func TestDebouncer_CancelAfterFireFails(t *testing.T) {
	r := require.New(t)
	rec := &evictRecorder{}
	d := NewDebouncer(10*time.Millisecond, rec.evict)

	d.OnDisconnect("c1")
	r.Eventually(func() bool {
		return len(rec.evicted()) == 1
	}, time.Second, 5*time.Millisecond)

	// A late cancel reports failure so the caller falls back to a fresh join
	r.False(d.Cancel("c1"))
}

func TestDebouncer_CancelUnknownConn(t *testing.T) {
	require.False(t, NewDebouncer(time.Second, func(core.ConnID) {}).Cancel("ghost"))
}

func TestDebouncer_IndependentConnections(t *testing.T) {
	r := require.New(t)
	rec := &evictRecorder{}
	d := NewDebouncer(20*time.Millisecond, rec.evict)

	d.OnDisconnect("c1")
	d.OnDisconnect("c2")
	r.True(d.Cancel("c1"))

	time.Sleep(60 * time.Millisecond)
	r.Equal([]core.ConnID{"c2"}, rec.evicted())
}
