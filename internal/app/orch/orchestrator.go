// Package orch sequences the coordination components. Every operation
// that mutates a room holds that room's lock from the mutation through
// reading the snapshot and enqueueing the broadcast frames, so frames
// for one room are always enqueued in mutation-commit order. Actual
// socket writes happen in the transport's write pump, outside the lock.
package orch

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/auth"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

type Orchestrator struct {
	Registry *app.Registry
	Cast     *app.Broadcaster
	Store    core.Store
	Tokens   *auth.Tokens
	Debounce *app.Debouncer
	Votes    *app.KickVote

	rooms roomLocks
}

func New(reg *app.Registry, cast *app.Broadcaster, store core.Store, tokens *auth.Tokens, grace, voteTimeout time.Duration) *Orchestrator {
	o := &Orchestrator{
		Registry: reg,
		Cast:     cast,
		Store:    store,
		Tokens:   tokens,
		rooms:    roomLocks{locks: make(map[domain.RoomID]*sync.Mutex)},
	}
	o.Debounce = app.NewDebouncer(grace, o.evictByConn)
	o.Votes = app.NewKickVote(voteTimeout, o.onVoteExpired)
	return o
}

// roomLocks hands out one mutex per room. Entries are never removed; a
// mutex is tiny and the id space is bounded by the life of the process.
type roomLocks struct {
	mu    sync.Mutex
	locks map[domain.RoomID]*sync.Mutex
}

// acquire returns the room's mutex already held; callers defer Unlock.
func (l *roomLocks) acquire(room domain.RoomID) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[room]
	if !ok {
		m = &sync.Mutex{}
		l.locks[room] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m
}

func depFail(op string, err error) error {
	return &core.DependencyFailure{Op: op, Err: err}
}

// notFound ignores ErrNotFound: cleanup paths tolerate entities that
// are already gone.
func notFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
