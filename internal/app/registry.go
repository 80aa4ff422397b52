package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

type binding struct {
	Conn        core.ConnID
	Participant domain.ParticipantID
	Room        domain.RoomID
	Signal      core.SignalConnection
}

// Registry maps live connections to durable participant identities and
// their room. It exclusively owns session bindings: at most one active
// binding per connection, at most one active connection per participant.
// A participant may hold zero connections while disconnected-but-within-grace.
type Registry struct {
	mu            sync.RWMutex
	byConn        map[core.ConnID]*binding
	byParticipant map[domain.ParticipantID]*binding
}

func NewRegistry() *Registry {
	return &Registry{
		byConn:        make(map[core.ConnID]*binding),
		byParticipant: make(map[domain.ParticipantID]*binding),
	}
}

// Bind inserts or overwrites the binding for a participant. Last write
// wins: a stale connection for the same participant is dropped from the
// index, which implicitly supersedes any pending eviction keyed to it.
func (r *Registry) Bind(conn core.ConnID, pid domain.ParticipantID, room domain.RoomID, sig core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byParticipant[pid]; ok {
		delete(r.byConn, prev.Conn)
	}
	b := &binding{Conn: conn, Participant: pid, Room: room, Signal: sig}
	r.byConn[conn] = b
	r.byParticipant[pid] = b
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("participant", string(pid)).Str("room", string(room)).Msg("bound session")
}

// Rebind replaces the connection of an existing binding in place,
// keeping participant and room. Returns ErrNotFound when the
// participant has no prior binding; the caller treats that as a fresh join.
func (r *Registry) Rebind(conn core.ConnID, pid domain.ParticipantID, sig core.SignalConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byParticipant[pid]
	if !ok {
		return core.ErrNotFound
	}
	delete(r.byConn, b.Conn)
	b.Conn = conn
	b.Signal = sig
	r.byConn[conn] = b
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("participant", string(pid)).Msg("rebound session")
	return nil
}

// Unbind removes the participant's binding and returns the connection
// ids that were associated, for final delivery and transport cleanup.
// Unbinding an unknown participant is a silent no-op.
func (r *Registry) Unbind(pid domain.ParticipantID) []core.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byParticipant[pid]
	if !ok {
		return nil
	}
	delete(r.byParticipant, pid)
	delete(r.byConn, b.Conn)
	log.Info().Str("module", "app.registry").Str("participant", string(pid)).Msg("unbound session")
	return []core.ConnID{b.Conn}
}

func (r *Registry) ResolveParticipant(conn core.ConnID) (domain.ParticipantID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byConn[conn]
	if !ok {
		return "", core.ErrNotFound
	}
	return b.Participant, nil
}

// RoomOf reports the room of a participant's active binding.
func (r *Registry) RoomOf(pid domain.ParticipantID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byParticipant[pid]
	if !ok {
		return "", false
	}
	return b.Room, true
}

// ConnOf reports the active connection of a participant, if any.
func (r *Registry) ConnOf(pid domain.ParticipantID) (core.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byParticipant[pid]
	if !ok {
		return "", false
	}
	return b.Conn, true
}

// RoomMembers recomputes the membership view from active bindings.
// Never cached: a mutation is always visible to the next read.
func (r *Registry) RoomMembers(room domain.RoomID) []domain.ParticipantID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ParticipantID, 0, len(r.byParticipant))
	for pid, b := range r.byParticipant {
		if b.Room == room {
			out = append(out, pid)
		}
	}
	return out
}

// ConnSnap is a transport endpoint captured at snapshot time.
type ConnSnap struct {
	Conn        core.ConnID
	Participant domain.ParticipantID
	Signal      core.SignalConnection
}

// SnapshotRoom copies out the transport endpoints of everyone bound to
// the room at the instant of the call, so delivery happens outside the lock.
func (r *Registry) SnapshotRoom(room domain.RoomID) []ConnSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnSnap, 0, len(r.byParticipant))
	for pid, b := range r.byParticipant {
		if b.Room == room {
			out = append(out, ConnSnap{Conn: b.Conn, Participant: pid, Signal: b.Signal})
		}
	}
	return out
}

// SnapshotParticipant copies out one participant's endpoint, if bound.
func (r *Registry) SnapshotParticipant(pid domain.ParticipantID) (ConnSnap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byParticipant[pid]
	if !ok {
		return ConnSnap{}, false
	}
	return ConnSnap{Conn: b.Conn, Participant: pid, Signal: b.Signal}, true
}
