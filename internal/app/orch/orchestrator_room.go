package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// Join binds a connection to a participant and room, persists the
// membership and broadcasts the updated member list to the room.
func (o *Orchestrator) Join(ctx context.Context, conn core.ConnID, pid domain.ParticipantID, room domain.RoomID, sig core.SignalConnection) error {
	defer o.rooms.acquire(room).Unlock()
	return o.joinLocked(ctx, conn, pid, room, sig)
}

func (o *Orchestrator) joinLocked(ctx context.Context, conn core.ConnID, pid domain.ParticipantID, room domain.RoomID, sig core.SignalConnection) error {
	r, err := o.Store.GetRoom(ctx, room)
	if err != nil {
		if notFound(err) {
			return core.ErrNotFound
		}
		return depFail("getRoom", err)
	}
	if !r.Rules.NewUsersEnter && !hasMember(r.Members, pid) {
		return core.ErrPermissionDenied
	}
	if err := o.Store.AddMemberToRoom(ctx, room, pid); err != nil {
		return depFail("addMemberToRoom", err)
	}

	o.Registry.Bind(conn, pid, room, sig)

	members, err := o.Store.GetRoomMembers(ctx, room)
	if err != nil {
		return depFail("getRoomMembers", err)
	}
	o.Cast.Emit(room, core.OnJoin, members)
	return nil
}

// Reconnect decodes the participant identity from the token and rebinds
// the existing session onto the fresh connection. The rebind and a
// firing eviction arbitrate through the room lock: whichever acquires
// it first wins outright, the loser observes the winner's state and
// either aborts (the eviction) or degrades to a fresh join / ErrNotFound
// (the reconnect). A Reconnect that returns a room therefore guarantees
// the participant was not evicted by the race.
func (o *Orchestrator) Reconnect(ctx context.Context, conn core.ConnID, token string, sig core.SignalConnection) (domain.RoomID, error) {
	pid, err := o.Tokens.Verify(token)
	if err != nil {
		return "", err
	}

	room, ok := o.Registry.RoomOf(pid)
	if !ok {
		r, err := o.Store.RoomByParticipant(ctx, pid)
		if err != nil {
			if notFound(err) {
				return "", core.ErrNotFound
			}
			return "", depFail("roomByParticipant", err)
		}
		room = r.ID
	}

	defer o.rooms.acquire(room).Unlock()

	// Cancel's result does not matter here: if the timer already fired,
	// the evicting goroutine is serialized behind this room lock and
	// will notice the rebind and stand down.
	if prev, ok := o.Registry.ConnOf(pid); ok {
		o.Debounce.Cancel(prev)
	}

	if err := o.Registry.Rebind(conn, pid, sig); err == nil {
		o.snapshotTo(ctx, pid, room)
		return room, nil
	}

	// Eviction won the race before we got the lock. The participant may
	// come back only if their persisted membership survived.
	if _, err := o.Store.RoomByParticipant(ctx, pid); err != nil {
		if notFound(err) {
			return "", core.ErrNotFound
		}
		return "", depFail("roomByParticipant", err)
	}
	if err := o.joinLocked(ctx, conn, pid, room, sig); err != nil {
		return "", err
	}
	return room, nil
}

func (o *Orchestrator) snapshotTo(ctx context.Context, pid domain.ParticipantID, room domain.RoomID) {
	members, err := o.Store.GetRoomMembers(ctx, room)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(room)).Msg("snapshot members")
		return
	}
	o.Cast.EmitTo(pid, core.OnJoin, members)
}

// OnDisconnect starts the grace window for a dropped connection.
// A connection with no binding is ignored.
func (o *Orchestrator) OnDisconnect(conn core.ConnID) {
	if _, err := o.Registry.ResolveParticipant(conn); err != nil {
		return
	}
	o.Debounce.OnDisconnect(conn)
}

func (o *Orchestrator) evictByConn(conn core.ConnID) {
	pid, err := o.Registry.ResolveParticipant(conn)
	if err != nil {
		// Rebound or already evicted during the grace window.
		return
	}
	room, ok := o.Registry.RoomOf(pid)
	if !ok {
		return
	}
	defer o.rooms.acquire(room).Unlock()

	// Re-check under the room lock: a reconnect that won the race has
	// rebound the participant to a fresh connection, and this eviction
	// must not touch it.
	if cur, ok := o.Registry.ConnOf(pid); !ok || cur != conn {
		log.Info().Str("module", "orch").Str("conn", string(conn)).Str("participant", string(pid)).Msg("eviction superseded by reconnect")
		return
	}
	if err := o.evictLocked(context.Background(), pid); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("participant", string(pid)).Msg("eviction failed")
	}
}

// Leave removes a participant on their own initiative. Any pending
// eviction for their connection is withdrawn first so the two paths
// cannot both run.
func (o *Orchestrator) Leave(ctx context.Context, pid domain.ParticipantID) error {
	if conn, ok := o.Registry.ConnOf(pid); ok {
		o.Debounce.Cancel(conn)
	}
	return o.Evict(ctx, pid)
}

// Evict runs the full eviction sequence: session unbind, participant
// and membership deletion, membership broadcast, and room teardown when
// the evicted participant owned the room. Racing evictions of the same
// participant resolve to silent idempotent success.
func (o *Orchestrator) Evict(ctx context.Context, pid domain.ParticipantID) error {
	room, ok := o.Registry.RoomOf(pid)
	if !ok {
		r, err := o.Store.RoomByParticipant(ctx, pid)
		if err != nil {
			if notFound(err) {
				// Nothing persisted and nothing bound: clean up any
				// straggler state and succeed.
				o.Registry.Unbind(pid)
				o.Votes.Discard(pid)
				return nil
			}
			return depFail("roomByParticipant", err)
		}
		room = r.ID
	}
	defer o.rooms.acquire(room).Unlock()
	return o.evictLocked(ctx, pid)
}

// evictLocked is the eviction sequence proper; the caller holds the
// lock of the participant's room.
func (o *Orchestrator) evictLocked(ctx context.Context, pid domain.ParticipantID) error {
	conns := o.Registry.Unbind(pid)
	o.Votes.Discard(pid)

	room, err := o.Store.RoomByParticipant(ctx, pid)
	if err != nil {
		if notFound(err) {
			if len(conns) > 0 {
				log.Info().Str("module", "orch").Str("participant", string(pid)).Msg("evict: no persisted room, unbound only")
			}
			return nil
		}
		return depFail("roomByParticipant", err)
	}

	if err := o.Store.DeleteParticipant(ctx, pid); err != nil && !notFound(err) {
		return depFail("deleteParticipant", err)
	}
	if err := o.Store.DeleteMemberFromRoom(ctx, pid); err != nil && !notFound(err) {
		return depFail("deleteMemberFromRoom", err)
	}

	members, err := o.Store.GetRoomMembers(ctx, room.ID)
	if err != nil {
		return depFail("getRoomMembers", err)
	}
	o.Cast.Emit(room.ID, core.OnUserDelete, members)

	if room.OwnerID == pid {
		return o.teardownLocked(ctx, room.ID)
	}
	return nil
}

// TeardownRoom broadcasts the room deletion, then unbinds every
// remaining member and deletes the persisted room.
func (o *Orchestrator) TeardownRoom(ctx context.Context, room domain.RoomID) error {
	defer o.rooms.acquire(room).Unlock()
	return o.teardownLocked(ctx, room)
}

func (o *Orchestrator) teardownLocked(ctx context.Context, room domain.RoomID) error {
	o.Cast.Emit(room, core.OnRoomDelete, room)
	for _, member := range o.Registry.RoomMembers(room) {
		o.Registry.Unbind(member)
	}
	if err := o.Store.DeleteRoom(ctx, room); err != nil && !notFound(err) {
		return depFail("deleteRoom", err)
	}
	log.Info().Str("module", "orch").Str("room", string(room)).Msg("room torn down")
	return nil
}

func hasMember(members []domain.ParticipantID, pid domain.ParticipantID) bool {
	for _, m := range members {
		if m == pid {
			return true
		}
	}
	return false
}
