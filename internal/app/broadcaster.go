package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// Envelope is the wire frame for every outbound event.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Broadcaster fans an event out to every connection bound to a room.
// Delivery targets are a snapshot taken at the instant of the call,
// not a live subscription; the payload travels verbatim.
type Broadcaster struct {
	Registry *Registry
}

func NewBroadcaster(reg *Registry) *Broadcaster {
	return &Broadcaster{Registry: reg}
}

// Emit delivers the event to everyone currently in the room. The
// registry lock is released before any send.
func (b *Broadcaster) Emit(room domain.RoomID, kind string, payload any) int {
	frame, err := json.Marshal(Envelope{Type: kind, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Str("kind", kind).Msg("marshal payload")
		return 0
	}
	sent := 0
	for _, snap := range b.Registry.SnapshotRoom(room) {
		if snap.Signal == nil {
			continue
		}
		if err := snap.Signal.TrySend(core.Frame(frame)); err != nil {
			log.Warn().Err(err).Str("module", "app.broadcast").Str("conn", string(snap.Conn)).Str("kind", kind).Msg("dropped frame")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.broadcast").Str("room", string(room)).Str("kind", kind).Int("sent_to", sent).Msg("broadcast")
	return sent
}

// EmitTo is a best-effort single delivery. It silently no-ops when the
// participant has no active connection, e.g. mid-grace-window.
func (b *Broadcaster) EmitTo(pid domain.ParticipantID, kind string, payload any) {
	snap, ok := b.Registry.SnapshotParticipant(pid)
	if !ok || snap.Signal == nil {
		return
	}
	frame, err := json.Marshal(Envelope{Type: kind, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Str("kind", kind).Msg("marshal payload")
		return
	}
	if err := snap.Signal.TrySend(core.Frame(frame)); err != nil {
		log.Warn().Err(err).Str("module", "app.broadcast").Str("participant", string(pid)).Str("kind", kind).Msg("dropped frame")
	}
}
