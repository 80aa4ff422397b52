package app

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Poker/internal/core"
)

func TestBroadcaster_EmitFansOutToRoom(t *testing.T) {
	r := require.New(t)
	reg := NewRegistry()
	cast := NewBroadcaster(reg)

	alice, bob := &fakeSignal{}, &fakeSignal{}
	outsider := &fakeSignal{}
	reg.Bind("c1", "alice", "room1", alice)
	reg.Bind("c2", "bob", "room1", bob)
	reg.Bind("c3", "carol", "room2", outsider)

	sent := cast.Emit("room1", "OnMessage", map[string]string{"text": "hi"})

	r.Equal(2, sent)
	r.Len(alice.frames, 1)
	r.Len(bob.frames, 1)
	r.Empty(outsider.frames)

	// Everyone gets the same envelope, payload verbatim
	var env Envelope
	r.NoError(json.Unmarshal(alice.frames[0], &env))
	r.Equal("OnMessage", env.Type)
	r.Equal(map[string]any{"text": "hi"}, env.Payload)
	r.Equal(alice.frames[0], bob.frames[0])
}

func TestBroadcaster_EmitEmptyRoom(t *testing.T) {
	cast := NewBroadcaster(NewRegistry())
	require.Zero(t, cast.Emit("empty", "OnJoin", nil))
}

func TestBroadcaster_EmitSkipsFailingConnection(t *testing.T) {
	r := require.New(t)
	reg := NewRegistry()
	cast := NewBroadcaster(reg)

	healthy := &fakeSignal{}
	reg.Bind("c1", "alice", "room1", healthy)
	reg.Bind("c2", "bob", "room1", &stuckSignal{})

	// A backpressured peer is skipped, the rest still receive
	sent := cast.Emit("room1", "OnBet", nil)
	r.Equal(1, sent)
	r.Len(healthy.frames, 1)
}

func TestBroadcaster_EmitTo(t *testing.T) {
	r := require.New(t)
	reg := NewRegistry()
	cast := NewBroadcaster(reg)

	sig := &fakeSignal{}
	reg.Bind("c1", "alice", "room1", sig)

	cast.EmitTo("alice", "OnKick", map[string]string{"userId": "alice"})
	r.Len(sig.frames, 1)

	// Unbound participant is a silent no-op
	cast.EmitTo("ghost", "OnKick", nil)
}

type stuckSignal struct{}

func (s *stuckSignal) TrySend(core.Frame) error { return errors.New("send buffer full") }
func (s *stuckSignal) Close()                   {}
