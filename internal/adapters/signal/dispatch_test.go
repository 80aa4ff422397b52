package signal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Poker/internal/adapters/store"
	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/app/orch"
	"github.com/dkeye/Poker/internal/auth"
	"github.com/dkeye/Poker/internal/config"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

func newController(t *testing.T) (*GameWSController, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	reg := app.NewRegistry()
	tokens := auth.NewTokens("test-secret", time.Hour)
	o := orch.New(reg, app.NewBroadcaster(reg), mem, tokens, time.Minute, time.Minute)
	return NewGameWSController(o, &config.Config{ReadLimit: 32768}), mem
}

// testConn is a WsConn without a live socket; frames pile up in the
// send buffer where the test can inspect them.
func testConn() *WsConn {
	return &WsConn{send: make(chan core.Frame, 32)}
}

func drain(c *WsConn) []app.Envelope {
	var out []app.Envelope
	for {
		select {
		case frame := <-c.send:
			var env app.Envelope
			if err := json.Unmarshal(frame, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func seedRoomWithPlayer(t *testing.T, mem *store.Memory) (domain.RoomID, domain.ParticipantID) {
	t.Helper()
	r := require.New(t)
	ctx := context.Background()
	p, err := domain.NewParticipant("alice", domain.RolePlayer)
	r.NoError(err)
	r.NoError(mem.CreateParticipant(ctx, p))
	room := domain.NewRoom("sprint 42", p.ID)
	r.NoError(mem.CreateRoom(ctx, room))
	return room.ID, p.ID
}

func TestHandleEvent_Join(t *testing.T) {
	r := require.New(t)
	ctl, mem := newController(t)
	roomID, pid := seedRoomWithPlayer(t, mem)

	c := testConn()
	payload := []byte(`{"type":"join","roomId":"` + string(roomID) + `","userId":"` + string(pid) + `"}`)
	ctl.handleEvent(context.Background(), "conn-1", c, payload)

	got, err := ctl.Orch.Registry.ResolveParticipant("conn-1")
	r.NoError(err)
	r.Equal(pid, got)

	envs := drain(c)
	r.Len(envs, 1)
	r.Equal(core.OnJoin, envs[0].Type)
}

func TestHandleEvent_JoinMissingField(t *testing.T) {
	r := require.New(t)
	ctl, _ := newController(t)

	c := testConn()
	ctl.handleEvent(context.Background(), "conn-1", c, []byte(`{"type":"join","roomId":"r1"}`))

	envs := drain(c)
	r.Len(envs, 1)
	r.Equal(core.OnError, envs[0].Type)
	r.Equal("Undefined field userId", envs[0].Payload)

	// Nothing was bound
	_, err := ctl.Orch.Registry.ResolveParticipant("conn-1")
	r.ErrorIs(err, core.ErrNotFound)
}

func TestHandleEvent_MalformedJSON(t *testing.T) {
	r := require.New(t)
	ctl, _ := newController(t)

	c := testConn()
	ctl.handleEvent(context.Background(), "conn-1", c, []byte(`{"type":`))

	envs := drain(c)
	r.Len(envs, 1)
	r.Equal(core.OnError, envs[0].Type)
}

func TestHandleEvent_UnknownTypeIgnored(t *testing.T) {
	ctl, _ := newController(t)

	c := testConn()
	ctl.handleEvent(context.Background(), "conn-1", c, []byte(`{"type":"teleport"}`))

	require.Empty(t, drain(c))
}

func TestHandleEvent_CastVoteNeedsBinding(t *testing.T) {
	r := require.New(t)
	ctl, _ := newController(t)

	c := testConn()
	ctl.handleEvent(context.Background(), "conn-1", c, []byte(`{"type":"castVote","userForKickId":"mallory","vote":true}`))

	envs := drain(c)
	r.Len(envs, 1)
	r.Equal(core.OnError, envs[0].Type)
}

func TestHandleEvent_CastVoteFalseIsValid(t *testing.T) {
	r := require.New(t)
	ctl, mem := newController(t)
	roomID, pid := seedRoomWithPlayer(t, mem)
	ctx := context.Background()

	c := testConn()
	r.NoError(ctl.Orch.Join(ctx, "conn-1", pid, roomID, c))
	drain(c)

	// vote:false must pass validation and reach the tally, which has no
	// open round for the target
	ctl.handleEvent(ctx, "conn-1", c, []byte(`{"type":"castVote","userForKickId":"mallory","vote":false}`))

	envs := drain(c)
	r.Len(envs, 1)
	r.Equal(core.OnError, envs[0].Type)
	r.Equal(core.ErrNoOpenRound.Error(), envs[0].Payload)
}

func TestHandleEvent_Ping(t *testing.T) {
	r := require.New(t)
	ctl, _ := newController(t)

	c := testConn()
	ctl.handleEvent(context.Background(), "conn-1", c, []byte(`{"type":"ping"}`))

	envs := drain(c)
	r.Len(envs, 1)
	r.Equal("pong", envs[0].Type)
}

func TestHandleEvent_RoundControl(t *testing.T) {
	r := require.New(t)
	ctl, mem := newController(t)
	roomID, pid := seedRoomWithPlayer(t, mem)
	ctx := context.Background()

	c := testConn()
	r.NoError(ctl.Orch.Join(ctx, "conn-1", pid, roomID, c))
	drain(c)

	ctl.handleEvent(ctx, "conn-1", c, []byte(`{"type":"runRound","roomId":"`+string(roomID)+`"}`))

	envs := drain(c)
	r.Len(envs, 1)
	r.Equal(core.OnRunRound, envs[0].Type)
}

func TestWsConn_TrySendBackpressure(t *testing.T) {
	r := require.New(t)
	c := &WsConn{send: make(chan core.Frame, 1)}

	r.NoError(c.TrySend(core.Frame(`a`)))
	r.ErrorIs(c.TrySend(core.Frame(`b`)), ErrBackpressure)
}

func TestRateLimiter(t *testing.T) {
	r := require.New(t)
	rl := &RateLimiter{
		budgets: map[string]budget{kindChat: {limit: 3, interval: 50 * time.Millisecond}},
		history: make(map[limiterKey][]time.Time),
	}

	for i := 0; i < 3; i++ {
		r.True(rl.Allow("alice", kindChat))
	}
	r.False(rl.Allow("alice", kindChat))
	// Independent budgets per participant and per kind
	r.True(rl.Allow("bob", kindChat))
	r.True(rl.Allow("alice", kindBet))

	// The window slides: old attempts expire
	time.Sleep(60 * time.Millisecond)
	r.True(rl.Allow("alice", kindChat))
}

func TestRateLimiter_SeparateChatAndBetBudgets(t *testing.T) {
	r := require.New(t)
	rl := NewRateLimiter()

	// Exhausting the chat budget leaves bets unaffected
	for i := 0; i < 10; i++ {
		r.True(rl.Allow("alice", kindChat))
	}
	r.False(rl.Allow("alice", kindChat))
	r.True(rl.Allow("alice", kindBet))
}
