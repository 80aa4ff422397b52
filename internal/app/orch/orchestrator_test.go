package orch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Poker/internal/adapters/store"
	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/auth"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeConn) TrySend(frame core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() {}

// kinds decodes the envelope type of every frame received so far.
func (f *fakeConn) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, frame := range f.frames {
		var env app.Envelope
		if err := json.Unmarshal(frame, &env); err == nil {
			out = append(out, env.Type)
		}
	}
	return out
}

func (f *fakeConn) has(kind string) bool {
	for _, k := range f.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

type harness struct {
	orch   *Orchestrator
	store  *store.Memory
	tokens *auth.Tokens
}

func newHarness(t *testing.T, grace time.Duration) *harness {
	t.Helper()
	mem := store.NewMemory()
	reg := app.NewRegistry()
	tokens := auth.NewTokens("test-secret", time.Hour)
	o := New(reg, app.NewBroadcaster(reg), mem, tokens, grace, time.Minute)
	return &harness{orch: o, store: mem, tokens: tokens}
}

// seed persists a participant and returns their id.
func (h *harness) seed(t *testing.T, name string) domain.ParticipantID {
	t.Helper()
	p, err := domain.NewParticipant(name, domain.RolePlayer)
	require.NoError(t, err)
	require.NoError(t, h.store.CreateParticipant(context.Background(), p))
	return p.ID
}

func (h *harness) seedRoom(t *testing.T, owner domain.ParticipantID) domain.RoomID {
	t.Helper()
	room := domain.NewRoom("sprint 42", owner)
	require.NoError(t, h.store.CreateRoom(context.Background(), room))
	return room.ID
}

func TestOrchestrator_JoinBroadcastsMembers(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	player := h.seed(t, "player")
	roomID := h.seedRoom(t, owner)

	ownerConn := &fakeConn{}
	r.NoError(h.orch.Join(ctx, "c-owner", owner, roomID, ownerConn))

	playerConn := &fakeConn{}
	r.NoError(h.orch.Join(ctx, "c-player", player, roomID, playerConn))

	// Both connections saw the membership broadcast for the second join
	r.True(ownerConn.has(core.OnJoin))
	r.True(playerConn.has(core.OnJoin))

	members, err := h.store.GetRoomMembers(ctx, roomID)
	r.NoError(err)
	r.Len(members, 2)
}

func TestOrchestrator_JoinClosedRoomDenied(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	stranger := h.seed(t, "stranger")
	room := domain.NewRoom("private", owner)
	room.Rules.NewUsersEnter = false
	r.NoError(h.store.CreateRoom(ctx, room))

	err := h.orch.Join(ctx, "c1", stranger, room.ID, &fakeConn{})
	r.ErrorIs(err, core.ErrPermissionDenied)
}

func TestOrchestrator_JoinUnknownRoom(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)

	pid := h.seed(t, "alice")
	err := h.orch.Join(context.Background(), "c1", pid, "no-such-room", &fakeConn{})
	r.ErrorIs(err, core.ErrNotFound)
}

func TestOrchestrator_ReconnectWithinGraceKeepsMembership(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, 50*time.Millisecond)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	player := h.seed(t, "player")
	roomID := h.seedRoom(t, owner)

	ownerConn := &fakeConn{}
	r.NoError(h.orch.Join(ctx, "c-owner", owner, roomID, ownerConn))
	r.NoError(h.orch.Join(ctx, "c-player", player, roomID, &fakeConn{}))

	token, err := h.tokens.Mint(player)
	r.NoError(err)

	// When the player drops and reconnects before the grace window ends
	h.orch.OnDisconnect("c-player")
	fresh := &fakeConn{}
	got, err := h.orch.Reconnect(ctx, "c-player-2", token, fresh)
	r.NoError(err)
	r.Equal(roomID, got)

	// Then the grace window elapsing changes nothing
	time.Sleep(120 * time.Millisecond)
	members, err := h.store.GetRoomMembers(ctx, roomID)
	r.NoError(err)
	r.Len(members, 2)
	r.False(ownerConn.has(core.OnUserDelete))

	// And the fresh connection received the room snapshot
	r.True(fresh.has(core.OnJoin))
}

func TestOrchestrator_GraceElapsedEvictsOnce(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, 20*time.Millisecond)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	player := h.seed(t, "player")
	roomID := h.seedRoom(t, owner)

	ownerConn := &fakeConn{}
	r.NoError(h.orch.Join(ctx, "c-owner", owner, roomID, ownerConn))
	r.NoError(h.orch.Join(ctx, "c-player", player, roomID, &fakeConn{}))

	// Redundant disconnect signals still produce exactly one eviction
	h.orch.OnDisconnect("c-player")
	h.orch.OnDisconnect("c-player")

	r.Eventually(func() bool {
		members, err := h.store.GetRoomMembers(ctx, roomID)
		return err == nil && len(members) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := h.store.GetParticipant(ctx, player)
	r.ErrorIs(err, core.ErrNotFound)

	deletes := 0
	for _, k := range ownerConn.kinds() {
		if k == core.OnUserDelete {
			deletes++
		}
	}
	r.Equal(1, deletes)
}

func TestOrchestrator_OwnerEvictionTearsDownRoom(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	player := h.seed(t, "player")
	roomID := h.seedRoom(t, owner)

	r.NoError(h.orch.Join(ctx, "c-owner", owner, roomID, &fakeConn{}))
	playerConn := &fakeConn{}
	r.NoError(h.orch.Join(ctx, "c-player", player, roomID, playerConn))

	// When the owner leaves, the room goes with them
	r.NoError(h.orch.Leave(ctx, owner))

	r.True(playerConn.has(core.OnRoomDelete))
	_, err := h.store.GetRoom(ctx, roomID)
	r.ErrorIs(err, core.ErrNotFound)
	r.Empty(h.orch.Registry.RoomMembers(roomID))
}

func TestOrchestrator_KickVoteFlow(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	alice := h.seed(t, "alice")
	bob := h.seed(t, "bob")
	mallory := h.seed(t, "mallory")
	roomID := h.seedRoom(t, owner)

	conns := map[domain.ParticipantID]*fakeConn{}
	for pid, conn := range map[domain.ParticipantID]core.ConnID{owner: "c1", alice: "c2", bob: "c3", mallory: "c4"} {
		c := &fakeConn{}
		conns[pid] = c
		r.NoError(h.orch.Join(ctx, conn, pid, roomID, c))
	}

	// Four members with the master in play: voter pool 4, quorum 2
	r.NoError(h.orch.StartVote(ctx, roomID, mallory))
	r.True(conns[alice].has(core.OnVoteStart))

	r.NoError(h.orch.CastVote(ctx, mallory, alice, true))
	r.NoError(h.orch.CastVote(ctx, mallory, bob, true))

	// The target got the kick notice, the room got the result, and the
	// target is gone from both registry and store
	r.True(conns[mallory].has(core.OnKick))
	r.True(conns[alice].has(core.OnVoteResult))
	_, err := h.store.GetParticipant(ctx, mallory)
	r.ErrorIs(err, core.ErrNotFound)
	_, ok := h.orch.Registry.RoomOf(mallory)
	r.False(ok)

	// A straggler ballot after resolution is inert
	r.ErrorIs(h.orch.CastVote(ctx, mallory, owner, true), core.ErrNoOpenRound)
}

func TestOrchestrator_StartVoteExcludesIdleMaster(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	alice := h.seed(t, "alice")
	bob := h.seed(t, "bob")
	mallory := h.seed(t, "mallory")
	room := domain.NewRoom("observed", owner)
	room.Rules.MasterAsPlayer = false
	r.NoError(h.store.CreateRoom(ctx, room))

	alConn := &fakeConn{}
	for pid, conn := range map[domain.ParticipantID]core.ConnID{owner: "c1", alice: "c2", bob: "c3", mallory: "c4"} {
		c := &fakeConn{}
		if pid == alice {
			c = alConn
		}
		r.NoError(h.orch.Join(ctx, conn, pid, room.ID, c))
	}

	// Pool drops to 3 without the master, so quorum is 2
	r.NoError(h.orch.StartVote(ctx, room.ID, mallory))

	var start VoteStartPayload
	for _, frame := range alConn.frames {
		var env app.Envelope
		r.NoError(json.Unmarshal(frame, &env))
		if env.Type == core.OnVoteStart {
			raw, err := json.Marshal(env.Payload)
			r.NoError(err)
			r.NoError(json.Unmarshal(raw, &start))
		}
	}
	r.Equal(2, start.Quorum)
	r.Equal(mallory, start.Target)
}

func TestOrchestrator_StartVoteNonMember(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	roomID := h.seedRoom(t, owner)
	r.NoError(h.orch.Join(ctx, "c1", owner, roomID, &fakeConn{}))

	err := h.orch.StartVote(ctx, roomID, "ghost")
	r.ErrorIs(err, core.ErrNotFound)
}

func TestOrchestrator_KickRacesDisconnect(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	mallory := h.seed(t, "mallory")
	roomID := h.seedRoom(t, owner)
	r.NoError(h.orch.Join(ctx, "c1", owner, roomID, &fakeConn{}))
	r.NoError(h.orch.Join(ctx, "c2", mallory, roomID, &fakeConn{}))

	// The target already left before the kick resolves: eviction is a no-op
	r.NoError(h.orch.Leave(ctx, mallory))
	r.NoError(h.orch.Evict(ctx, mallory))

	members, err := h.store.GetRoomMembers(ctx, roomID)
	r.NoError(err)
	r.Len(members, 1)
}

// stallingStore blocks the first participant deletion until released,
// holding an in-flight eviction open for the test to race against.
type stallingStore struct {
	*store.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingStore) DeleteParticipant(ctx context.Context, id domain.ParticipantID) error {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.Memory.DeleteParticipant(ctx, id)
}

func TestOrchestrator_ReconnectRacingEviction(t *testing.T) {
	r := require.New(t)
	mem := store.NewMemory()
	st := &stallingStore{Memory: mem, entered: make(chan struct{}), release: make(chan struct{})}
	reg := app.NewRegistry()
	tokens := auth.NewTokens("test-secret", time.Hour)
	o := New(reg, app.NewBroadcaster(reg), st, tokens, 10*time.Millisecond, time.Minute)
	ctx := context.Background()

	owner, err := domain.NewParticipant("owner", domain.RolePlayer)
	r.NoError(err)
	r.NoError(mem.CreateParticipant(ctx, owner))
	player, err := domain.NewParticipant("player", domain.RolePlayer)
	r.NoError(err)
	r.NoError(mem.CreateParticipant(ctx, player))
	room := domain.NewRoom("sprint 42", owner.ID)
	r.NoError(mem.CreateRoom(ctx, room))

	r.NoError(o.Join(ctx, "c-owner", owner.ID, room.ID, &fakeConn{}))
	r.NoError(o.Join(ctx, "c-player", player.ID, room.ID, &fakeConn{}))

	token, err := tokens.Mint(player.ID)
	r.NoError(err)

	// The grace window elapses and the eviction stalls mid-sequence
	o.OnDisconnect("c-player")
	<-st.entered

	// A reconnect arriving now must not slip in under the running
	// eviction and report success for a participant about to vanish
	var reconnectErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, reconnectErr = o.Reconnect(ctx, "c-player-2", token, &fakeConn{})
	}()

	time.Sleep(20 * time.Millisecond)
	close(st.release)
	<-done

	// The eviction completed first, so the reconnect reports the
	// participant gone instead of a phantom success
	r.ErrorIs(reconnectErr, core.ErrNotFound)
	_, bound := o.Registry.RoomOf(player.ID)
	r.False(bound)
	_, err = mem.GetParticipant(ctx, player.ID)
	r.ErrorIs(err, core.ErrNotFound)
}

func TestOrchestrator_ReconnectBeforeEvictionFires(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, 40*time.Millisecond)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	player := h.seed(t, "player")
	roomID := h.seedRoom(t, owner)
	r.NoError(h.orch.Join(ctx, "c-owner", owner, roomID, &fakeConn{}))
	r.NoError(h.orch.Join(ctx, "c-player", player, roomID, &fakeConn{}))

	token, err := h.tokens.Mint(player)
	r.NoError(err)

	h.orch.OnDisconnect("c-player")
	got, err := h.orch.Reconnect(ctx, "c-player-2", token, &fakeConn{})
	r.NoError(err)
	r.Equal(roomID, got)

	// The superseded eviction never fires against the new binding
	time.Sleep(100 * time.Millisecond)
	conn, ok := h.orch.Registry.ConnOf(player)
	r.True(ok)
	r.Equal(core.ConnID("c-player-2"), conn)
	members, err := h.store.GetRoomMembers(ctx, roomID)
	r.NoError(err)
	r.Len(members, 2)
}

func TestOrchestrator_ConcurrentBetTalliesOrdered(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	roomID := h.seedRoom(t, owner)
	conn := &fakeConn{}
	r.NoError(h.orch.Join(ctx, "c1", owner, roomID, conn))

	// Many concurrent bets on one issue from different participants
	const bets = 8
	var wg sync.WaitGroup
	for i := 0; i < bets; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bet := domain.Bet{
				ParticipantID: domain.ParticipantID(fmt.Sprintf("p%d", i)),
				IssueID:       "i1",
				Content:       "5",
			}
			r.NoError(h.orch.PlaceBet(ctx, roomID, bet))
		}(i)
	}
	wg.Wait()

	// Tally frames arrive in commit order, so the last one a client saw
	// reflects every committed bet, never a stale intermediate snapshot
	var last BetTallyPayload
	found := false
	for _, frame := range conn.frames {
		var env app.Envelope
		r.NoError(json.Unmarshal(frame, &env))
		if env.Type != core.OnBet {
			continue
		}
		raw, err := json.Marshal(env.Payload)
		r.NoError(err)
		r.NoError(json.Unmarshal(raw, &last))
		found = true
	}
	r.True(found)
	r.Len(last.Bets, bets)
}

func TestOrchestrator_PlaceBetTallies(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	roomID := h.seedRoom(t, owner)
	conn := &fakeConn{}
	r.NoError(h.orch.Join(ctx, "c1", owner, roomID, conn))

	r.NoError(h.orch.PlaceBet(ctx, roomID, domain.Bet{ParticipantID: owner, IssueID: "i1", Content: "5"}))
	// Re-betting the same issue overwrites, not appends
	r.NoError(h.orch.PlaceBet(ctx, roomID, domain.Bet{ParticipantID: owner, IssueID: "i1", Content: "8"}))

	bets, err := h.store.GetBetsByIssue(ctx, "i1")
	r.NoError(err)
	r.Len(bets, 1)
	r.Equal("8", bets[0].Content)
	r.True(conn.has(core.OnBet))
}

func TestOrchestrator_PostMessage(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	roomID := h.seedRoom(t, owner)
	conn := &fakeConn{}
	r.NoError(h.orch.Join(ctx, "c1", owner, roomID, conn))

	r.NoError(h.orch.PostMessage(ctx, roomID, owner, "hello"))

	msgs, err := h.store.GetRoomMessages(ctx, roomID)
	r.NoError(err)
	r.Len(msgs, 1)
	r.Equal("hello", msgs[0].Content)
	r.True(conn.has(core.OnMessage))
}

func TestOrchestrator_RoundControl(t *testing.T) {
	r := require.New(t)
	h := newHarness(t, time.Minute)
	ctx := context.Background()

	owner := h.seed(t, "owner")
	roomID := h.seedRoom(t, owner)
	conn := &fakeConn{}
	r.NoError(h.orch.Join(ctx, "c1", owner, roomID, conn))

	for action, kind := range map[string]string{
		"play":   core.OnPlay,
		"run":    core.OnRunRound,
		"stop":   core.OnStopRound,
		"finish": core.OnEndGame,
	} {
		r.NoError(h.orch.RoundControl(roomID, action))
		r.True(conn.has(kind), "action %q", action)
	}

	var vErr core.ValidationError
	r.ErrorAs(h.orch.RoundControl(roomID, "rewind"), &vErr)
	r.Equal("action", vErr.Field)
}
