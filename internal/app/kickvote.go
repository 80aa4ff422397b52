package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

type Resolution int

const (
	VotePending Resolution = iota
	VoteKicked
	VoteRejected
)

// Outcome is what a cast resolved to, with enough context to broadcast.
type Outcome struct {
	Resolution Resolution
	Target     domain.ParticipantID
	Room       domain.RoomID
	Yes        int
	No         int
	Quorum     int
}

// ExpireFunc is invoked when a round times out unresolved; the round
// has already been discarded as rejected by then.
type ExpireFunc func(target domain.ParticipantID, room domain.RoomID)

type votingRound struct {
	room     domain.RoomID
	quorum   int
	eligible map[domain.ParticipantID]struct{}
	ballots  map[domain.ParticipantID]bool
	timer    *time.Timer
}

// KickVote accumulates yes/no ballots against target participants and
// resolves each round exactly once. It exclusively owns ballots and
// rounds; ballots for a target with no open round are rejected, and so
// are ballots from outside the round's eligible pool.
type KickVote struct {
	mu       sync.Mutex
	rounds   map[domain.ParticipantID]*votingRound
	timeout  time.Duration
	onExpire ExpireFunc
}

func NewKickVote(timeout time.Duration, onExpire ExpireFunc) *KickVote {
	return &KickVote{
		rounds:   make(map[domain.ParticipantID]*votingRound),
		timeout:  timeout,
		onExpire: onExpire,
	}
}

// Quorum is the minimum number of distinct affirmative votes needed to
// kick, for a room of the given size including the target.
func Quorum(roomSize int) int {
	return (roomSize-1)/2 + 1
}

// StartRound opens a round against the target. voters is the
// kick-eligible pool captured at this instant; the target never votes
// and is dropped from the pool if present. Returns the round's quorum.
// Fails with ErrAlreadyOpen on a duplicate target.
func (k *KickVote) StartRound(target domain.ParticipantID, room domain.RoomID, voters []domain.ParticipantID) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.rounds[target]; ok {
		return 0, core.ErrAlreadyOpen
	}
	r := &votingRound{
		room:     room,
		eligible: make(map[domain.ParticipantID]struct{}, len(voters)),
		ballots:  make(map[domain.ParticipantID]bool),
	}
	for _, v := range voters {
		if v == target {
			continue
		}
		r.eligible[v] = struct{}{}
	}
	r.quorum = Quorum(len(r.eligible) + 1)
	r.timer = time.AfterFunc(k.timeout, func() { k.expire(target) })
	k.rounds[target] = r
	log.Info().Str("module", "app.kickvote").Str("target", string(target)).Str("room", string(room)).Int("quorum", r.quorum).Int("eligible", len(r.eligible)).Msg("voting round opened")
	return r.quorum, nil
}

// Cast records or overwrites the voter's ballot and evaluates
// resolution immediately, so a round can close before the timeout.
// Only voters from the pool captured at StartRound may ballot; the
// target and outsiders get ErrPermissionDenied. Distinct affirmative
// ballots reaching quorum resolve the round as kicked; once remaining
// possible voters cannot reach quorum, the round resolves as rejected.
// A resolved round is purged, so later casts fail with ErrNoOpenRound
// and are inert.
func (k *KickVote) Cast(target, voter domain.ParticipantID, vote bool) (Outcome, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	r, ok := k.rounds[target]
	if !ok {
		return Outcome{}, core.ErrNoOpenRound
	}
	if _, ok := r.eligible[voter]; !ok {
		return Outcome{}, core.ErrPermissionDenied
	}
	r.ballots[voter] = vote

	yes := lo.CountValues(lo.Values(r.ballots))[true]
	no := len(r.ballots) - yes
	remaining := len(r.eligible) - len(r.ballots)
	out := Outcome{Resolution: VotePending, Target: target, Room: r.room, Yes: yes, No: no, Quorum: r.quorum}

	switch {
	case yes >= r.quorum:
		out.Resolution = VoteKicked
	case yes+remaining < r.quorum:
		out.Resolution = VoteRejected
	default:
		return out, nil
	}

	r.timer.Stop()
	delete(k.rounds, target)
	log.Info().Str("module", "app.kickvote").Str("target", string(target)).Int("yes", yes).Int("no", no).Bool("kicked", out.Resolution == VoteKicked).Msg("voting round resolved")
	return out, nil
}

// Discard drops an open round without a result, e.g. when the target
// left the room on their own before the vote settled.
func (k *KickVote) Discard(target domain.ParticipantID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if r, ok := k.rounds[target]; ok {
		r.timer.Stop()
		delete(k.rounds, target)
	}
}

func (k *KickVote) expire(target domain.ParticipantID) {
	k.mu.Lock()
	r, ok := k.rounds[target]
	if !ok {
		k.mu.Unlock()
		return
	}
	delete(k.rounds, target)
	k.mu.Unlock()

	log.Info().Str("module", "app.kickvote").Str("target", string(target)).Msg("voting round expired, rejected")
	if k.onExpire != nil {
		k.onExpire(target, r.room)
	}
}
