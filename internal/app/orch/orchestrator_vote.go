package orch

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// VoteStartPayload announces an open round to the room.
type VoteStartPayload struct {
	Target domain.ParticipantID `json:"userForKickId"`
	Quorum int                  `json:"quorum"`
}

// VoteResultPayload carries the final state of a resolved round.
type VoteResultPayload struct {
	Target      domain.ParticipantID `json:"userForKickId"`
	DisplayName string               `json:"displayName,omitempty"`
	Kicked      bool                 `json:"kicked"`
	Yes         int                  `json:"yes"`
	No          int                  `json:"no"`
}

// StartVote opens a kick round against a room member. The voter pool is
// the current membership minus the target, minus the owner when the
// rules keep the master out of play.
func (o *Orchestrator) StartVote(ctx context.Context, room domain.RoomID, target domain.ParticipantID) error {
	defer o.rooms.acquire(room).Unlock()

	r, err := o.Store.GetRoom(ctx, room)
	if err != nil {
		if notFound(err) {
			return core.ErrNotFound
		}
		return depFail("getRoom", err)
	}
	members, err := o.Store.GetRoomMembers(ctx, room)
	if err != nil {
		return depFail("getRoomMembers", err)
	}
	if !lo.ContainsBy(members, func(p domain.Participant) bool { return p.ID == target }) {
		return core.ErrNotFound
	}

	voters := make([]domain.ParticipantID, 0, len(members))
	for _, m := range members {
		if m.ID == target {
			continue
		}
		if !r.Rules.MasterAsPlayer && m.ID == r.OwnerID {
			continue
		}
		voters = append(voters, m.ID)
	}
	quorum, err := o.Votes.StartRound(target, room, voters)
	if err != nil {
		return err
	}
	o.Cast.Emit(room, core.OnVoteStart, VoteStartPayload{Target: target, Quorum: quorum})
	return nil
}

// CastVote records one ballot and, when the cast resolves the round,
// runs the kick eviction or announces the rejection. A kick racing a
// concurrent disconnect-eviction of the same target stays idempotent:
// whichever removal commits first wins, the other is a no-op.
func (o *Orchestrator) CastVote(ctx context.Context, target, voter domain.ParticipantID, vote bool) error {
	out, err := o.Votes.Cast(target, voter, vote)
	if err != nil {
		return err
	}

	switch out.Resolution {
	case app.VotePending:
		return nil
	case app.VoteRejected:
		defer o.rooms.acquire(out.Room).Unlock()
		o.Cast.Emit(out.Room, core.OnVoteResult, VoteResultPayload{Target: target, Kicked: false, Yes: out.Yes, No: out.No})
		return nil
	case app.VoteKicked:
		defer o.rooms.acquire(out.Room).Unlock()
		result := VoteResultPayload{Target: target, Kicked: true, Yes: out.Yes, No: out.No}
		if p, err := o.Store.GetParticipant(ctx, target); err == nil {
			result.DisplayName = p.DisplayName
		}
		o.Cast.EmitTo(target, core.OnKick, nil)
		if err := o.evictLocked(ctx, target); err != nil {
			log.Error().Err(err).Str("module", "orch").Str("target", string(target)).Msg("kick eviction failed")
		}
		o.Cast.Emit(out.Room, core.OnVoteResult, result)
		return nil
	}
	return nil
}

func (o *Orchestrator) onVoteExpired(target domain.ParticipantID, room domain.RoomID) {
	defer o.rooms.acquire(room).Unlock()
	log.Info().Str("module", "orch").Str("target", string(target)).Msg("kick vote timed out, rejected")
	o.Cast.Emit(room, core.OnVoteResult, VoteResultPayload{Target: target, Kicked: false})
}
