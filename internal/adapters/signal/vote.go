package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

func (ctl *GameWSController) handleVoteStart(
	ctx context.Context,
	conn core.ConnID,
	c *WsConn,
	data []byte,
) {
	type voteStartPayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId" validate:"required"`
		Target string `json:"userForKickId" validate:"required"`
	}
	var p voteStartPayload
	if !ctl.checkPayload(c, data, &p) {
		return
	}

	log.Info().Str("module", "signal").Str("room", p.RoomID).Str("target", p.Target).Msg("vote start")
	err := ctl.Orch.StartVote(ctx, domain.RoomID(p.RoomID), domain.ParticipantID(p.Target))
	if err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *GameWSController) handleVoteCast(
	ctx context.Context,
	conn core.ConnID,
	c *WsConn,
	data []byte,
) {
	type voteCastPayload struct {
		Type   string `json:"type"`
		Target string `json:"userForKickId" validate:"required"`
		Vote   *bool  `json:"vote" validate:"required"`
	}
	var p voteCastPayload
	if !ctl.checkPayload(c, data, &p) {
		return
	}

	// The voter is whoever owns this connection; clients cannot vote on
	// someone else's behalf.
	voter, err := ctl.Orch.Registry.ResolveParticipant(conn)
	if err != nil {
		ctl.sendError(c, err)
		return
	}

	log.Info().Str("module", "signal").Str("target", p.Target).Str("voter", string(voter)).Bool("vote", *p.Vote).Msg("vote cast")
	if err := ctl.Orch.CastVote(ctx, domain.ParticipantID(p.Target), voter, *p.Vote); err != nil {
		ctl.sendError(c, err)
	}
}
