package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

func (ctl *GameWSController) handleBet(
	ctx context.Context,
	conn core.ConnID,
	c *WsConn,
	data []byte,
) {
	type betPayload struct {
		Type    string `json:"type"`
		RoomID  string `json:"roomId" validate:"required"`
		UserID  string `json:"userId" validate:"required"`
		IssueID string `json:"issueId" validate:"required"`
		Content string `json:"content" validate:"required"`
	}
	var p betPayload
	if !ctl.checkPayload(c, data, &p) {
		return
	}
	if !ctl.Limiter.Allow(domain.ParticipantID(p.UserID), kindBet) {
		ctl.sendError(c, ErrRateLimited)
		return
	}

	log.Info().Str("module", "signal").Str("participant", p.UserID).Str("issue", p.IssueID).Msg("bet")
	bet := domain.Bet{
		ParticipantID: domain.ParticipantID(p.UserID),
		IssueID:       domain.IssueID(p.IssueID),
		Content:       p.Content,
	}
	if err := ctl.Orch.PlaceBet(ctx, domain.RoomID(p.RoomID), bet); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *GameWSController) handleMessage(
	ctx context.Context,
	conn core.ConnID,
	c *WsConn,
	data []byte,
) {
	type messagePayload struct {
		Type    string `json:"type"`
		RoomID  string `json:"roomId" validate:"required"`
		Content string `json:"content" validate:"required"`
	}
	var p messagePayload
	if !ctl.checkPayload(c, data, &p) {
		return
	}

	from, err := ctl.Orch.Registry.ResolveParticipant(conn)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	if !ctl.Limiter.Allow(from, kindChat) {
		ctl.sendError(c, ErrRateLimited)
		return
	}
	if err := ctl.Orch.PostMessage(ctx, domain.RoomID(p.RoomID), from, p.Content); err != nil {
		ctl.sendError(c, err)
	}
}

// handleRoundControl maps the table-control events onto one state
// broadcast each.
func (ctl *GameWSController) handleRoundControl(
	conn core.ConnID,
	c *WsConn,
	kind string,
	data []byte,
) {
	type roundPayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId" validate:"required"`
	}
	var p roundPayload
	if !ctl.checkPayload(c, data, &p) {
		return
	}

	actions := map[string]string{
		"play":      "play",
		"runRound":  "run",
		"stopRound": "stop",
		"endGame":   "finish",
	}
	log.Info().Str("module", "signal").Str("room", p.RoomID).Str("action", kind).Msg("round control")
	if err := ctl.Orch.RoundControl(domain.RoomID(p.RoomID), actions[kind]); err != nil {
		ctl.sendError(c, err)
	}
}
