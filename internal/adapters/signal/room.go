package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

func (ctl *GameWSController) handleJoin(
	ctx context.Context,
	conn core.ConnID,
	c *WsConn,
	data []byte,
) {
	type joinPayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId" validate:"required"`
		UserID string `json:"userId" validate:"required"`
	}
	var p joinPayload
	if !ctl.checkPayload(c, data, &p) {
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(conn)).Str("room", p.RoomID).Str("participant", p.UserID).Msg("join")
	err := ctl.Orch.Join(ctx, conn, domain.ParticipantID(p.UserID), domain.RoomID(p.RoomID), c)
	if err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *GameWSController) handleReconnect(
	ctx context.Context,
	conn core.ConnID,
	c *WsConn,
	data []byte,
) {
	type reconnectPayload struct {
		Type  string `json:"type"`
		Token string `json:"token" validate:"required"`
	}
	var p reconnectPayload
	if !ctl.checkPayload(c, data, &p) {
		return
	}

	room, err := ctl.Orch.Reconnect(ctx, conn, p.Token, c)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(conn)).Str("room", string(room)).Msg("reconnected")
}
