package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
)

func (ctl *GameWSController) writePump(ctx context.Context, c *WsConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *GameWSController) readPump(ctx context.Context, conn core.ConnID, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(conn)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(conn)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(conn)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(conn)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(ctx, conn, c, data)
		}
	}
}

// handleEvent routes one inbound event from the fixed event table.
// Handlers never branch on anything but their own payload.
func (ctl *GameWSController) handleEvent(ctx context.Context, conn core.ConnID, c *WsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, core.ValidationError{Field: "type"})
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(ctx, conn, c, data)
	case "reconnect":
		ctl.handleReconnect(ctx, conn, c, data)
	case "bet":
		ctl.handleBet(ctx, conn, c, data)
	case "message":
		ctl.handleMessage(ctx, conn, c, data)
	case "startVote":
		ctl.handleVoteStart(ctx, conn, c, data)
	case "castVote":
		ctl.handleVoteCast(ctx, conn, c, data)
	case "play", "runRound", "stopRound", "endGame":
		ctl.handleRoundControl(conn, c, env.Type, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}

// checkPayload unmarshals and validates one event payload. The first
// failing field is reported as a ValidationError to the origin only.
func (ctl *GameWSController) checkPayload(c *WsConn, data []byte, p any) bool {
	if err := json.Unmarshal(data, p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad payload")
		ctl.sendError(c, core.ValidationError{Field: "payload"})
		return false
	}
	if err := ctl.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			ctl.sendError(c, core.ValidationError{Field: verrs[0].Field()})
		} else {
			ctl.sendError(c, core.ValidationError{Field: "payload"})
		}
		return false
	}
	return true
}

func (ctl *GameWSController) sendJSON(c *WsConn, kind string, payload any) {
	b, err := json.Marshal(app.Envelope{Type: kind, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *GameWSController) sendError(c *WsConn, err error) {
	ctl.sendJSON(c, core.OnError, err.Error())
}

func (ctl *GameWSController) handlePing(c *WsConn) {
	ctl.sendJSON(c, "pong", nil)
}
