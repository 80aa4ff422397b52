// Package signal is the websocket event dispatcher: it validates
// inbound client events, invokes exactly one coordination operation per
// event and lets the broadcaster fan the resulting state out.
package signal

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/app/orch"
	"github.com/dkeye/Poker/internal/config"
	"github.com/dkeye/Poker/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type GameWSController struct {
	Orch     *orch.Orchestrator
	Limiter  *RateLimiter
	validate *validator.Validate

	readLimit int64
}

func NewGameWSController(o *orch.Orchestrator, cfg *config.Config) *GameWSController {
	v := validator.New()
	// Report wire field names, not Go names, in validation errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &GameWSController{
		Orch:      o,
		Limiter:   NewRateLimiter(),
		validate:  v,
		readLimit: cfg.ReadLimit,
	}
}

type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleGame upgrades the request and runs the connection until the
// transport drops. A fresh connection id is minted per socket; identity
// comes from the join or reconnect event, not from the transport.
func (ctl *GameWSController) HandleGame(ctx context.Context, c *gin.Context) {
	connID := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, connID, conn)
	}()

	ctl.sendJSON(conn, core.OnConnected, connID)

	// A token in the query string means the client is recovering from a
	// transient drop; rebind before the grace window runs out.
	if token := c.Query("token"); token != "" {
		if _, err := ctl.Orch.Reconnect(ctx, connID, token, conn); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("reconnect failed")
			ctl.sendError(conn, err)
		}
	}
}
