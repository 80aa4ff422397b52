package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/adapters/signal"
	"github.com/dkeye/Poker/internal/app/orch"
	"github.com/dkeye/Poker/internal/auth"
	"github.com/dkeye/Poker/internal/config"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// AuthRequired resolves the participant identity from the Bearer token
// and stores it in the request context.
func AuthRequired(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		pid, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("participant_id", string(pid))
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, tokens *auth.Tokens) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PokerSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	h := &Handlers{Orch: o, Store: o.Store, Tokens: tokens}

	api := r.Group("/api")
	api.POST("/users", h.CreateUser)

	wsCtl := signal.NewGameWSController(o, cfg)
	api.GET("/ws/game", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws game endpoint hit")
		wsCtl.HandleGame(ctx, c)
	})

	authed := api.Group("", AuthRequired(tokens))
	{
		authed.GET("/users/me", h.GetCurrentUser)

		authed.POST("/room", h.CreateRoom)
		authed.GET("/room/:id", h.GetRoom)
		authed.GET("/room/:id/users", h.GetRoomMembers)
		authed.GET("/room/:id/creator", h.GetRoomCreator)
		authed.PUT("/room/:id/title", h.UpdateRoomTitle)
		authed.PUT("/room/:id/rules", h.SetRoomRules)
		authed.DELETE("/room/:id", h.DeleteRoom)
		authed.POST("/room/:id/leave", h.LeaveRoom)

		authed.GET("/room/:id/issues", h.GetRoomIssues)
		authed.POST("/room/:id/issues", h.CreateIssue)
		authed.PUT("/room/:id/issues/:issueId", h.UpdateIssue)
		authed.DELETE("/room/:id/issues/:issueId", h.DeleteIssue)

		authed.GET("/game/issues/:id/bets", h.GetBetsByIssue)
		authed.GET("/messages/:roomId", h.GetRoomMessages)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "API endpoint doesn't exist"})
	})

	return r
}
