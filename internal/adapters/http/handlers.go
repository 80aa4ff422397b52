package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/app/orch"
	"github.com/dkeye/Poker/internal/auth"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

type Handlers struct {
	Orch   *orch.Orchestrator
	Store  core.Store
	Tokens *auth.Tokens
}

func (h *Handlers) caller(c *gin.Context) domain.ParticipantID {
	return domain.ParticipantID(c.GetString("participant_id"))
}

func fail(c *gin.Context, err error) {
	var vErr core.ValidationError
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrAlreadyOpen), errors.Is(err, core.ErrNoOpenRound):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error().Str("module", "adapters.http").Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type createUserRequest struct {
	DisplayName string `json:"username" binding:"required"`
	Role        string `json:"role"`
}

func (h *Handlers) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RolePlayer
	}
	p, err := domain.NewParticipant(req.DisplayName, role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Store.CreateParticipant(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	token, err := h.Tokens.Mint(p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": p, "token": token})
}

func (h *Handlers) GetCurrentUser(c *gin.Context) {
	p, err := h.Store.GetParticipant(c.Request.Context(), h.caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type createRoomRequest struct {
	Title string        `json:"title" binding:"required"`
	Rules *domain.Rules `json:"rules"`
}

func (h *Handlers) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	room := domain.NewRoom(req.Title, h.caller(c))
	if req.Rules != nil {
		room.Rules = *req.Rules
	}
	if err := h.Store.CreateRoom(c.Request.Context(), room); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *Handlers) GetRoom(c *gin.Context) {
	room, err := h.Store.GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handlers) GetRoomMembers(c *gin.Context) {
	members, err := h.Store.GetRoomMembers(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": members})
}

func (h *Handlers) GetRoomCreator(c *gin.Context) {
	room, err := h.Store.GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	creator, err := h.Store.GetParticipant(c.Request.Context(), room.OwnerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, creator)
}

type updateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *Handlers) UpdateRoomTitle(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	if err := h.requireOwner(c, roomID); err != nil {
		fail(c, err)
		return
	}
	var req updateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Store.UpdateRoomTitle(c.Request.Context(), roomID, req.Title); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": req.Title})
}

func (h *Handlers) SetRoomRules(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	if err := h.requireOwner(c, roomID); err != nil {
		fail(c, err)
		return
	}
	var rules domain.Rules
	if err := c.ShouldBindJSON(&rules); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Store.SetRoomRules(c.Request.Context(), roomID, rules); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handlers) DeleteRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	if err := h.requireOwner(c, roomID); err != nil {
		fail(c, err)
		return
	}
	if err := h.Orch.TeardownRoom(c.Request.Context(), roomID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": string(roomID)})
}

func (h *Handlers) LeaveRoom(c *gin.Context) {
	if err := h.Orch.Leave(c.Request.Context(), h.caller(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) GetRoomIssues(c *gin.Context) {
	issues, err := h.Store.GetRoomIssues(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

type issueRequest struct {
	Title    string `json:"title" binding:"required"`
	Priority string `json:"priority"`
	Link     string `json:"link"`
}

func (h *Handlers) CreateIssue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	issue := domain.NewIssue(req.Title, req.Priority, req.Link)
	if err := h.Store.CreateIssue(c.Request.Context(), domain.RoomID(c.Param("id")), issue); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

func (h *Handlers) UpdateIssue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	issue := domain.Issue{
		ID:       domain.IssueID(c.Param("issueId")),
		Title:    req.Title,
		Priority: req.Priority,
		Link:     req.Link,
	}
	if err := h.Store.UpdateIssue(c.Request.Context(), domain.RoomID(c.Param("id")), issue); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (h *Handlers) DeleteIssue(c *gin.Context) {
	err := h.Store.DeleteIssue(c.Request.Context(), domain.RoomID(c.Param("id")), domain.IssueID(c.Param("issueId")))
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) GetBetsByIssue(c *gin.Context) {
	bets, err := h.Store.GetBetsByIssue(c.Request.Context(), domain.IssueID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

func (h *Handlers) GetRoomMessages(c *gin.Context) {
	messages, err := h.Store.GetRoomMessages(c.Request.Context(), domain.RoomID(c.Param("roomId")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handlers) requireOwner(c *gin.Context, roomID domain.RoomID) error {
	room, err := h.Store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		return err
	}
	if room.OwnerID != h.caller(c) {
		return core.ErrPermissionDenied
	}
	return nil
}
