package orch

import (
	"context"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// BetTallyPayload is the post-mutation tally for one issue.
type BetTallyPayload struct {
	IssueID domain.IssueID `json:"issueId"`
	Bets    []domain.Bet   `json:"bets"`
}

// RoundStatePayload mirrors the round-control actions back to the room.
type RoundStatePayload struct {
	RoomID         domain.RoomID `json:"roomId"`
	IsGameStarted  bool          `json:"isGameStarted"`
	IsRoundStarted bool          `json:"isRoundStarted"`
}

// PlaceBet upserts the participant's estimate and broadcasts the
// refreshed tally for the issue.
func (o *Orchestrator) PlaceBet(ctx context.Context, room domain.RoomID, bet domain.Bet) error {
	defer o.rooms.acquire(room).Unlock()
	if err := o.Store.UpsertBet(ctx, bet); err != nil {
		return depFail("upsertBet", err)
	}
	bets, err := o.Store.GetBetsByIssue(ctx, bet.IssueID)
	if err != nil {
		return depFail("getBetsByIssue", err)
	}
	o.Cast.Emit(room, core.OnBet, BetTallyPayload{IssueID: bet.IssueID, Bets: bets})
	return nil
}

// PostMessage persists a chat message and broadcasts the created record.
func (o *Orchestrator) PostMessage(ctx context.Context, room domain.RoomID, from domain.ParticipantID, content string) error {
	defer o.rooms.acquire(room).Unlock()
	msg := domain.NewMessage(room, from, content)
	if err := o.Store.CreateMessage(ctx, msg); err != nil {
		return depFail("createMessage", err)
	}
	o.Cast.Emit(room, core.OnMessage, msg)
	return nil
}

// RoundControl fans a table-state change out to the room. Pure
// broadcast, no persistence.
func (o *Orchestrator) RoundControl(room domain.RoomID, action string) error {
	defer o.rooms.acquire(room).Unlock()
	switch action {
	case "play":
		o.Cast.Emit(room, core.OnPlay, RoundStatePayload{RoomID: room, IsGameStarted: true})
	case "run":
		o.Cast.Emit(room, core.OnRunRound, RoundStatePayload{RoomID: room, IsGameStarted: true, IsRoundStarted: true})
	case "stop":
		o.Cast.Emit(room, core.OnStopRound, RoundStatePayload{RoomID: room, IsGameStarted: true})
	case "finish":
		o.Cast.Emit(room, core.OnEndGame, RoundStatePayload{RoomID: room})
	default:
		return core.ValidationError{Field: "action"}
	}
	return nil
}
