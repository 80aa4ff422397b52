package core

import (
	"context"

	"github.com/dkeye/Poker/internal/domain"
)

// Store is the durable persistence boundary. The coordination core
// calls it by named operation and treats results as opaque values for
// broadcast; it never reads or writes the records directly.
//
// Implementations return ErrNotFound for absent entities. No store
// transaction spans an in-memory registry mutation: memory and durable
// state converge through idempotent cleanup, not retries.
type Store interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	DeleteRoom(ctx context.Context, id domain.RoomID) error
	UpdateRoomTitle(ctx context.Context, id domain.RoomID, title string) error
	SetRoomRules(ctx context.Context, id domain.RoomID, rules domain.Rules) error
	RoomByParticipant(ctx context.Context, pid domain.ParticipantID) (*domain.Room, error)

	AddMemberToRoom(ctx context.Context, room domain.RoomID, pid domain.ParticipantID) error
	DeleteMemberFromRoom(ctx context.Context, pid domain.ParticipantID) error
	GetRoomMembers(ctx context.Context, room domain.RoomID) ([]domain.Participant, error)

	CreateParticipant(ctx context.Context, p *domain.Participant) error
	GetParticipant(ctx context.Context, id domain.ParticipantID) (*domain.Participant, error)
	DeleteParticipant(ctx context.Context, id domain.ParticipantID) error

	CreateIssue(ctx context.Context, room domain.RoomID, issue domain.Issue) error
	UpdateIssue(ctx context.Context, room domain.RoomID, issue domain.Issue) error
	DeleteIssue(ctx context.Context, room domain.RoomID, id domain.IssueID) error
	GetRoomIssues(ctx context.Context, room domain.RoomID) ([]domain.Issue, error)

	UpsertBet(ctx context.Context, bet domain.Bet) error
	GetBetsByIssue(ctx context.Context, issue domain.IssueID) ([]domain.Bet, error)

	CreateMessage(ctx context.Context, msg *domain.Message) error
	GetRoomMessages(ctx context.Context, room domain.RoomID) ([]domain.Message, error)

	Close() error
}
