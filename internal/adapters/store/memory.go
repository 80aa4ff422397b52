// Package store provides the persistence adapters behind core.Store:
// an embedded badger database for normal operation and an in-memory
// variant for dev mode and tests.
package store

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// Memory is a process-local Store. Everything is lost on restart,
// which matches dev-mode expectations.
type Memory struct {
	mu           sync.RWMutex
	rooms        map[domain.RoomID]*domain.Room
	participants map[domain.ParticipantID]*domain.Participant
	memberOf     map[domain.ParticipantID]domain.RoomID
	bets         map[domain.IssueID]map[domain.ParticipantID]domain.Bet
	messages     map[domain.RoomID][]domain.Message
}

func NewMemory() *Memory {
	return &Memory{
		rooms:        make(map[domain.RoomID]*domain.Room),
		participants: make(map[domain.ParticipantID]*domain.Participant),
		memberOf:     make(map[domain.ParticipantID]domain.RoomID),
		bets:         make(map[domain.IssueID]map[domain.ParticipantID]domain.Bet),
		messages:     make(map[domain.RoomID][]domain.Message),
	}
}

func (m *Memory) CreateRoom(_ context.Context, room *domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *room
	m.rooms[room.ID] = &cp
	for _, pid := range room.Members {
		m.memberOf[pid] = room.ID
	}
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (m *Memory) DeleteRoom(_ context.Context, id domain.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return core.ErrNotFound
	}
	for _, pid := range room.Members {
		delete(m.memberOf, pid)
	}
	delete(m.rooms, id)
	return nil
}

func (m *Memory) UpdateRoomTitle(_ context.Context, id domain.RoomID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return core.ErrNotFound
	}
	room.Title = title
	return nil
}

func (m *Memory) SetRoomRules(_ context.Context, id domain.RoomID, rules domain.Rules) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return core.ErrNotFound
	}
	room.Rules = rules
	return nil
}

func (m *Memory) RoomByParticipant(_ context.Context, pid domain.ParticipantID) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.memberOf[pid]
	if !ok {
		return nil, core.ErrNotFound
	}
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (m *Memory) AddMemberToRoom(_ context.Context, roomID domain.RoomID, pid domain.ParticipantID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return core.ErrNotFound
	}
	if !lo.Contains(room.Members, pid) {
		room.Members = append(room.Members, pid)
	}
	m.memberOf[pid] = roomID
	return nil
}

func (m *Memory) DeleteMemberFromRoom(_ context.Context, pid domain.ParticipantID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID, ok := m.memberOf[pid]
	if !ok {
		return core.ErrNotFound
	}
	delete(m.memberOf, pid)
	if room, ok := m.rooms[roomID]; ok {
		room.Members = lo.Without(room.Members, pid)
	}
	return nil
}

func (m *Memory) GetRoomMembers(_ context.Context, roomID domain.RoomID) ([]domain.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, core.ErrNotFound
	}
	out := make([]domain.Participant, 0, len(room.Members))
	for _, pid := range room.Members {
		if p, ok := m.participants[pid]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *Memory) CreateParticipant(_ context.Context, p *domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.participants[p.ID] = &cp
	return nil
}

func (m *Memory) GetParticipant(_ context.Context, id domain.ParticipantID) (*domain.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) DeleteParticipant(_ context.Context, id domain.ParticipantID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.participants, id)
	return nil
}

func (m *Memory) CreateIssue(_ context.Context, roomID domain.RoomID, issue domain.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return core.ErrNotFound
	}
	room.Issues = append(room.Issues, issue)
	return nil
}

func (m *Memory) UpdateIssue(_ context.Context, roomID domain.RoomID, issue domain.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return core.ErrNotFound
	}
	for i := range room.Issues {
		if room.Issues[i].ID == issue.ID {
			room.Issues[i] = issue
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *Memory) DeleteIssue(_ context.Context, roomID domain.RoomID, id domain.IssueID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return core.ErrNotFound
	}
	room.Issues = lo.Reject(room.Issues, func(iss domain.Issue, _ int) bool { return iss.ID == id })
	return nil
}

func (m *Memory) GetRoomIssues(_ context.Context, roomID domain.RoomID) ([]domain.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return append([]domain.Issue(nil), room.Issues...), nil
}

func (m *Memory) UpsertBet(_ context.Context, bet domain.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bets[bet.IssueID]; !ok {
		m.bets[bet.IssueID] = make(map[domain.ParticipantID]domain.Bet)
	}
	m.bets[bet.IssueID][bet.ParticipantID] = bet
	return nil
}

func (m *Memory) GetBetsByIssue(_ context.Context, issue domain.IssueID) ([]domain.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Values(m.bets[issue]), nil
}

func (m *Memory) CreateMessage(_ context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.RoomID] = append(m.messages[msg.RoomID], *msg)
	return nil
}

func (m *Memory) GetRoomMessages(_ context.Context, roomID domain.RoomID) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Message(nil), m.messages[roomID]...), nil
}

func (m *Memory) Close() error { return nil }
