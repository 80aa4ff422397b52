package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// Key layout:
//
//	room/<roomID>                → domain.Room
//	participant/<participantID>  → domain.Participant
//	memberof/<participantID>     → roomID (membership index)
//	bet/<issueID>/<participantID>→ domain.Bet
//	message/<roomID>/<messageID> → domain.Message
//
// Issues travel inside the room record, like the original document model.
type Badger struct {
	db *badger.DB
}

func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	log.Info().Str("module", "store.badger").Str("dir", dir).Msg("store opened")
	return &Badger{db: db}, nil
}

func roomKey(id domain.RoomID) []byte               { return []byte("room/" + id) }
func participantKey(id domain.ParticipantID) []byte { return []byte("participant/" + id) }
func memberOfKey(id domain.ParticipantID) []byte    { return []byte("memberof/" + id) }
func betKey(issue domain.IssueID, pid domain.ParticipantID) []byte {
	return []byte(fmt.Sprintf("bet/%s/%s", issue, pid))
}
func messageKey(room domain.RoomID, id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("message/%s/%s", room, id))
}

func getJSON[T any](txn *badger.Txn, key []byte, out *T) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}

func (s *Badger) CreateRoom(_ context.Context, room *domain.Room) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, roomKey(room.ID), room); err != nil {
			return err
		}
		for _, pid := range room.Members {
			if err := txn.Set(memberOfKey(pid), []byte(room.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Badger) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	var room domain.Room
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, roomKey(id), &room)
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Badger) DeleteRoom(_ context.Context, id domain.RoomID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var room domain.Room
		if err := getJSON(txn, roomKey(id), &room); err != nil {
			return err
		}
		for _, pid := range room.Members {
			if err := txn.Delete(memberOfKey(pid)); err != nil {
				return err
			}
		}
		return txn.Delete(roomKey(id))
	})
}

func (s *Badger) UpdateRoomTitle(ctx context.Context, id domain.RoomID, title string) error {
	return s.mutateRoom(id, func(room *domain.Room) error {
		room.Title = title
		return nil
	})
}

func (s *Badger) SetRoomRules(_ context.Context, id domain.RoomID, rules domain.Rules) error {
	return s.mutateRoom(id, func(room *domain.Room) error {
		room.Rules = rules
		return nil
	})
}

func (s *Badger) mutateRoom(id domain.RoomID, mutate func(*domain.Room) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var room domain.Room
		if err := getJSON(txn, roomKey(id), &room); err != nil {
			return err
		}
		if err := mutate(&room); err != nil {
			return err
		}
		return setJSON(txn, roomKey(id), &room)
	})
}

func (s *Badger) RoomByParticipant(_ context.Context, pid domain.ParticipantID) (*domain.Room, error) {
	var room domain.Room
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(memberOfKey(pid))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}
		var roomID domain.RoomID
		if err := item.Value(func(val []byte) error {
			roomID = domain.RoomID(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, roomKey(roomID), &room)
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Badger) AddMemberToRoom(_ context.Context, roomID domain.RoomID, pid domain.ParticipantID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var room domain.Room
		if err := getJSON(txn, roomKey(roomID), &room); err != nil {
			return err
		}
		found := false
		for _, m := range room.Members {
			if m == pid {
				found = true
				break
			}
		}
		if !found {
			room.Members = append(room.Members, pid)
			if err := setJSON(txn, roomKey(roomID), &room); err != nil {
				return err
			}
		}
		return txn.Set(memberOfKey(pid), []byte(roomID))
	})
}

func (s *Badger) DeleteMemberFromRoom(_ context.Context, pid domain.ParticipantID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(memberOfKey(pid))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}
		var roomID domain.RoomID
		if err := item.Value(func(val []byte) error {
			roomID = domain.RoomID(val)
			return nil
		}); err != nil {
			return err
		}
		var room domain.Room
		if err := getJSON(txn, roomKey(roomID), &room); err == nil {
			kept := room.Members[:0]
			for _, m := range room.Members {
				if m != pid {
					kept = append(kept, m)
				}
			}
			room.Members = kept
			if err := setJSON(txn, roomKey(roomID), &room); err != nil {
				return err
			}
		}
		return txn.Delete(memberOfKey(pid))
	})
}

func (s *Badger) GetRoomMembers(_ context.Context, roomID domain.RoomID) ([]domain.Participant, error) {
	var out []domain.Participant
	err := s.db.View(func(txn *badger.Txn) error {
		var room domain.Room
		if err := getJSON(txn, roomKey(roomID), &room); err != nil {
			return err
		}
		out = make([]domain.Participant, 0, len(room.Members))
		for _, pid := range room.Members {
			var p domain.Participant
			if err := getJSON(txn, participantKey(pid), &p); err != nil {
				if errors.Is(err, core.ErrNotFound) {
					continue
				}
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Badger) CreateParticipant(_ context.Context, p *domain.Participant) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, participantKey(p.ID), p)
	})
}

func (s *Badger) GetParticipant(_ context.Context, id domain.ParticipantID) (*domain.Participant, error) {
	var p domain.Participant
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, participantKey(id), &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Badger) DeleteParticipant(_ context.Context, id domain.ParticipantID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(participantKey(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return core.ErrNotFound
		}
		return txn.Delete(participantKey(id))
	})
}

func (s *Badger) CreateIssue(_ context.Context, roomID domain.RoomID, issue domain.Issue) error {
	return s.mutateRoom(roomID, func(room *domain.Room) error {
		room.Issues = append(room.Issues, issue)
		return nil
	})
}

func (s *Badger) UpdateIssue(_ context.Context, roomID domain.RoomID, issue domain.Issue) error {
	return s.mutateRoom(roomID, func(room *domain.Room) error {
		for i := range room.Issues {
			if room.Issues[i].ID == issue.ID {
				room.Issues[i] = issue
				return nil
			}
		}
		return core.ErrNotFound
	})
}

func (s *Badger) DeleteIssue(_ context.Context, roomID domain.RoomID, id domain.IssueID) error {
	return s.mutateRoom(roomID, func(room *domain.Room) error {
		kept := room.Issues[:0]
		for _, iss := range room.Issues {
			if iss.ID != id {
				kept = append(kept, iss)
			}
		}
		room.Issues = kept
		return nil
	})
}

func (s *Badger) GetRoomIssues(ctx context.Context, roomID domain.RoomID) ([]domain.Issue, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room.Issues, nil
}

func (s *Badger) UpsertBet(_ context.Context, bet domain.Bet) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, betKey(bet.IssueID, bet.ParticipantID), bet)
	})
}

func (s *Badger) GetBetsByIssue(_ context.Context, issue domain.IssueID) ([]domain.Bet, error) {
	var out []domain.Bet
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(fmt.Sprintf("bet/%s/", issue)), &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Badger) CreateMessage(_ context.Context, msg *domain.Message) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, messageKey(msg.RoomID, msg.ID), msg)
	})
}

func (s *Badger) GetRoomMessages(_ context.Context, roomID domain.RoomID) ([]domain.Message, error) {
	var out []domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(fmt.Sprintf("message/%s/", roomID)), &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanPrefix[T any](txn *badger.Txn, prefix []byte, out *[]T) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return err
		}
		*out = append(*out, v)
	}
	return nil
}

func (s *Badger) Close() error { return s.db.Close() }
