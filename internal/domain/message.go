package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageID string

type Message struct {
	ID            MessageID     `json:"id"`
	RoomID        RoomID        `json:"roomId"`
	ParticipantID ParticipantID `json:"userId,omitempty"`
	Content       string        `json:"content"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func NewMessage(room RoomID, from ParticipantID, content string) *Message {
	return &Message{
		ID:            MessageID(uuid.NewString()),
		RoomID:        room,
		ParticipantID: from,
		Content:       content,
		CreatedAt:     time.Now().UTC(),
	}
}
