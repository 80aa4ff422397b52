// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxDisplayNameLen = 36

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

type ParticipantID string

type Role string

const (
	// RoleMaster is the room owner; excluded from the kick-eligible
	// voter pool when the rules say the master is not a player.
	RoleMaster   Role = "master"
	RolePlayer   Role = "player"
	RoleObserver Role = "observer"
)

type Participant struct {
	ID          ParticipantID `json:"id"`
	DisplayName string        `json:"displayName"`
	Role        Role          `json:"role"`
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(displayName string, role Role) (*Participant, error) {
	if len(displayName) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	if role == "" {
		role = RolePlayer
	}
	return &Participant{ID: ParticipantID(uuid.NewString()), DisplayName: displayName, Role: role}, nil
}
