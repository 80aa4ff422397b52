package domain

import "github.com/google/uuid"

type (
	RoomID  string
	IssueID string
)

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// Rules are the per-room game settings chosen by the owner.
// Field names on the wire follow the original client contract.
type Rules struct {
	MasterAsPlayer        bool     `json:"masterAsAPlayer"`
	CardType              []string `json:"cardType"`
	NewUsersEnter         bool     `json:"newUsersEnter"`
	AutoRotateCards       bool     `json:"autoRotateCardsAfterVote"`
	ChangeChoiceAfterFlip bool     `json:"changeChoiseAfterCardsRotate"`
	TimerNeeded           bool     `json:"isTimerNeeded"`
	RoundTimeSec          int      `json:"roundTime"`
}

func DefaultRules() Rules {
	return Rules{
		MasterAsPlayer: true,
		CardType:       []string{"1", "2", "3", "5", "8", "13", "21", "?"},
		NewUsersEnter:  true,
		RoundTimeSec:   120,
	}
}

type Issue struct {
	ID       IssueID `json:"id"`
	Title    string  `json:"issueTitle"`
	Priority string  `json:"priority"`
	Link     string  `json:"link"`
}

type Room struct {
	ID      RoomID          `json:"id"`
	Title   string          `json:"roomTitle"`
	OwnerID ParticipantID   `json:"roomCreator"`
	Rules   Rules           `json:"rules"`
	Members []ParticipantID `json:"members"`
	Issues  []Issue         `json:"issues"`
	Status  RoomStatus      `json:"status"`
}

func NewRoom(title string, owner ParticipantID) *Room {
	return &Room{
		ID:      RoomID(uuid.NewString()),
		Title:   title,
		OwnerID: owner,
		Rules:   DefaultRules(),
		Members: []ParticipantID{owner},
		Status:  RoomWaiting,
	}
}

func NewIssue(title, priority, link string) Issue {
	return Issue{ID: IssueID(uuid.NewString()), Title: title, Priority: priority, Link: link}
}
