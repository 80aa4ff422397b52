package domain

// Bet is one participant's estimate for one issue.
// A participant has at most one bet per issue; a re-bet overwrites.
type Bet struct {
	ParticipantID ParticipantID `json:"userId"`
	IssueID       IssueID       `json:"issueId"`
	Content       string        `json:"content"`
}
