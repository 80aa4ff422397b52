package core

// Outbound broadcast kinds. Every broadcast carries the post-mutation
// state, never a raw delta, so a freshly (re)joined client catches up
// from a single snapshot.
const (
	OnConnected  = "clientConnected"
	OnJoin       = "OnJoin"
	OnUserDelete = "OnUserDelete"
	OnRoomDelete = "OnRoomDelete"
	OnMessage    = "OnMessage"
	OnBet        = "OnBet"
	OnVoteStart  = "OnVoteStart"
	OnVoteResult = "OnVoteResult"
	OnKick       = "OnKick"
	OnPlay       = "OnPlay"
	OnRunRound   = "OnRunRound"
	OnStopRound  = "OnStopRound"
	OnEndGame    = "OnEndGame"
	OnError      = "error"
)
