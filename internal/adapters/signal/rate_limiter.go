package signal

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Poker/internal/domain"
)

var ErrRateLimited = errors.New("too many events")

// Event kinds with their own flood budget. A burst of cards while the
// table reveals is normal play; a burst of chat is spam, so the two get
// separate allowances.
const (
	kindChat = "chat"
	kindBet  = "bet"
)

type budget struct {
	limit    int
	interval time.Duration
}

type limiterKey struct {
	pid  domain.ParticipantID
	kind string
}

// RateLimiter caps how many events of a kind one participant may emit
// per interval, so a noisy client cannot flood a room's broadcast
// stream. Kinds without a configured budget pass unthrottled.
type RateLimiter struct {
	mu      sync.Mutex
	budgets map[string]budget
	history map[limiterKey][]time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		budgets: map[string]budget{
			kindChat: {limit: 10, interval: time.Second},
			kindBet:  {limit: 30, interval: time.Second},
		},
		history: make(map[limiterKey][]time.Time),
	}
}

// Allow records one attempt and reports whether it fits the budget.
func (rl *RateLimiter) Allow(pid domain.ParticipantID, kind string) bool {
	b, ok := rl.budgets[kind]
	if !ok {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := limiterKey{pid: pid, kind: kind}
	cutoff := time.Now().Add(-b.interval)

	attempts := rl.history[key]
	for len(attempts) > 0 && !attempts[0].After(cutoff) {
		attempts = attempts[1:]
	}

	if len(attempts) >= b.limit {
		rl.history[key] = attempts
		return false
	}
	rl.history[key] = append(attempts, time.Now())
	return true
}
