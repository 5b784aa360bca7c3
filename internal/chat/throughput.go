package chat

import (
	"fmt"
	"strings"
	"time"
)

// MinElapsed bounds the divisor of the tokens/sec figure so a generation
// faster than the clock resolution still yields a finite number.
const MinElapsed = time.Millisecond

// Scope selects which tokens and time a throughput figure covers.
type Scope string

const (
	// ScopeTurn counts only the tokens and time of the latest turn.
	ScopeTurn Scope = "turn"
	// ScopeSession divides all streamed tokens by all streaming time so far.
	ScopeSession Scope = "session"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeTurn:
		return ScopeTurn, nil
	case ScopeSession:
		return ScopeSession, nil
	default:
		return "", fmt.Errorf("unknown throughput scope %q (turn, session)", s)
	}
}

// TokensPerSecond returns floor(tokens / elapsed seconds), never negative.
func TokensPerSecond(tokens int, elapsed time.Duration) int {
	if tokens <= 0 {
		return 0
	}
	if elapsed < MinElapsed {
		elapsed = MinElapsed
	}
	return int(int64(tokens) * int64(time.Second) / int64(elapsed))
}

type TurnStats struct {
	Tokens  int
	Elapsed time.Duration
	TPS     int
}

// TokenCounter counts streamed tokens. It is only touched from the
// generating goroutine, so it carries no lock.
type TokenCounter struct {
	scope Scope

	turnTokens     int
	sessionTokens  int
	sessionElapsed time.Duration
}

func NewTokenCounter(scope Scope) *TokenCounter {
	if scope == "" {
		scope = ScopeTurn
	}
	return &TokenCounter{scope: scope}
}

// BeginTurn resets the per-turn count.
func (c *TokenCounter) BeginTurn() {
	c.turnTokens = 0
}

func (c *TokenCounter) Inc() {
	c.turnTokens++
	c.sessionTokens++
}

// EndTurn closes the turn that took elapsed and reports its throughput
// according to the counter's scope.
func (c *TokenCounter) EndTurn(elapsed time.Duration) TurnStats {
	c.sessionElapsed += elapsed
	if c.scope == ScopeSession {
		return TurnStats{
			Tokens:  c.sessionTokens,
			Elapsed: c.sessionElapsed,
			TPS:     TokensPerSecond(c.sessionTokens, c.sessionElapsed),
		}
	}
	return TurnStats{
		Tokens:  c.turnTokens,
		Elapsed: elapsed,
		TPS:     TokensPerSecond(c.turnTokens, elapsed),
	}
}
