package genai

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

func init() {
	Register("echo", func() Runtime { return &Echo{} })
}

// Echo is a dependency-free runtime that answers every message with the
// message itself. It lets the chat loop and the HTTP server run without a
// native model.
type Echo struct {
	mu  sync.Mutex
	cfg *Config
}

func (e *Echo) Initialize(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()
	e.mu.Lock()
	e.cfg = &cfg
	e.mu.Unlock()
	return nil
}

func (e *Echo) Generate(ctx context.Context, message string) (string, error) {
	pieces, err := e.pieces(ctx, message)
	if err != nil {
		return "", err
	}
	return strings.Join(pieces, ""), nil
}

func (e *Echo) GenerateStream(ctx context.Context, message string, stream StreamFunc) error {
	pieces, err := e.pieces(ctx, message)
	if err != nil {
		return err
	}
	for _, p := range pieces {
		if stream != nil {
			stream(p)
		}
	}
	return nil
}

func (e *Echo) Cleanup() error {
	e.mu.Lock()
	e.cfg = nil
	e.mu.Unlock()
	return nil
}

func (e *Echo) pieces(ctx context.Context, message string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()
	if cfg == nil {
		return nil, ErrNotInitialized
	}
	pieces := splitWords(message)
	if len(pieces) > cfg.MaxNewTokens {
		pieces = pieces[:cfg.MaxNewTokens]
	}
	return pieces, nil
}

// splitWords cuts s before every run of whitespace, so "Hi there" becomes
// ["Hi", " there"] and concatenating the pieces restores s.
func splitWords(s string) []string {
	var out []string
	start := 0
	prevSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > start && space && !prevSpace {
			out = append(out, s[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
