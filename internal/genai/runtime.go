// Package genai defines the contract ovchat uses to talk to a local LLM
// runtime and provides the runtimes it ships with.
//
// A Runtime is a single global pipeline: Initialize binds it to a model,
// Generate/GenerateStream run one turn at a time and Cleanup releases
// everything. Callers must not overlap calls on the same Runtime.
package genai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnavailable is returned when a runtime was not compiled into the binary.
	ErrUnavailable = errors.New("runtime unavailable")
	// ErrNotInitialized is returned by generation calls made before Initialize.
	ErrNotInitialized = errors.New("runtime not initialized")
)

// DefaultMaxNewTokens matches the generation limit of the OpenVINO chat sample.
const DefaultMaxNewTokens = 256

// StreamFunc receives one decoded token piece. It runs synchronously on the
// generating goroutine.
type StreamFunc func(token string)

type Config struct {
	ModelPath    string
	Device       string
	Streaming    bool
	MaxNewTokens int
}

type Runtime interface {
	Initialize(ctx context.Context, cfg Config) error
	Generate(ctx context.Context, message string) (string, error)
	GenerateStream(ctx context.Context, message string, stream StreamFunc) error
	Cleanup() error
}

// Factory builds an uninitialized Runtime.
type Factory func() Runtime

var factories = map[string]Factory{}

// Register makes a runtime available under name. It panics on duplicates.
func Register(name string, f Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, dup := factories[name]; dup {
		panic("genai: duplicate runtime " + name)
	}
	factories[name] = f
}

// New returns a fresh runtime for the named backend.
func New(name string) (Runtime, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(Backends(), ", "))
	}
	return f(), nil
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c Config) withDefaults() Config {
	if c.MaxNewTokens <= 0 {
		c.MaxNewTokens = DefaultMaxNewTokens
	}
	return c
}
