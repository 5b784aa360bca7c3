// Package chat implements the interactive chat session: argument bootstrap,
// runtime initialization and the prompt/generate/print loop.
package chat

import (
	"errors"
	"strings"
)

const (
	// DefaultDevice is the inference device handed to the runtime.
	DefaultDevice = "CPU"
	// NoStreamArg as the second positional argument selects blocking generation.
	NoStreamArg = "nostream"
	// ExitCommand ends the session when typed in any letter case.
	ExitCommand = "exit"
)

var (
	ErrMissingModelPath = errors.New("model path is required")
	ErrInitialize       = errors.New("initialize runtime")
	ErrGeneration       = errors.New("generation failed")
)

type Options struct {
	ModelPath string
	Device    string
	Streaming bool
}

// ParseArgs reads "<modelPath> [nostream]". Streaming is on unless the
// second argument is exactly "nostream".
func ParseArgs(args []string) (Options, error) {
	if len(args) == 0 || args[0] == "" {
		return Options{}, ErrMissingModelPath
	}
	opts := Options{
		ModelPath: args[0],
		Device:    DefaultDevice,
		Streaming: true,
	}
	if len(args) > 1 && args[1] == NoStreamArg {
		opts.Streaming = false
	}
	return opts, nil
}

// IsExit reports whether line is the exit command. Only a whole-line match
// after lower-casing counts.
func IsExit(line string) bool {
	return strings.ToLower(line) == ExitCommand
}
