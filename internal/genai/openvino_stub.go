//go:build !openvino || !cgo

package genai

import (
	"context"
	"fmt"
)

func init() {
	Register("openvino", func() Runtime { return openvinoStub{} })
}

// openvinoStub keeps the backend name resolvable in builds without the
// native library; every call reports ErrUnavailable.
type openvinoStub struct{}

func (openvinoStub) Initialize(context.Context, Config) error {
	return fmt.Errorf("openvino: %w (rebuild with CGO_ENABLED=1 -tags openvino)", ErrUnavailable)
}

func (openvinoStub) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("openvino: %w", ErrUnavailable)
}

func (openvinoStub) GenerateStream(context.Context, string, StreamFunc) error {
	return fmt.Errorf("openvino: %w", ErrUnavailable)
}

func (openvinoStub) Cleanup() error { return nil }
