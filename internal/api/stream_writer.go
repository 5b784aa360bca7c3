package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// SSEWriter emits generation events as server-sent events.
type SSEWriter struct {
	w       io.Writer
	flusher func()
	id      string
}

func NewSSEWriter(c *echo.Context, id string) (*SSEWriter, error) {
	res := c.Response()
	flusher, ok := res.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming unsupported")
	}
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	return &SSEWriter{w: res, flusher: flusher.Flush, id: id}, nil
}

func (s *SSEWriter) Token(tok string) error {
	return s.send(TokenEvent{ID: s.id, Token: tok})
}

func (s *SSEWriter) Done(tokens int, elapsedMS int64, tps int) error {
	if err := s.send(DoneEvent{
		ID:              s.id,
		Done:            true,
		Tokens:          tokens,
		ElapsedMS:       elapsedMS,
		TokensPerSecond: tps,
	}); err != nil {
		return err
	}
	return s.terminate()
}

func (s *SSEWriter) Fail(err error) error {
	if serr := s.send(ErrorEvent{ID: s.id, Error: err.Error()}); serr != nil {
		return serr
	}
	return s.terminate()
}

func (s *SSEWriter) terminate() error {
	_, err := fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher()
	return err
}

func (s *SSEWriter) send(ev any) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return err
	}
	s.flusher()
	return nil
}
