// Package api serves an initialized runtime over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/ovchat/internal/chat"
	"github.com/samcharles93/ovchat/internal/genai"
	"github.com/samcharles93/ovchat/internal/logger"
	"github.com/samcharles93/ovchat/internal/metrics"
	"github.com/samcharles93/ovchat/internal/version"
	"github.com/samcharles93/ovchat/internal/webui"
)

type Info struct {
	Model   string
	Device  string
	Backend string
}

type Server struct {
	rt      genai.Runtime
	info    Info
	metrics *metrics.Metrics
	log     logger.Logger
	clock   func() time.Time
	ui      http.Handler

	// The runtime is a single pipeline; one generation at a time.
	mu sync.Mutex
}

// NewServer wraps an already initialized runtime. The caller keeps
// ownership and must call Cleanup after the server stops.
func NewServer(rt genai.Runtime, info Info, m *metrics.Metrics, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		rt:      rt,
		info:    info,
		metrics: m,
		log:     log,
		clock:   time.Now,
		ui:      webui.Handler(),
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/generate", s.handleGenerate)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", s.handleMetrics)
	e.GET("/", s.handleUI)
}

func (s *Server) handleUI(c *echo.Context) error {
	s.ui.ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Model:   s.info.Model,
		Device:  s.info.Device,
		Backend: s.info.Backend,
		Version: version.String(),
	})
}

func (s *Server) handleMetrics(c *echo.Context) error {
	s.metrics.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *Server) handleGenerate(c *echo.Context) error {
	req, err := decodeJSON[GenerateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid JSON body: "+err.Error())
	}
	if req.Message == nil {
		return writeBadRequest(c, "message is required")
	}

	id := "gen_" + uuid.NewString()
	log := s.log.With("id", id, "stream", req.Stream)

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Stream {
		return s.stream(c, id, *req.Message, log)
	}

	done := s.metrics.Track()
	start := s.clock()
	var text string
	err = safeCall(func() error {
		var gerr error
		text, gerr = s.rt.Generate(c.Request().Context(), *req.Message)
		return gerr
	})
	elapsed := s.clock().Sub(start)
	done()
	s.metrics.RecordTurn(metrics.ModeBlocking, elapsed, err)
	if err != nil {
		log.Error("generate failed", "error", err)
		return writeGenerationError(c, err)
	}

	log.Debug("generate complete", "elapsed", elapsed)
	return c.JSON(http.StatusOK, GenerateResponse{
		ID:        id,
		Object:    "generation",
		Created:   start.Unix(),
		Model:     s.info.Model,
		Text:      text,
		ElapsedMS: elapsed.Milliseconds(),
	})
}

func (s *Server) stream(c *echo.Context, id, message string, log logger.Logger) error {
	sse, err := NewSSEWriter(c, id)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	counter := chat.NewTokenCounter(chat.ScopeTurn)
	counter.BeginTurn()
	done := s.metrics.Track()
	start := s.clock()
	err = safeCall(func() error {
		return s.rt.GenerateStream(c.Request().Context(), message, func(tok string) {
			counter.Inc()
			s.metrics.RecordToken()
			_ = sse.Token(tok)
		})
	})
	elapsed := s.clock().Sub(start)
	done()
	s.metrics.RecordTurn(metrics.ModeStream, elapsed, err)
	if err != nil {
		log.Error("stream failed", "error", err)
		return sse.Fail(err)
	}

	stats := counter.EndTurn(elapsed)
	s.metrics.RecordThroughput(stats.TPS)
	log.Debug("stream complete", "tokens", stats.Tokens, "tps", stats.TPS)
	return sse.Done(stats.Tokens, elapsed.Milliseconds(), stats.TPS)
}

func writeBadRequest(c *echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]any{
		"error": ErrorBody{Message: msg, Type: "invalid_request_error"},
	})
}

func writeGenerationError(c *echo.Context, err error) error {
	status := http.StatusInternalServerError
	if errors.Is(err, genai.ErrNotInitialized) || errors.Is(err, genai.ErrUnavailable) {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]any{
		"error": ErrorBody{Message: err.Error(), Type: "generation_error"},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	err := json.NewDecoder(r).Decode(&out)
	return out, err
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in runtime: %v", rec)
		}
	}()
	return fn()
}
