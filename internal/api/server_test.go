package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/samcharles93/ovchat/internal/genai"
	"github.com/samcharles93/ovchat/internal/metrics"
)

type testRuntime struct {
	tokens []string
	err    error
	panic  bool
}

func (r *testRuntime) Initialize(context.Context, genai.Config) error { return nil }

func (r *testRuntime) Generate(ctx context.Context, message string) (string, error) {
	if r.panic {
		panic("boom")
	}
	if r.err != nil {
		return "", r.err
	}
	return strings.Join(r.tokens, ""), nil
}

func (r *testRuntime) GenerateStream(ctx context.Context, message string, fn genai.StreamFunc) error {
	if r.panic {
		panic("boom")
	}
	for _, tok := range r.tokens {
		fn(tok)
	}
	return r.err
}

func (r *testRuntime) Cleanup() error { return nil }

func stepClock(step time.Duration) func() time.Time {
	now := time.Unix(1700000000, 0)
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func newTestEcho(rt genai.Runtime, m *metrics.Metrics) *echo.Echo {
	server := NewServer(rt, Info{Model: "/models/tiny", Device: "CPU", Backend: "test"}, m, nil)
	server.clock = stepClock(500 * time.Millisecond)
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// streamEvent decodes any of the event shapes; raw keeps the payload so
// tests can check which keys were sent.
type streamEvent struct {
	ID              string `json:"id"`
	Token           string `json:"token"`
	Done            bool   `json:"done"`
	Tokens          int    `json:"tokens"`
	ElapsedMS       int64  `json:"elapsed_ms"`
	TokensPerSecond int    `json:"tokens_per_second"`
	Error           string `json:"error"`

	raw map[string]any
}

func sseEvents(t *testing.T, body string) ([]streamEvent, bool) {
	t.Helper()
	var events []streamEvent
	terminated := false
	for _, chunk := range strings.Split(body, "\n\n") {
		data, ok := strings.CutPrefix(chunk, "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			terminated = true
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode event %q: %v", data, err)
		}
		if err := json.Unmarshal([]byte(data), &ev.raw); err != nil {
			t.Fatalf("decode event %q: %v", data, err)
		}
		events = append(events, ev)
	}
	return events, terminated
}

func TestGenerateBlocking(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	e := newTestEcho(&testRuntime{tokens: []string{"Hi", " there"}}, m)
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"message":"Hi there"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Text != "Hi there" {
		t.Fatalf("text: got %q", resp.Text)
	}
	if !strings.HasPrefix(resp.ID, "gen_") {
		t.Fatalf("id: got %q", resp.ID)
	}
	if resp.ElapsedMS != 500 {
		t.Fatalf("elapsed: got %d", resp.ElapsedMS)
	}
	if resp.Model != "/models/tiny" {
		t.Fatalf("model: got %q", resp.Model)
	}
	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues(metrics.ModeBlocking)); got != 1 {
		t.Fatalf("blocking turns: got %v", got)
	}
}

func TestGenerateAcceptsEmptyMessage(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testRuntime{}, nil)
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"message":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGenerateStream(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	e := newTestEcho(&testRuntime{tokens: []string{"Hi", " there"}}, m)
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"message":"Hi there","stream":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("content type: got %q", ct)
	}

	events, terminated := sseEvents(t, rec.Body.String())
	if !terminated {
		t.Fatalf("missing [DONE] in %q", rec.Body.String())
	}
	if len(events) != 3 {
		t.Fatalf("events: got %d body=%q", len(events), rec.Body.String())
	}
	if events[0].Token != "Hi" || events[1].Token != " there" {
		t.Fatalf("tokens: got %q %q", events[0].Token, events[1].Token)
	}
	last := events[2]
	if !last.Done || last.Tokens != 2 || last.ElapsedMS != 500 || last.TokensPerSecond != 4 {
		t.Fatalf("final event: %+v", last)
	}
	for _, ev := range events {
		if ev.ID != events[0].ID {
			t.Fatalf("event ids differ: %q vs %q", ev.ID, events[0].ID)
		}
	}
	if got := testutil.ToFloat64(m.TokensTotal); got != 2 {
		t.Fatalf("token counter: got %v", got)
	}
	if got := testutil.ToFloat64(m.TokensPerSecond); got != 4 {
		t.Fatalf("tps gauge: got %v", got)
	}
}

func TestGenerateStreamWithoutTokens(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testRuntime{}, nil)
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"message":"","stream":true}`)

	events, terminated := sseEvents(t, rec.Body.String())
	if !terminated || len(events) != 1 {
		t.Fatalf("events: %q", rec.Body.String())
	}
	done := events[0]
	for _, key := range []string{"done", "tokens", "elapsed_ms", "tokens_per_second"} {
		if _, ok := done.raw[key]; !ok {
			t.Fatalf("final event missing %q: %q", key, rec.Body.String())
		}
	}
	if !done.Done || done.Tokens != 0 || done.TokensPerSecond != 0 || done.ElapsedMS != 500 {
		t.Fatalf("final event: %+v", done)
	}
}

func TestGenerateStreamEmptyToken(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testRuntime{tokens: []string{"", "a"}}, nil)
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"message":"a","stream":true}`)

	events, _ := sseEvents(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("events: %q", rec.Body.String())
	}
	if tok, ok := events[0].raw["token"]; !ok || tok != "" {
		t.Fatalf("empty token event: %q", rec.Body.String())
	}
	if _, ok := events[0].raw["done"]; ok {
		t.Fatalf("token event carries done: %q", rec.Body.String())
	}
	if events[2].Tokens != 2 {
		t.Fatalf("token count: %+v", events[2])
	}
}

func TestGenerateStreamError(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testRuntime{tokens: []string{"Hi"}, err: errors.New("device lost")}, nil)
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"message":"x","stream":true}`)

	events, terminated := sseEvents(t, rec.Body.String())
	if !terminated {
		t.Fatalf("missing [DONE] in %q", rec.Body.String())
	}
	if len(events) != 2 || events[1].Error != "device lost" {
		t.Fatalf("events: %+v", events)
	}
}

func TestGenerateValidationErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testRuntime{}, nil)

	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"stream":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing message: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "message is required") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/generate", `{"message":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGenerateRuntimeFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		rt   *testRuntime
		code int
	}{
		{"generic error", &testRuntime{err: errors.New("oom")}, http.StatusInternalServerError},
		{"not initialized", &testRuntime{err: genai.ErrNotInitialized}, http.StatusServiceUnavailable},
		{"panic", &testRuntime{panic: true}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := metrics.New()
			e := newTestEcho(tc.rt, m)
			rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"message":"x"}`)
			if rec.Code != tc.code {
				t.Fatalf("status: got %d want %d body=%s", rec.Code, tc.code, rec.Body.String())
			}
			if got := testutil.ToFloat64(m.TurnErrorsTotal.WithLabelValues(metrics.ModeBlocking)); got != 1 {
				t.Fatalf("error counter: got %v", got)
			}
			if got := testutil.ToFloat64(m.InFlight); got != 0 {
				t.Fatalf("in flight: got %v", got)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testRuntime{}, nil)

	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", rec.Code)
	}
	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Device != "CPU" || health.Backend != "test" || health.Version == "" {
		t.Fatalf("health: %+v", health)
	}

	doJSON(t, e, http.MethodPost, "/v1/generate", `{"message":"x"}`)
	rec = doJSON(t, e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `ovchat_turns_total{mode="blocking"} 1`) {
		t.Fatalf("metrics body missing turn counter:\n%s", rec.Body.String())
	}
}

func TestBrowserPage(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testRuntime{}, nil)
	rec := doJSON(t, e, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<title>ovchat</title>") {
		t.Fatalf("unexpected page: %.80s", rec.Body.String())
	}
}
