package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/ovchat/internal/genai"
	"github.com/samcharles93/ovchat/internal/logger"
	"github.com/samcharles93/ovchat/internal/metrics"
)

const (
	Banner   = `OpenVINO LLM fast chat interface! Type "exit" to quit.`
	Prompt   = "You: "
	AILabel  = "AI:"
	Farewell = "Bye..."
)

// LineReader yields one line of user input per call, without the line
// terminator. It returns io.EOF once input is exhausted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

type Config struct {
	Options

	MaxNewTokens int
	Scope        Scope
	// KeepGoing reports a failed generation and prompts again instead of
	// ending the session.
	KeepGoing bool

	Input   LineReader
	Out     io.Writer
	Clock   func() time.Time
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Session is an initialized runtime plus the loop state around it.
type Session struct {
	id      string
	rt      genai.Runtime
	cfg     Config
	counter *TokenCounter
	log     logger.Logger
	cleaned bool
}

// Bootstrap initializes rt for cfg and returns a session ready to Run. The
// runtime is initialized exactly once, before any input is read.
func Bootstrap(ctx context.Context, rt genai.Runtime, cfg Config) (*Session, error) {
	if cfg.ModelPath == "" {
		return nil, ErrMissingModelPath
	}
	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	s := &Session{
		id:      uuid.NewString(),
		rt:      rt,
		cfg:     cfg,
		counter: NewTokenCounter(cfg.Scope),
	}
	s.log = cfg.Logger.With("session", s.id)

	s.log.Info("loading model", "model", cfg.ModelPath, "device", cfg.Device, "streaming", cfg.Streaming)
	start := time.Now()
	err := safeCall(func() error {
		return rt.Initialize(ctx, genai.Config{
			ModelPath:    cfg.ModelPath,
			Device:       cfg.Device,
			Streaming:    cfg.Streaming,
			MaxNewTokens: cfg.MaxNewTokens,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialize, err)
	}
	s.log.Info("model loaded", "duration", time.Since(start))
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Run drives the chat until the user types exit or input ends, then cleans
// up the runtime. A generation failure ends the session with an error
// wrapping ErrGeneration unless KeepGoing is set; cleanup runs either way.
func (s *Session) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := s.cleanup(); cerr != nil {
			s.log.Warn("cleanup failed", "error", cerr)
		}
		if err == nil {
			s.println(Farewell)
		}
	}()
	if s.cfg.Input == nil {
		return errors.New("chat: no input reader")
	}

	s.println(Banner)
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				s.log.Debug("input closed", "reason", err)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if IsExit(line) {
			return nil
		}
		if err := s.turn(ctx, line); err != nil {
			if !s.cfg.KeepGoing {
				return err
			}
			s.log.Error("turn failed", "error", err)
		}
	}
}

func (s *Session) turn(ctx context.Context, message string) error {
	s.println(AILabel)
	log := s.log.With("turn", uuid.NewString())

	if !s.cfg.Streaming {
		done := s.cfg.Metrics.Track()
		start := s.cfg.Clock()
		var text string
		err := safeCall(func() error {
			var gerr error
			text, gerr = s.rt.Generate(ctx, message)
			return gerr
		})
		elapsed := s.cfg.Clock().Sub(start)
		done()
		s.cfg.Metrics.RecordTurn(metrics.ModeBlocking, elapsed, err)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		s.println(text)
		log.Debug("turn complete", "mode", metrics.ModeBlocking, "elapsed", elapsed, "chars", len(text))
		return nil
	}

	s.counter.BeginTurn()
	done := s.cfg.Metrics.Track()
	start := s.cfg.Clock()
	err := safeCall(func() error {
		return s.rt.GenerateStream(ctx, message, func(tok string) {
			s.counter.Inc()
			s.cfg.Metrics.RecordToken()
			_, _ = io.WriteString(s.cfg.Out, tok)
		})
	})
	elapsed := s.cfg.Clock().Sub(start)
	done()
	s.cfg.Metrics.RecordTurn(metrics.ModeStream, elapsed, err)
	if err != nil {
		s.println("")
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	stats := s.counter.EndTurn(elapsed)
	s.cfg.Metrics.RecordThroughput(stats.TPS)
	_, _ = fmt.Fprintf(s.cfg.Out, "\n\n%d Tokens/sec\n\n", stats.TPS)
	log.Debug("turn complete", "mode", metrics.ModeStream, "elapsed", elapsed, "tokens", stats.Tokens, "tps", stats.TPS)
	return nil
}

// readLine waits for the next line but gives up when ctx is done, so a
// signal does not leave the loop stuck on a blocking read. LineReader has no
// way to interrupt a read, so after cancellation the reading goroutine stays
// parked in ReadLine until the input yields a line or fails, and that line
// is discarded. A lineedit.Reader in raw mode keeps the terminal raw until
// then; callers restore it with Close. The session itself is finished once
// Run returns, so it never reads from Input again.
func (s *Session) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.cfg.Input.ReadLine(Prompt)
		ch <- result{line, err}
	}()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		s.println("")
		return "", ctx.Err()
	}
}

func (s *Session) cleanup() error {
	if s.cleaned {
		return nil
	}
	s.cleaned = true
	return safeCall(s.rt.Cleanup)
}

func (s *Session) println(text string) {
	_, _ = fmt.Fprintln(s.cfg.Out, text)
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in runtime: %v", rec)
		}
	}()
	return fn()
}

// ScannerReader reads newline-terminated input, printing the prompt to out
// first. A final line without a terminator is still returned.
type ScannerReader struct {
	r   *bufio.Reader
	out io.Writer
}

func NewScannerReader(in io.Reader, out io.Writer) *ScannerReader {
	return &ScannerReader{r: bufio.NewReader(in), out: out}
}

func (r *ScannerReader) ReadLine(prompt string) (string, error) {
	if prompt != "" && r.out != nil {
		_, _ = io.WriteString(r.out, prompt)
	}
	line, err := r.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return trimEOL(line), nil
		}
		return "", err
	}
	return trimEOL(line), nil
}

func trimEOL(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}
