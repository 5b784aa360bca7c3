package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): got %v want %v", in, got, want)
		}
	}
}

func TestSetupFormats(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := Setup(&buf, "info", "json", false)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		l.Info("model loaded", "device", "CPU")
		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("decode %q: %v", buf.String(), err)
		}
		if rec["msg"] != "model loaded" || rec["device"] != "CPU" {
			t.Fatalf("unexpected record: %v", rec)
		}
	})

	t.Run("pretty without color", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := Setup(&buf, "debug", "pretty", false)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		l.With("session", "abc").Debug("turn done", "text", "hi there", "tokens", 2)
		out := buf.String()
		if strings.Contains(out, "\033[") {
			t.Fatalf("unexpected ANSI codes in %q", out)
		}
		for _, want := range []string{"DEBUG", "turn done", "session=abc", `text="hi there"`, "tokens=2"} {
			if !strings.Contains(out, want) {
				t.Fatalf("missing %q in %q", want, out)
			}
		}
	})

	t.Run("pretty with color", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := Setup(&buf, "info", "", true)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		l.Warn("slow")
		if !strings.Contains(buf.String(), ansiYellow) {
			t.Fatalf("expected warn color in %q", buf.String())
		}
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := Setup(&buf, "error", "text", false)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		l.Info("hidden")
		if buf.Len() != 0 {
			t.Fatalf("expected nothing, got %q", buf.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := Setup(&bytes.Buffer{}, "info", "xml", false); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestPrettyGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil, false)
	slog.New(h).WithGroup("http").Info("req", "status", 200, slog.Group("peer", "ip", "127.0.0.1"))
	out := buf.String()
	for _, want := range []string{"http.status=200", "http.peer.ip=127.0.0.1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	l := Discard()
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected default logger")
	}
}
