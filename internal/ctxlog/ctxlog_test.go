package ctxlog_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/yourorg/confluencectl/internal/ctxlog"
)

func TestFromContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := ctxlog.New("debug", "json", &buf)

	ctx := ctxlog.WithLogger(context.Background(), logger)
	ctxlog.FromContext(ctx).Debug("hello", "k", "v")

	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("expected json record, got %q", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if got := ctxlog.FromContext(context.Background()); got != slog.Default() {
		t.Fatalf("FromContext without logger should return slog.Default")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ctxlog.ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := ctxlog.New("warn", "text", &buf)
	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New("info", "json", &buf))

	ctx, id := ctxlog.WithRunID(ctx)
	if id == "" {
		t.Fatalf("expected a run id")
	}
	ctxlog.FromContext(ctx).Info("step")

	if want := `"run_id":"` + id + `"`; !strings.Contains(buf.String(), want) {
		t.Fatalf("log output %q does not contain %q", buf.String(), want)
	}
}
