// Package logger tests verify the custom [Handler] output format, level
// filtering, value quoting, attribute grouping, [NewLogger] and the
// [ReadTail] utility.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// ///////////////////////////////////////////////
// Handler Output Format
// ///////////////////////////////////////////////

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelInfo))

	logger.Info("test message", "key", "value")

	line := strings.TrimRight(buf.String(), "\r\n")
	if !strings.Contains(line, "[INFO]") {
		t.Errorf("expected [INFO] in output, got %q", line)
	}
	if !strings.Contains(line, "test message") {
		t.Errorf("expected message in output, got %q", line)
	}
	if !strings.Contains(line, "| key=value") {
		t.Errorf("expected key=value in output, got %q", line)
	}
	if !strings.HasSuffix(strings.Split(line, " [")[0], "Z") {
		t.Errorf("expected UTC timestamp ending with Z, got %q", line)
	}
}

func TestHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, LevelInfo)).Info("no attrs")

	if strings.Contains(buf.String(), "|") {
		t.Errorf("expected no pipe separator without attrs, got %q", buf.String())
	}
}

func TestHandler_QuotesAmbiguousValues(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, LevelInfo)).Info("msg",
		"plain", "abc",
		"spaced", "two words",
		"empty", "",
		"n", 3,
	)

	line := buf.String()
	for _, want := range []string{`plain=abc`, `spaced="two words"`, `empty=""`, `n=3`} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %s in %q", want, line)
		}
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelWarn))

	logger.Info("hidden")
	logger.Debug("hidden too")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("records below WARN leaked: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected WARN record, got %q", out)
	}
}

func TestHandler_LevelVar(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	lv.Set(LevelError)
	logger := slog.New(NewHandler(&buf, lv))

	logger.Info("before")
	lv.Set(LevelInfo)
	logger.Info("after")

	out := buf.String()
	if strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Errorf("level var not honored: %q", out)
	}
}

func TestHandler_CustomLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelTrace))
	ctx := context.Background()

	Trace(ctx, logger, "tracing")
	Fail(ctx, logger, "failing")

	out := buf.String()
	if !strings.Contains(out, "[TRACE] tracing") {
		t.Errorf("expected TRACE line, got %q", out)
	}
	if !strings.Contains(out, "[FAIL] failing") {
		t.Errorf("expected FAIL line, got %q", out)
	}
}

func TestHandler_LevelNames(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{LevelTrace, "TRACE"},
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelFail, "FAIL"},
		{LevelInfo + 1, "WARN"},
	}
	for _, tt := range tests {
		if got := levelName(tt.level); got != tt.want {
			t.Errorf("levelName(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"fail", LevelFail},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// WithAttrs / WithGroup
// ///////////////////////////////////////////////

func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelInfo)).With("component", "presence")

	logger.Info("hello", "gen", 2)

	if !strings.Contains(buf.String(), "| component=presence, gen=2") {
		t.Errorf("expected pre-applied attr first, got %q", buf.String())
	}
}

func TestHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelInfo)).WithGroup("discord").WithGroup("ipc")

	logger.Info("frame", "op", 1)

	if !strings.Contains(buf.String(), "discord.ipc.op=1") {
		t.Errorf("expected nested group prefix, got %q", buf.String())
	}
}

func TestHandler_WithGroupEmpty(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, LevelInfo)
	if h.WithGroup("") != h {
		t.Error("WithGroup(\"\") should return the same handler")
	}
}

func TestHandler_SharedMutexConcurrent(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewHandler(&buf, LevelInfo))
	a := base.With("src", "a")
	b := base.With("src", "b")

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() { defer wg.Done(); a.Info("line", "i", i) }()
		go func() { defer wg.Done(); b.Info("line", "i", i) }()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\n")
	if len(lines) != 100 {
		t.Fatalf("expected 100 lines, got %d", len(lines))
	}
	for _, l := range lines {
		if !strings.Contains(l, "[INFO] line | src=") {
			t.Fatalf("interleaved line: %q", l)
		}
	}
}

// ///////////////////////////////////////////////
// NewLogger
// ///////////////////////////////////////////////

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemon.log")
	var echo bytes.Buffer

	logger, closer, err := NewLogger(Options{Path: path, Level: LevelInfo, MaxSizeMB: 1, Echo: &echo})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("written", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "written | k=v") {
		t.Errorf("log file missing record: %q", data)
	}
	if !strings.Contains(echo.String(), "written | k=v") {
		t.Errorf("echo writer missing record: %q", echo.String())
	}
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

func writeLines(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tail.log")
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadTail(t *testing.T) {
	path := writeLines(t, 10)
	got, err := ReadTail(path, 3)
	if err != nil {
		t.Fatalf("ReadTail: %v", err)
	}
	if got != "line 8\nline 9\nline 10" {
		t.Errorf("ReadTail = %q", got)
	}
}

func TestReadTail_FewerLines(t *testing.T) {
	path := writeLines(t, 2)
	got, err := ReadTail(path, 5)
	if err != nil {
		t.Fatalf("ReadTail: %v", err)
	}
	if got != "line 1\nline 2" {
		t.Errorf("ReadTail = %q", got)
	}
}

func TestReadTail_ExactLines(t *testing.T) {
	path := writeLines(t, 4)
	got, _ := ReadTail(path, 4)
	if got != "line 1\nline 2\nline 3\nline 4" {
		t.Errorf("ReadTail = %q", got)
	}
}

func TestReadTail_EmptyFile(t *testing.T) {
	path := writeLines(t, 0)
	got, err := ReadTail(path, 3)
	if err != nil || got != "" {
		t.Errorf("ReadTail = %q, %v; want empty", got, err)
	}
}

func TestReadTail_ZeroLines(t *testing.T) {
	got, err := ReadTail("does-not-matter", 0)
	if err != nil || got != "" {
		t.Errorf("ReadTail(n=0) = %q, %v", got, err)
	}
}

func TestReadTail_MissingFile(t *testing.T) {
	if _, err := ReadTail(filepath.Join(t.TempDir(), "nope.log"), 3); err == nil {
		t.Error("expected error for missing file")
	}
}
