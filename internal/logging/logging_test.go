package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(s) {
			t.Errorf("expected %q to be a valid level", s)
		}
	}
	if ValidLevel("verbose") {
		t.Error("expected verbose to be invalid")
	}
}

func TestNewWithFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer := New(Config{Level: "info", Format: "json", FilePath: path})
	if closer == nil {
		t.Fatal("expected a closer for file-backed logger")
	}

	logger.Info("hello", slog.String("k", "v"))
	if err := closer.Close(); err != nil {
		t.Fatalf("closing log writer: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("expected JSON log line in file, got %q", string(data))
	}
}

func TestNewWithoutFile(t *testing.T) {
	logger, closer := New(Config{Level: "debug", Format: "text"})
	if logger == nil {
		t.Fatal("expected logger")
	}
	if closer != nil {
		t.Error("expected nil closer when no file path configured")
	}
}
