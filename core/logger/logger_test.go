package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	coreconfig "github.com/m3rciful/contentbot/core/config"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		cfg  coreconfig.LoggingConfig
		want logFormat
	}{
		{coreconfig.LoggingConfig{}, formatJSON},
		{coreconfig.LoggingConfig{Format: "Pretty"}, formatKV},
		{coreconfig.LoggingConfig{Profile: "dev"}, formatKV},
		{coreconfig.LoggingConfig{Profile: "dev", Format: "json"}, formatJSON},
	}
	for _, tc := range cases {
		if got := parseFormat(tc.cfg); got != tc.want {
			t.Errorf("parseFormat(%+v) = %s, want %s", tc.cfg, got, tc.want)
		}
	}
}

func TestParseKeyOrder(t *testing.T) {
	if got := parseKeyOrder(" event , ,ts"); len(got) != 2 || got[0] != "event" || got[1] != "ts" {
		t.Fatalf("custom order = %v", got)
	}
	for _, raw := range []string{"", "default", " , "} {
		if got := parseKeyOrder(raw); len(got) != len(defaultKeyOrder) {
			t.Fatalf("parseKeyOrder(%q) did not fall back to defaults", raw)
		}
	}
}

func TestParseLevel(t *testing.T) {
	want := map[string]slog.Level{
		"debug": slog.LevelDebug, " WARNING ": slog.LevelWarn, "error": slog.LevelError,
		"": slog.LevelInfo, "verbose": slog.LevelInfo,
	}
	for raw, lvl := range want {
		if got := parseLevel(raw); got != lvl {
			t.Errorf("parseLevel(%q) = %v, want %v", raw, got, lvl)
		}
	}
}

func TestOpenLogFile(t *testing.T) {
	if f := openLogFile("", "bot.log"); f != nil {
		t.Fatal("empty dir must disable the sink")
	}
	dir := filepath.Join(t.TempDir(), "logs")
	f := openLogFile(dir, "bot.log")
	if f == nil {
		t.Fatal("expected log file")
	}
	if _, err := f.WriteString("x\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()
	if data, err := os.ReadFile(filepath.Join(dir, "bot.log")); err != nil || string(data) != "x\n" {
		t.Fatalf("read back %q, %v", data, err)
	}
}
