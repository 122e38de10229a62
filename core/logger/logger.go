// Package logger is the process-wide structured logger: a slog handler that
// writes flat JSON or key=value lines through an async writer, plus context
// helpers that carry update metadata into every line.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/contentbot/core/buildinfo"
	coreconfig "github.com/m3rciful/contentbot/core/config"
)

// L is the root logger; nil until InitLogger runs.
var L *slog.Logger

var (
	initOnce sync.Once
	level    slog.LevelVar

	debugSampler  = newRatio(1, 50)
	traceOverride bool

	sinksMu sync.Mutex
	sinks   *outputs
)

// outputs owns everything InitLogger opened.
type outputs struct {
	main   *asyncWriter
	warn   *asyncWriter
	files  []io.Closer
	closed bool
}

// InitLogger configures L and the slog default. Only the first call has any
// effect. A nil cfg logs JSON at INFO to stdout.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() { err = setup(cfg) })
	return err
}

func setup(cfg *coreconfig.Config) error {
	var lc coreconfig.LoggingConfig
	if cfg != nil {
		lc = cfg.Logging
	}
	level.Set(parseLevel(lc.Level))
	num, den := parseDebugSample(cfg)
	debugSampler.Set(num, den)
	traceOverride = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

	out := &outputs{}
	writers := []io.Writer{os.Stdout}
	if f := openLogFile(lc.Dir, lc.BotFile); f != nil {
		writers = append(writers, f)
		out.files = append(out.files, f)
	}
	out.main = newAsyncWriter(writers, 64*1024)
	if f := openLogFile(lc.Dir, lc.ErrorsFile); f != nil {
		out.files = append(out.files, f)
		out.warn = newAsyncWriter([]io.Writer{f}, 16*1024)
	}

	sinksMu.Lock()
	sinks = out
	sinksMu.Unlock()

	L = slog.New(newStructuredHandler(handlerConfig{
		level:    &level,
		writer:   out.main,
		errors:   out.warn,
		format:   parseFormat(lc),
		keyOrder: parseKeyOrder(lc.KeysOrder),
	}))
	slog.SetDefault(L)

	attrs := []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
	}
	if cfg != nil {
		attrs = append(attrs, slog.String("cfg_profile", profile(lc)))
	}
	Info(context.Background(), "app", "startup", attrs...)
	return nil
}

// Shutdown flushes and closes every sink. Calls after the first are no-ops.
func Shutdown() error {
	sinksMu.Lock()
	defer sinksMu.Unlock()
	if sinks == nil || sinks.closed {
		return nil
	}
	sinks.closed = true

	var errs []error
	for _, w := range []*asyncWriter{sinks.main, sinks.warn} {
		if w != nil {
			errs = append(errs, w.Close())
		}
	}
	for _, f := range sinks.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// openLogFile appends to dir/name, creating dir. Failures go to stderr and
// disable the sink.
func openLogFile(dir, name string) *os.File {
	dir, name = strings.TrimSpace(dir), strings.TrimSpace(name)
	if dir == "" || name == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "logger: create %s: %v\n", dir, err)
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: open %s: %v\n", name, err)
		return nil
	}
	return f
}

// parseFormat honours an explicit format; otherwise debug and dev profiles
// get key=value and everything else JSON.
func parseFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch profile(lc) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	var order []string
	if raw = strings.TrimSpace(raw); raw != "default" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.TrimSpace(lc.Profile); p != "" {
		return strings.ToLower(p)
	}
	return "prod"
}

func parseDebugSample(cfg *coreconfig.Config) (int, int) {
	if cfg == nil || strings.TrimSpace(cfg.Logging.DebugSample) == "" {
		return 1, 50
	}
	num, den, ok := parseRatio(cfg.Logging.DebugSample)
	if !ok {
		return 1, 50
	}
	return num, den
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}

// Background is context.Background for call sites without a request.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes event with attrs through logg, falling back to the
// context logger and then L. It is a no-op before InitLogger.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Component returns L tagged with component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs under component, using the context logger when L is unset.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	logg := Component(component)
	if logg == nil {
		if logg = FromContext(ctx); logg != nil && strings.TrimSpace(component) != "" {
			logg = logg.With("component", strings.TrimSpace(component))
		}
	}
	LogEvent(ctx, logg, lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}
