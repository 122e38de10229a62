package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/contentbot/core/logger"
	tghelpers "github.com/m3rciful/contentbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const statusSkip = "skip"

// dispatch tracks one routed update and emits a single handler.handled event.
type dispatch struct {
	name   string
	start  time.Time
	extras []slog.Attr
}

func newDispatch(name string, extras ...slog.Attr) dispatch {
	return dispatch{name: handlerName(name), start: time.Now(), extras: extras}
}

// run invokes fn with the handler name attached to the update context.
func (d dispatch) run(c tele.Context, fn tele.HandlerFunc) error {
	tghelpers.WithHandler(c, d.name)
	err := fn(c)
	d.emit(c, "", err)
	return err
}

// skip records an update that no handler accepted.
func (d dispatch) skip(c tele.Context) error {
	d.emit(c, statusSkip, nil)
	return nil
}

func (d dispatch) emit(c tele.Context, status string, err error) {
	ctx := tghelpers.WithHandler(c, d.name)
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	if status == "" {
		status = outcome
	}
	attrs := make([]slog.Attr, 0, 6+len(d.extras))
	attrs = append(attrs,
		slog.String("status", status),
		slog.String("handler", d.name),
		slog.String("outcome", outcome),
		slog.Int64("duration_ms", logger.Took(d.start).Milliseconds()),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	attrs = append(attrs, d.extras...)
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

func handlerName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode prefers an explicit Code() anywhere in the chain and falls back
// to the concrete type name.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(name)
}
