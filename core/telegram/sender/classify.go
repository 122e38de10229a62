package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// recipientErrors are permanent per-recipient failures a fan-out counts
// and moves past.
var recipientErrors = []struct {
	err  error
	code string
}{
	{tele.ErrBlockedByUser, "blocked"},
	{tele.ErrUserIsDeactivated, "deactivated"},
	{tele.ErrChatNotFound, "chat_not_found"},
}

// classifyError reduces err to a short err_code label.
func classifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	for _, r := range recipientErrors {
		if errors.Is(err, r.err) {
			return r.code
		}
	}

	var (
		flood  tele.FloodError
		dns    *net.DNSError
		op     *net.OpError
		netErr net.Error
		alert  tls.AlertError
	)
	switch {
	case errors.As(err, &flood):
		return "rate_limited"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &dns):
		return "dns"
	case errors.As(err, &op) && op.Op == "dial":
		return "dial"
	case errors.As(err, &alert):
		return "tls"
	}

	if status := httpStatus(err); status >= http.StatusInternalServerError {
		return "http_5xx"
	} else if status >= http.StatusBadRequest {
		return "http_4xx"
	}
	return "unknown"
}

// sanitizeErrorMessage keeps bot tokens out of logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// httpStatus recovers the Bot API status code, falling back to the
// trailing "(NNN)" telebot appends to plain errors.
func httpStatus(err error) int {
	var (
		api   *tele.Error
		flood tele.FloodError
		group tele.GroupError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &api):
		return api.Code
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &group):
		return http.StatusBadRequest
	}
	msg := strings.TrimSpace(err.Error())
	open := strings.LastIndexByte(msg, '(')
	if open < 0 || !strings.HasSuffix(msg, ")") {
		return 0
	}
	code, convErr := strconv.Atoi(msg[open+1 : len(msg)-1])
	if convErr != nil {
		return 0
	}
	return code
}
