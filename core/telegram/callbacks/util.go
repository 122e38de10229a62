package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Encode builds telebot's \f<unique>|<payload> wire form.
func Encode(unique, payload string) string {
	if payload == "" {
		return "\f" + unique
	}
	return "\f" + unique + "|" + payload
}

// ParseCallbackData returns the unique key and payload of a callback. When
// telebot already matched a unique handler the fields are used as-is.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseRaw(cb.Data)
}

// ParseRaw splits raw callback data into unique key and payload.
func ParseRaw(raw string) (string, string) {
	raw = strings.TrimPrefix(raw, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}
