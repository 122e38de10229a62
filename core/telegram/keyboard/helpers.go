// Package keyboard converts inline button grids to telebot markup.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is one inline button. A non-empty URL makes it a link button and
// Unique and Data are ignored.
type Button struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

// Markup builds an inline keyboard, one row per slice. Empty rows are dropped.
func Markup(rows ...[]Button) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			var btn tele.Btn
			if b.URL != "" {
				btn = m.URL(b.Text, b.URL)
			} else {
				btn = m.Data(b.Text, b.Unique, b.Data)
			}
			line = append(line, *btn.Inline())
		}
		m.InlineKeyboard = append(m.InlineKeyboard, line)
	}
	return m
}
