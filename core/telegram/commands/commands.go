// Package commands describes slash commands held by the registry.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a slash command handler with its menu metadata. AdminOnly
// commands are wrapped by the admin gate and never shown in the menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
}
