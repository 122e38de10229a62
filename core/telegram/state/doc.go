// Package state provides a lightweight FSM/session store for Telegram bots.
// It is domain-agnostic: bots declare their own State values and keep the
// step logic elsewhere. Sessions expire after a fixed TTL and are purged
// lazily on read.
package state
