package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/telegram/state"
	"github.com/m3rciful/contentbot/internal/ledger"
)

func (e *Engine) showAdminPanel(ctx context.Context) error {
	users, err := e.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	active, err := e.store.IsBotActive(ctx)
	if err != nil {
		return err
	}
	return e.reply(ctx, e.adminID, txtAdminPanel(users, active), adminPanelKeyboard(active))
}

// adminPrompt returns an admin button handler that enters st and asks for input.
func (e *Engine) adminPrompt(st state.State, ask string) callbackFunc {
	return func(ctx context.Context, cb Callback, _ *acker) error {
		if err := e.transition(ctx, cb.UserID, st, nil); err != nil {
			return err
		}
		return e.reply(ctx, cb.UserID, ask, cancelReplyKeyboard())
	}
}

// notify delivers text to a user and tells the admin when it could not.
func (e *Engine) notify(ctx context.Context, to int64, text string) bool {
	if _, err := e.out.Send(ctx, to, text, nil); err != nil {
		logger.Warn(ctx, "engine", "notify.failed",
			slog.Int64("target_user_id", to),
			slog.String("err", err.Error()),
		)
		_ = e.reply(ctx, e.adminID, fmt.Sprintf(txtDeliveryFailed, to), nil)
		return false
	}
	return true
}

func (e *Engine) cbToggleBot(ctx context.Context, cb Callback, _ *acker) error {
	active, err := e.store.ToggleBotActive(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "engine", "bot.toggled", slog.Bool("active", active))

	reply, notice := txtBotOff, txtBotOffNotice
	if active {
		reply, notice = txtBotOn, txtBotOnNotice
	}
	_ = e.reply(ctx, cb.UserID, reply, nil)
	if err := e.showAdminPanel(ctx); err != nil {
		return err
	}

	ids, err := e.store.ListUserIDs(ctx)
	if err != nil {
		return err
	}
	e.fanout.Deliver(ctx, "toggle", ids, func(ctx context.Context, to int64) error {
		_, err := e.out.Send(ctx, to, notice, nil)
		return err
	})
	return nil
}

func (e *Engine) cbViewUsers(ctx context.Context, cb Callback, _ *acker) error {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return e.reply(ctx, cb.UserID, txtNoUsers, nil)
	}
	lines := make([]string, 0, len(users)+1)
	lines = append(lines, fmt.Sprintf("👥 Users (%d):", len(users)))
	for _, u := range users {
		lines = append(lines, txtUserLine(u))
	}
	for _, chunk := range splitMessage(lines, MessageLimit) {
		_ = e.reply(ctx, cb.UserID, chunk, nil)
	}
	return nil
}

func (e *Engine) cbViewSupport(ctx context.Context, cb Callback, _ *acker) error {
	msgs, err := e.store.RecentSupportMessages(ctx, ledger.DefaultSupportLimit)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return e.reply(ctx, cb.UserID, txtNoSupport, nil)
	}
	lines := make([]string, 0, len(msgs)+1)
	lines = append(lines, "🆘 Recent support messages:")
	for _, m := range msgs {
		lines = append(lines, "", txtSupportLine(m))
	}
	for _, chunk := range splitMessage(lines, MessageLimit) {
		_ = e.reply(ctx, cb.UserID, chunk, nil)
	}
	return nil
}

func (e *Engine) cbReply(ctx context.Context, cb Callback, _ *acker) error {
	target, ok := parseUserID(cb.Payload)
	if !ok {
		return e.reply(ctx, cb.UserID, txtUnknownAction, nil)
	}
	data := state.Data{}.SetInt64(dataTargetUser, target)
	if err := e.transition(ctx, cb.UserID, StateReply, data); err != nil {
		return err
	}
	return e.reply(ctx, cb.UserID, txtAskReply(target), cancelReplyKeyboard())
}

func (e *Engine) stepReply(ctx context.Context, msg Message, data state.Data) error {
	target, ok := data.Int64(dataTargetUser)
	if !ok {
		return e.finish(ctx, msg.UserID)
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return e.reprompt(ctx, msg.UserID, errEmpty, txtAskReply(target))
	}
	if done, err := e.requireTarget(ctx, msg.UserID, target); err != nil || !done {
		return err
	}
	if err := e.store.AddSupportMessage(ctx, target, text, ledger.AdminToUser); err != nil {
		return err
	}
	if err := e.finish(ctx, msg.UserID); err != nil {
		return err
	}
	if e.notify(ctx, target, txtSupportReply(text)) {
		_ = e.reply(ctx, msg.UserID, txtReplySent, nil)
	}
	return nil
}

// requireTarget checks that a stashed target still exists and clears the
// admin's state when it does not.
func (e *Engine) requireTarget(ctx context.Context, adminID, target int64) (bool, error) {
	exists, err := e.store.UserExists(ctx, target)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	if err := e.finish(ctx, adminID); err != nil {
		return false, err
	}
	return false, e.reply(ctx, adminID, txtTargetGone, nil)
}

func (e *Engine) stepBalanceUpdate(ctx context.Context, msg Message, _ state.Data) error {
	target, amount, ok := parseBalance(msg.Text)
	if !ok {
		return e.reply(ctx, msg.UserID, txtBadBalance, nil)
	}
	err := e.store.SetBalance(ctx, target, amount)
	if errors.Is(err, ledger.ErrNotFound) {
		return e.reply(ctx, msg.UserID, txtUserNotFound, nil)
	}
	if err != nil {
		return err
	}
	logger.Info(ctx, "engine", "balance.updated",
		slog.Int64("target_user_id", target),
		slog.Float64("amount", amount),
	)
	if err := e.finish(ctx, msg.UserID); err != nil {
		return err
	}
	_ = e.reply(ctx, msg.UserID, fmt.Sprintf(txtBalanceUpdated, target, formatAmount(amount)), nil)
	e.notify(ctx, target, fmt.Sprintf(txtBalanceNotice, formatAmount(amount)))
	return nil
}

func (e *Engine) stepBroadcast(ctx context.Context, msg Message, _ state.Data) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return e.reprompt(ctx, msg.UserID, errEmpty, txtAskBroadcast)
	}
	ids, err := e.store.ListUserIDs(ctx)
	if err != nil {
		return err
	}
	if err := e.finish(ctx, msg.UserID); err != nil {
		return err
	}
	rep := e.Broadcast(ctx, ids, text)
	return e.reply(ctx, msg.UserID, fmt.Sprintf(txtBroadcastReport, rep.Delivered, rep.Total), nil)
}

// Broadcast sends text to every recipient and reports how many got it.
func (e *Engine) Broadcast(ctx context.Context, recipients []int64, text string) Report {
	return e.fanout.Deliver(ctx, "broadcast", recipients, func(ctx context.Context, to int64) error {
		_, err := e.out.Send(ctx, to, text, nil)
		return err
	})
}

func (e *Engine) stepPrivateUser(ctx context.Context, msg Message, _ state.Data) error {
	u, found, err := e.lookupUser(ctx, msg)
	if err != nil || !found {
		return err
	}
	data := state.Data{}.SetInt64(dataTargetUser, u.ID)
	if err := e.transition(ctx, msg.UserID, StatePrivateMessage, data); err != nil {
		return err
	}
	return e.reply(ctx, msg.UserID, fmt.Sprintf(txtAskPrivateText, u.FullName(), u.ID), cancelReplyKeyboard())
}

// lookupUser resolves a numeric id or a unique "First Last" name. Misses
// are answered here and the state is kept for another attempt.
func (e *Engine) lookupUser(ctx context.Context, msg Message) (ledger.User, bool, error) {
	in := strings.TrimSpace(msg.Text)
	if id, ok := parseUserID(in); ok {
		u, err := e.store.GetUser(ctx, id)
		if errors.Is(err, ledger.ErrNotFound) {
			return u, false, e.reply(ctx, msg.UserID, txtUserNotFound, nil)
		}
		return u, err == nil, err
	}
	parts := strings.Fields(in)
	if len(parts) != 2 {
		return ledger.User{}, false, e.reply(ctx, msg.UserID, txtBadPrivateUser, nil)
	}
	users, err := e.store.FindUsersByName(ctx, parts[0], parts[1])
	if err != nil {
		return ledger.User{}, false, err
	}
	switch len(users) {
	case 0:
		return ledger.User{}, false, e.reply(ctx, msg.UserID, txtUserNotFound, nil)
	case 1:
		return users[0], true, nil
	default:
		return ledger.User{}, false, e.reply(ctx, msg.UserID, txtAmbiguousName, nil)
	}
}

func (e *Engine) stepPrivateMessage(ctx context.Context, msg Message, data state.Data) error {
	target, ok := data.Int64(dataTargetUser)
	if !ok {
		return e.finish(ctx, msg.UserID)
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return e.reply(ctx, msg.UserID, txtEmptyInput, nil)
	}
	if done, err := e.requireTarget(ctx, msg.UserID, target); err != nil || !done {
		return err
	}
	if err := e.finish(ctx, msg.UserID); err != nil {
		return err
	}
	if e.notify(ctx, target, txtPrivateMessage(text)) {
		logger.Info(ctx, "engine", "private.sent", slog.Int64("target_user_id", target))
		_ = e.reply(ctx, msg.UserID, txtPrivateSent, nil)
	}
	return nil
}

func (e *Engine) stepResetApproved(ctx context.Context, msg Message, _ state.Data) error {
	target, ok := parseUserID(msg.Text)
	if !ok {
		return e.reply(ctx, msg.UserID, txtBadUserID, nil)
	}
	err := e.store.ResetApprovedCount(ctx, target)
	if errors.Is(err, ledger.ErrNotFound) {
		return e.reply(ctx, msg.UserID, txtUserNotFound, nil)
	}
	if err != nil {
		return err
	}
	logger.Info(ctx, "engine", "approved.reset", slog.Int64("target_user_id", target))
	if err := e.finish(ctx, msg.UserID); err != nil {
		return err
	}
	_ = e.reply(ctx, msg.UserID, fmt.Sprintf(txtApprovedReset, target), nil)
	e.notify(ctx, target, txtResetNotice)
	return nil
}
