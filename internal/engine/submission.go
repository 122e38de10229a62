package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/telegram/state"
	"github.com/m3rciful/contentbot/internal/ledger"
)

// registered loads the caller's profile. A missing user is told to register
// and ok is false.
func (e *Engine) registered(ctx context.Context, userID int64) (ledger.User, bool, error) {
	u, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, ledger.ErrNotFound) {
		return ledger.User{}, false, e.reply(ctx, userID, txtPleaseRegister, nil)
	}
	if err != nil {
		return ledger.User{}, false, err
	}
	return u, true, nil
}

// prompt returns a user button handler that enters st and asks for input.
func (e *Engine) prompt(st state.State, ask string) callbackFunc {
	return func(ctx context.Context, cb Callback, _ *acker) error {
		if _, ok, err := e.registered(ctx, cb.UserID); err != nil || !ok {
			return err
		}
		if err := e.transition(ctx, cb.UserID, st, nil); err != nil {
			return err
		}
		return e.reply(ctx, cb.UserID, ask, nil)
	}
}

// show replaces the pressed message with a new screen, sending a fresh
// message when the edit fails.
func (e *Engine) show(ctx context.Context, cb Callback, text string, kb Keyboard) error {
	if cb.Message.MessageID != 0 && !cb.Message.Photo {
		if err := e.out.Edit(ctx, cb.Message, text, kb); err == nil {
			return nil
		}
	}
	return e.reply(ctx, cb.UserID, text, kb)
}

func (e *Engine) cbMyProfile(ctx context.Context, cb Callback, _ *acker) error {
	u, ok, err := e.registered(ctx, cb.UserID)
	if err != nil || !ok {
		return err
	}
	return e.show(ctx, cb, txtProfile(u), backKeyboard())
}

func (e *Engine) cbCheckBalance(ctx context.Context, cb Callback, _ *acker) error {
	u, ok, err := e.registered(ctx, cb.UserID)
	if err != nil || !ok {
		return err
	}
	return e.show(ctx, cb, txtBalance(u), backKeyboard())
}

func (e *Engine) cbEditProfile(ctx context.Context, cb Callback, _ *acker) error {
	if _, ok, err := e.registered(ctx, cb.UserID); err != nil || !ok {
		return err
	}
	return e.show(ctx, cb, txtEditMenu, editProfileKeyboard())
}

func (e *Engine) cbBackToMain(ctx context.Context, cb Callback, _ *acker) error {
	if _, ok, err := e.registered(ctx, cb.UserID); err != nil || !ok {
		return err
	}
	if err := e.finish(ctx, cb.UserID); err != nil {
		return err
	}
	return e.show(ctx, cb, txtMainMenu, mainMenuKeyboard())
}

func (e *Engine) cbCancel(ctx context.Context, cb Callback, _ *acker) error {
	if err := e.finish(ctx, cb.UserID); err != nil {
		return err
	}
	return e.show(ctx, cb, txtCancelled, nil)
}

func (e *Engine) stepContent(ctx context.Context, msg Message, _ state.Data) error {
	content, kind := strings.TrimSpace(msg.Text), ledger.ContentText
	if msg.PhotoID != "" {
		content, kind = msg.PhotoID, ledger.ContentPhoto
	}
	if content == "" {
		return e.reply(ctx, msg.UserID, txtEmptyContent, nil)
	}
	u, ok, err := e.registered(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return e.finish(ctx, msg.UserID)
	}

	id, err := e.store.CreateSubmission(ctx, msg.UserID, content, kind)
	if err != nil {
		return err
	}
	sub := ledger.Submission{ID: id, UserID: msg.UserID, Content: content, Kind: kind, Status: ledger.StatusPending}
	if err := e.forwardSubmission(ctx, u, sub); err != nil {
		logger.LogEvent(ctx, logger.Component("moderation"), slog.LevelWarn, "submission.forward",
			slog.Int64("submission_id", id),
			slog.Int64("user_id", msg.UserID),
			slog.String("err", err.Error()),
		)
		if derr := e.store.DeleteSubmission(ctx, id); derr != nil {
			return derr
		}
		return e.reply(ctx, msg.UserID, txtContentFailed, nil)
	}

	e.metrics.ObserveSubmission(string(kind))
	logger.LogEvent(ctx, logger.Component("moderation"), slog.LevelInfo, "submission.created",
		slog.Int64("submission_id", id),
		slog.Int64("user_id", msg.UserID),
		slog.String("content_type", string(kind)),
	)
	if err := e.finish(ctx, msg.UserID); err != nil {
		return err
	}
	return e.reply(ctx, msg.UserID, txtContentSent, nil)
}

// forwardSubmission puts a pending submission in front of the admin with
// approve and reject buttons.
func (e *Engine) forwardSubmission(ctx context.Context, u ledger.User, sub ledger.Submission) error {
	kb := moderationKeyboard(sub.ID)
	if sub.Kind == ledger.ContentPhoto {
		_, err := e.out.SendPhoto(ctx, e.adminID, sub.Content, txtNewSubmission(u, sub), kb)
		return err
	}
	_, err := e.out.Send(ctx, e.adminID, txtNewSubmission(u, sub), kb)
	return err
}

func (e *Engine) stepSupport(ctx context.Context, msg Message, _ state.Data) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return e.reprompt(ctx, msg.UserID, errEmpty, txtAskSupport)
	}
	u, ok, err := e.registered(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return e.finish(ctx, msg.UserID)
	}
	if err := e.store.AddSupportMessage(ctx, msg.UserID, text, ledger.UserToAdmin); err != nil {
		return err
	}
	if _, err := e.out.Send(ctx, e.adminID, txtSupportForward(u, text), replyKeyboard(msg.UserID)); err != nil {
		logger.Warn(ctx, "engine", "support.forward",
			slog.Int64("user_id", msg.UserID),
			slog.String("err", err.Error()),
		)
		return e.reply(ctx, msg.UserID, txtSupportFailed, nil)
	}
	logger.Info(ctx, "engine", "support.received", slog.Int64("user_id", msg.UserID))
	if err := e.finish(ctx, msg.UserID); err != nil {
		return err
	}
	return e.reply(ctx, msg.UserID, txtSupportSent, nil)
}
