package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/telegram/state"
	"github.com/m3rciful/contentbot/internal/ledger"
)

func (e *Engine) cbRegister(ctx context.Context, cb Callback, _ *acker) error {
	passed, err := e.gate(ctx, cb.UserID)
	if err != nil || !passed {
		return err
	}
	exists, err := e.store.UserExists(ctx, cb.UserID)
	if err != nil {
		return err
	}
	if exists {
		return e.reply(ctx, cb.UserID, txtAlreadyReg, mainMenuKeyboard())
	}
	if err := e.transition(ctx, cb.UserID, StateFirstName, nil); err != nil {
		return err
	}
	return e.reply(ctx, cb.UserID, txtAskFirstName, nil)
}

func (e *Engine) stepFirstName(ctx context.Context, msg Message, _ state.Data) error {
	name, err := validateField(ledger.FieldFirstName, msg.Text)
	if err != nil {
		return e.reprompt(ctx, msg.UserID, err, txtAskFirstName)
	}
	if err := e.store.StartRegistration(ctx, msg.UserID, name); err != nil {
		return err
	}
	logger.Info(ctx, "engine", "registration.started", slog.Int64("user_id", msg.UserID))
	if err := e.transition(ctx, msg.UserID, StateLastName, nil); err != nil {
		return err
	}
	return e.reply(ctx, msg.UserID, txtAskLastName, nil)
}

func (e *Engine) stepLastName(ctx context.Context, msg Message, _ state.Data) error {
	return e.registrationField(ctx, msg, ledger.FieldLastName, txtAskLastName, StateGroupLeader, txtAskGroupLeader)
}

func (e *Engine) stepGroupLeader(ctx context.Context, msg Message, _ state.Data) error {
	return e.registrationField(ctx, msg, ledger.FieldGroupLeader, txtAskGroupLeader, StateCardOrWallet, txtAskCard)
}

func (e *Engine) stepCardOrWallet(ctx context.Context, msg Message, _ state.Data) error {
	return e.registrationField(ctx, msg, ledger.FieldCard, txtAskCard, StateSheba, txtAskSheba)
}

func (e *Engine) stepSheba(ctx context.Context, msg Message, _ state.Data) error {
	done, err := e.saveField(ctx, msg, ledger.FieldSheba, txtAskSheba)
	if err != nil || !done {
		return err
	}
	if err := e.finish(ctx, msg.UserID); err != nil {
		return err
	}
	logger.Info(ctx, "engine", "registration.completed", slog.Int64("user_id", msg.UserID))
	_ = e.reply(ctx, msg.UserID, txtRegistered, nil)
	return e.reply(ctx, msg.UserID, txtMainMenu, mainMenuKeyboard())
}

// registrationField stores one field and advances to next.
func (e *Engine) registrationField(ctx context.Context, msg Message, field ledger.Field, ask string, next state.State, nextAsk string) error {
	done, err := e.saveField(ctx, msg, field, ask)
	if err != nil || !done {
		return err
	}
	if err := e.transition(ctx, msg.UserID, next, nil); err != nil {
		return err
	}
	return e.reply(ctx, msg.UserID, nextAsk, nil)
}

// editStep returns the step that overwrites a single profile field.
func (e *Engine) editStep(field ledger.Field, ask string) stepFunc {
	return func(ctx context.Context, msg Message, _ state.Data) error {
		done, err := e.saveField(ctx, msg, field, ask)
		if err != nil || !done {
			return err
		}
		if err := e.finish(ctx, msg.UserID); err != nil {
			return err
		}
		logger.Info(ctx, "engine", "profile.updated",
			slog.Int64("user_id", msg.UserID),
			slog.String("field", string(field)),
		)
		_ = e.reply(ctx, msg.UserID, txtFieldUpdated, nil)
		return e.reply(ctx, msg.UserID, txtMainMenu, mainMenuKeyboard())
	}
}

// saveField validates and writes one field. It reports false when the user
// was re-prompted or sent back to registration.
func (e *Engine) saveField(ctx context.Context, msg Message, field ledger.Field, ask string) (bool, error) {
	value, err := validateField(field, msg.Text)
	if err != nil {
		return false, e.reprompt(ctx, msg.UserID, err, ask)
	}
	err = e.store.UpdateField(ctx, msg.UserID, field, value)
	if errors.Is(err, ledger.ErrNotFound) {
		if err := e.finish(ctx, msg.UserID); err != nil {
			return false, err
		}
		return false, e.reply(ctx, msg.UserID, txtPleaseRegister, nil)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// reprompt answers a validation failure; the state is kept.
func (e *Engine) reprompt(ctx context.Context, userID int64, cause error, ask string) error {
	if errors.Is(cause, errBadSheba) {
		return e.reply(ctx, userID, txtBadSheba, nil)
	}
	return e.reply(ctx, userID, txtEmptyInput+"\n\n"+ask, nil)
}
