package engine

import (
	"context"
	"log/slog"

	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/telegram/state"
	"github.com/m3rciful/contentbot/internal/ledger"
)

// missingChannels returns the required channels userID has not joined. A
// failed membership lookup counts as not joined.
func (e *Engine) missingChannels(ctx context.Context, userID int64) ([]ledger.Channel, error) {
	if e.isAdmin(userID) {
		return nil, nil
	}
	chans, err := e.store.RequiredChannels(ctx)
	if err != nil {
		return nil, err
	}
	var missing []ledger.Channel
	for _, ch := range chans {
		ok, err := e.out.IsMember(ctx, ch.ID, userID)
		if err != nil {
			logger.Warn(ctx, "engine", "membership.check",
				slog.Int64("user_id", userID),
				slog.Int64("chat_id", ch.ID),
				slog.String("err", err.Error()),
			)
		}
		if err != nil || !ok {
			missing = append(missing, ch)
		}
	}
	return missing, nil
}

// gate reports whether userID passes the channel membership check. On
// failure the user is parked in awaiting_membership with the join prompt.
func (e *Engine) gate(ctx context.Context, userID int64) (bool, error) {
	missing, err := e.missingChannels(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(missing) == 0 {
		return true, nil
	}
	if err := e.transition(ctx, userID, StateAwaitingMembership, nil); err != nil {
		return false, err
	}
	return false, e.reply(ctx, userID, txtJoinChannels(missing), membershipKeyboard(missing))
}

func (e *Engine) stepAwaitingMembership(ctx context.Context, msg Message, _ state.Data) error {
	missing, err := e.missingChannels(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		if err := e.finish(ctx, msg.UserID); err != nil {
			return err
		}
		return e.entryScreen(ctx, msg.UserID, txtWelcomeBack)
	}
	return e.reply(ctx, msg.UserID, txtJoinChannels(missing), membershipKeyboard(missing))
}

func (e *Engine) cbCheckMembership(ctx context.Context, cb Callback, ack *acker) error {
	missing, err := e.missingChannels(ctx, cb.UserID)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return ack.alert(ctx, txtStillNotMember)
	}
	ack.done(ctx)
	if err := e.finish(ctx, cb.UserID); err != nil {
		return err
	}
	return e.entryScreen(ctx, cb.UserID, txtWelcomeBack)
}
