package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/telegram/callbacks"
	"github.com/m3rciful/contentbot/core/telegram/state"
	"github.com/m3rciful/contentbot/internal/ledger"
)

// cbApprove checks the submission is still pending and asks the admin for
// the approved item count. Nothing is written until the count arrives.
func (e *Engine) cbApprove(ctx context.Context, cb Callback, ack *acker) error {
	id, err := callbacks.PayloadInt64(cb.Payload)
	if err != nil {
		return ack.alert(ctx, txtSubmissionGone)
	}
	sub, err := e.store.GetSubmission(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return ack.alert(ctx, txtSubmissionGone)
	}
	if err != nil {
		return err
	}
	if sub.Status != ledger.StatusPending {
		return ack.alert(ctx, txtAlreadyDecided)
	}
	ack.done(ctx)

	data := state.Data{
		dataMessageChat:  strconv.FormatInt(cb.Message.ChatID, 10),
		dataMessageID:    strconv.Itoa(cb.Message.MessageID),
		dataMessagePhoto: strconv.FormatBool(cb.Message.Photo),
	}
	data.SetInt64(dataSubmission, id)
	if err := e.transition(ctx, cb.UserID, StateApprovalDetails, data); err != nil {
		return err
	}
	return e.reply(ctx, cb.UserID, fmt.Sprintf(txtAskApproved, id), cancelReplyKeyboard())
}

func (e *Engine) stepApprovalDetails(ctx context.Context, msg Message, data state.Data) error {
	id, ok := data.Int64(dataSubmission)
	if !ok {
		return e.finish(ctx, msg.UserID)
	}
	count, ok := parseCount(msg.Text)
	if !ok {
		return e.reply(ctx, msg.UserID, txtBadApproved, nil)
	}

	sub, err := e.store.ApproveSubmission(ctx, id, count)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return e.abandonDecision(ctx, msg.UserID, txtSubmissionGone)
	case errors.Is(err, ledger.ErrNotPending):
		return e.abandonDecision(ctx, msg.UserID, txtAlreadyDecided)
	case err != nil:
		return err
	}
	if err := e.finish(ctx, msg.UserID); err != nil {
		return err
	}
	e.decided(ctx, sub, count, refFromData(data))
	return nil
}

func (e *Engine) abandonDecision(ctx context.Context, adminID int64, text string) error {
	if err := e.finish(ctx, adminID); err != nil {
		return err
	}
	return e.reply(ctx, adminID, text, nil)
}

func (e *Engine) cbReject(ctx context.Context, cb Callback, ack *acker) error {
	id, err := callbacks.PayloadInt64(cb.Payload)
	if err != nil {
		return ack.alert(ctx, txtSubmissionGone)
	}
	sub, err := e.store.RejectSubmission(ctx, id)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return ack.alert(ctx, txtSubmissionGone)
	case errors.Is(err, ledger.ErrNotPending):
		return ack.alert(ctx, txtAlreadyDecided)
	case err != nil:
		return err
	}
	ack.done(ctx)
	e.decided(ctx, sub, 0, cb.Message)
	return nil
}

// decided runs the side effects of a committed decision: owner notice and
// the admin message rewrite. Failures here are reported, never rolled back.
func (e *Engine) decided(ctx context.Context, sub ledger.Submission, approved int, ref MessageRef) {
	e.metrics.ObserveDecision(string(sub.Status))
	logger.LogEvent(ctx, logger.Component("moderation"), slog.LevelInfo, "moderation."+string(sub.Status),
		slog.Int64("submission_id", sub.ID),
		slog.Int64("target_user_id", sub.UserID),
		slog.Int("approved_count", approved),
	)

	if err := e.notifyOwner(ctx, sub, approved); err != nil {
		logger.LogEvent(ctx, logger.Component("moderation"), slog.LevelWarn, "moderation.notify",
			slog.Int64("submission_id", sub.ID),
			slog.Int64("target_user_id", sub.UserID),
			slog.String("err", err.Error()),
		)
		_ = e.reply(ctx, e.adminID, fmt.Sprintf(txtDeliveryFailed, sub.UserID), nil)
	}

	text := txtDecision(sub, approved)
	if ref.MessageID == 0 {
		_ = e.reply(ctx, e.adminID, text, nil)
		return
	}
	if err := e.out.Edit(ctx, ref, text, nil); err != nil {
		logger.LogEvent(ctx, logger.Component("moderation"), slog.LevelWarn, "moderation.edit",
			slog.Int64("submission_id", sub.ID),
			slog.String("err", err.Error()),
		)
		_ = e.reply(ctx, e.adminID, text, nil)
	}
}

// notifyOwner tells the author about the decision with a copy of the content.
func (e *Engine) notifyOwner(ctx context.Context, sub ledger.Submission, approved int) error {
	notice := txtDecisionNotice(sub, approved)
	if sub.Kind == ledger.ContentPhoto {
		_, err := e.out.SendPhoto(ctx, sub.UserID, sub.Content, notice, nil)
		return err
	}
	_, err := e.out.Send(ctx, sub.UserID, notice+"\n\n"+sub.Content, nil)
	return err
}

func refFromData(data state.Data) MessageRef {
	chat, _ := data.Int64(dataMessageChat)
	id, _ := data.Int64(dataMessageID)
	return MessageRef{ChatID: chat, MessageID: int(id), Photo: data.Bool(dataMessagePhoto)}
}
