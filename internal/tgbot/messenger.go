// Package tgbot binds the conversation engine to telebot: it implements the
// engine's outbound Messenger on top of the Bot API and maps inbound updates
// to engine events.
package tgbot

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/m3rciful/contentbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/contentbot/core/telegram/sender"
	"github.com/m3rciful/contentbot/internal/engine"

	tele "gopkg.in/telebot.v4"
)

// BotAPI is the subset of *tele.Bot the messenger calls.
type BotAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditCaption(msg tele.Editable, caption string, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

var errUnbound = errors.New("tgbot: bot api not bound")

// Messenger sends through the Bot API with the executor's retry policy.
type Messenger struct {
	mu   sync.RWMutex
	api  BotAPI
	exec *tgsender.Executor
}

var _ engine.Messenger = (*Messenger)(nil)

// NewMessenger wraps api; a nil exec gets default retry options. api may be
// nil until Bind is called.
func NewMessenger(api BotAPI, exec *tgsender.Executor) *Messenger {
	if exec == nil {
		exec = tgsender.NewExecutor(tgsender.Options{})
	}
	return &Messenger{api: api, exec: exec}
}

// Bind sets the API once the bot exists.
func (m *Messenger) Bind(api BotAPI) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.api = api
}

func (m *Messenger) client() (BotAPI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.api == nil {
		return nil, errUnbound
	}
	return m.api, nil
}

func markup(kb engine.Keyboard) []interface{} {
	if len(kb) == 0 {
		return nil
	}
	return []interface{}{keyboard.Markup(kb...)}
}

func refOf(m *tele.Message) engine.MessageRef {
	if m == nil {
		return engine.MessageRef{}
	}
	ref := engine.MessageRef{MessageID: m.ID, Photo: m.Photo != nil}
	if m.Chat != nil {
		ref.ChatID = m.Chat.ID
	}
	return ref
}

// Send delivers a text message.
func (m *Messenger) Send(ctx context.Context, to int64, text string, kb engine.Keyboard) (engine.MessageRef, error) {
	api, err := m.client()
	if err != nil {
		return engine.MessageRef{}, err
	}
	var sent *tele.Message
	err = m.exec.Do(ctx, "send_message", "sendMessage", func(context.Context) error {
		var err error
		sent, err = api.Send(tele.ChatID(to), text, markup(kb)...)
		return err
	})
	return refOf(sent), err
}

// SendPhoto re-sends a stored photo by file id.
func (m *Messenger) SendPhoto(ctx context.Context, to int64, fileID, caption string, kb engine.Keyboard) (engine.MessageRef, error) {
	api, err := m.client()
	if err != nil {
		return engine.MessageRef{}, err
	}
	photo := &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
	var sent *tele.Message
	err = m.exec.Do(ctx, "send_photo", "sendPhoto", func(context.Context) error {
		var err error
		sent, err = api.Send(tele.ChatID(to), photo, markup(kb)...)
		return err
	})
	return refOf(sent), err
}

// Edit rewrites a message text, or its caption for media messages.
func (m *Messenger) Edit(ctx context.Context, ref engine.MessageRef, text string, kb engine.Keyboard) error {
	api, err := m.client()
	if err != nil {
		return err
	}
	msg := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
	if ref.Photo {
		return m.exec.Do(ctx, "edit_caption", "editMessageCaption", func(context.Context) error {
			_, err := api.EditCaption(msg, text, markup(kb)...)
			return err
		})
	}
	return m.exec.Do(ctx, "edit_message", "editMessageText", func(context.Context) error {
		_, err := api.Edit(msg, text, markup(kb)...)
		return err
	})
}

// Answer acknowledges a callback query.
func (m *Messenger) Answer(ctx context.Context, callbackID, text string, alert bool) error {
	api, err := m.client()
	if err != nil {
		return err
	}
	cb := &tele.Callback{ID: callbackID}
	return m.exec.Do(ctx, "answer_callback", "answerCallbackQuery", func(context.Context) error {
		if text == "" {
			return api.Respond(cb)
		}
		return api.Respond(cb, &tele.CallbackResponse{Text: text, ShowAlert: alert})
	})
}

// IsMember reports whether userID is an active member of channelID.
func (m *Messenger) IsMember(ctx context.Context, channelID, userID int64) (bool, error) {
	api, err := m.client()
	if err != nil {
		return false, err
	}
	var member *tele.ChatMember
	err = m.exec.Do(ctx, "chat_member", "getChatMember", func(context.Context) error {
		var err error
		member, err = api.ChatMemberOf(tele.ChatID(channelID), &tele.User{ID: userID})
		return err
	})
	if err != nil {
		return false, err
	}
	switch member.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true, nil
	case tele.Restricted:
		return member.Member, nil
	}
	return false, nil
}
