package tgbot

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/contentbot/core/logger"
	tg "github.com/m3rciful/contentbot/core/telegram"
	tgsender "github.com/m3rciful/contentbot/core/telegram/sender"
	"github.com/m3rciful/contentbot/internal/engine"

	tele "gopkg.in/telebot.v4"
)

func init() {
	_ = logger.InitLogger(nil)
}

type call struct {
	Method string
	To     tele.Recipient
	What   interface{}
	Opts   []interface{}
	Resp   []*tele.CallbackResponse
}

type fakeAPI struct {
	mu       sync.Mutex
	calls    []call
	failures []error
	role     tele.MemberStatus
	isMember bool
	nextID   int
}

func (f *fakeAPI) next() error {
	if len(f.failures) == 0 {
		return nil
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return err
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "send", To: to, What: what, Opts: opts})
	if err := f.next(); err != nil {
		return nil, err
	}
	f.nextID++
	msg := &tele.Message{ID: f.nextID, Chat: &tele.Chat{ID: 77}}
	if p, ok := what.(*tele.Photo); ok {
		msg.Photo = p
	}
	return msg, nil
}

func (f *fakeAPI) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "edit", What: what, Opts: opts})
	return &tele.Message{}, f.next()
}

func (f *fakeAPI) EditCaption(msg tele.Editable, caption string, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "edit_caption", What: caption, Opts: opts})
	return &tele.Message{}, f.next()
}

func (f *fakeAPI) Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "respond", What: c.ID, Resp: resp})
	return f.next()
}

func (f *fakeAPI) ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "member", To: chat, What: user})
	if err := f.next(); err != nil {
		return nil, err
	}
	return &tele.ChatMember{Role: f.role, Member: f.isMember}, nil
}

func newMessenger(api *fakeAPI) *Messenger {
	exec := tgsender.NewExecutor(tgsender.Options{
		MaxRetries: 2,
		Sleep:      func(context.Context, time.Duration) error { return nil },
	})
	return NewMessenger(api, exec)
}

func TestSendWithKeyboard(t *testing.T) {
	api := &fakeAPI{}
	m := newMessenger(api)

	kb := engine.Keyboard{{{Text: "Approve", Unique: "approve", Data: "12"}}}
	ref, err := m.Send(context.Background(), 42, "hello", kb)
	require.NoError(t, err)
	assert.Equal(t, engine.MessageRef{ChatID: 77, MessageID: 1}, ref)

	require.Len(t, api.calls, 1)
	c := api.calls[0]
	assert.Equal(t, tele.ChatID(42), c.To)
	assert.Equal(t, "hello", c.What)
	require.Len(t, c.Opts, 1)
	markup, ok := c.Opts[0].(*tele.ReplyMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "approve", markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "12", markup.InlineKeyboard[0][0].Data)

	_, err = m.Send(context.Background(), 42, "plain", nil)
	require.NoError(t, err)
	assert.Empty(t, api.calls[1].Opts)
}

func TestSendRetriesServerErrors(t *testing.T) {
	api := &fakeAPI{failures: []error{errors.New("telegram: Internal Server Error (500)")}}
	m := newMessenger(api)

	_, err := m.Send(context.Background(), 1, "hi", nil)
	require.NoError(t, err)
	assert.Len(t, api.calls, 2)
}

func TestSendPhotoAndEditCaption(t *testing.T) {
	api := &fakeAPI{}
	m := newMessenger(api)

	ref, err := m.SendPhoto(context.Background(), 5, "file-1", "caption", nil)
	require.NoError(t, err)
	assert.True(t, ref.Photo)
	photo, ok := api.calls[0].What.(*tele.Photo)
	require.True(t, ok)
	assert.Equal(t, "file-1", photo.FileID)
	assert.Equal(t, "caption", photo.Caption)

	require.NoError(t, m.Edit(context.Background(), ref, "decided", nil))
	assert.Equal(t, "edit_caption", api.calls[1].Method)
	assert.Equal(t, "decided", api.calls[1].What)

	require.NoError(t, m.Edit(context.Background(), engine.MessageRef{ChatID: 5, MessageID: 9}, "text", nil))
	assert.Equal(t, "edit", api.calls[2].Method)
}

func TestAnswer(t *testing.T) {
	api := &fakeAPI{}
	m := newMessenger(api)

	require.NoError(t, m.Answer(context.Background(), "cb1", "", false))
	assert.Empty(t, api.calls[0].Resp)

	require.NoError(t, m.Answer(context.Background(), "cb2", "nope", true))
	require.Len(t, api.calls[1].Resp, 1)
	assert.Equal(t, "cb2", api.calls[1].What)
	assert.True(t, api.calls[1].Resp[0].ShowAlert)
	assert.Equal(t, "nope", api.calls[1].Resp[0].Text)
}

func TestIsMember(t *testing.T) {
	tests := []struct {
		role     tele.MemberStatus
		isMember bool
		want     bool
	}{
		{tele.Creator, false, true},
		{tele.Administrator, false, true},
		{tele.Member, false, true},
		{tele.Restricted, true, true},
		{tele.Restricted, false, false},
		{tele.Left, false, false},
		{tele.Kicked, false, false},
	}
	for _, tt := range tests {
		api := &fakeAPI{role: tt.role, isMember: tt.isMember}
		ok, err := newMessenger(api).IsMember(context.Background(), -100, 7)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "%s member=%v", tt.role, tt.isMember)
	}

	api := &fakeAPI{failures: []error{errors.New("telegram: Bad Request: user not found (400)")}}
	ok, err := newMessenger(api).IsMember(context.Background(), -100, 7)
	assert.Error(t, err)
	assert.False(t, ok)
}

type recordingEngine struct {
	mu        sync.Mutex
	starts    []engine.Message
	admins    []engine.Message
	messages  []engine.Message
	callbacks []engine.Callback
}

func (r *recordingEngine) HandleStart(_ context.Context, m engine.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, m)
}

func (r *recordingEngine) HandleAdmin(_ context.Context, m engine.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins = append(r.admins, m)
}

func (r *recordingEngine) HandleMessage(_ context.Context, m engine.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func (r *recordingEngine) HandleCallback(_ context.Context, cb engine.Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

func (r *recordingEngine) CallbackKeys() []string {
	return []string{engine.CbApprove, engine.CbRegister}
}

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return bot
}

func TestRegister(t *testing.T) {
	reg := tg.NewRegistry()
	h := NewHandlers(&recordingEngine{}, 1)
	require.NoError(t, h.Register(reg))

	keys := reg.ListCallbacks()
	sort.Strings(keys)
	assert.Equal(t, []string{engine.CbApprove, engine.CbRegister}, keys)
	_, _, ok := reg.LookupCommand("/admin")
	assert.True(t, ok)
	assert.Len(t, reg.ListCommands(true), 1)
	assert.NotNil(t, reg.TextFallback())

	assert.Error(t, h.Register(reg))
}

func TestCallbackMapping(t *testing.T) {
	bot := offlineBot(t)
	eng := &recordingEngine{}
	h := NewHandlers(eng, 1)

	c := bot.NewContext(tele.Update{Callback: &tele.Callback{
		ID:     "cb-9",
		Sender: &tele.User{ID: 1},
		Data:   "\fapprove|12",
		Message: &tele.Message{
			ID:    33,
			Chat:  &tele.Chat{ID: 1, Type: tele.ChatPrivate},
			Photo: &tele.Photo{},
		},
	}})
	require.NoError(t, h.onCallback(c))

	require.Len(t, eng.callbacks, 1)
	assert.Equal(t, engine.Callback{
		ID:      "cb-9",
		UserID:  1,
		Key:     engine.CbApprove,
		Payload: "12",
		Message: engine.MessageRef{ChatID: 1, MessageID: 33, Photo: true},
	}, eng.callbacks[0])
}

func TestMessageMapping(t *testing.T) {
	bot := offlineBot(t)
	eng := &recordingEngine{}
	h := NewHandlers(eng, 1)

	private := &tele.Chat{ID: 5, Type: tele.ChatPrivate}
	photo := &tele.Photo{File: tele.File{FileID: "ph-1"}}
	c := bot.NewContext(tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: 5, FirstName: "Sara"},
		Chat:   private,
		Photo:  photo,
	}})
	require.NoError(t, h.onMessage(c))

	c = bot.NewContext(tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: 5},
		Chat:   &tele.Chat{ID: -5, Type: tele.ChatGroup},
		Text:   "group chatter",
	}})
	require.NoError(t, h.onMessage(c))

	c = bot.NewContext(tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: 5},
		Chat:   private,
		Text:   "/start",
	}})
	require.NoError(t, h.onStart(c))

	require.Len(t, eng.messages, 1)
	assert.Equal(t, engine.Message{UserID: 5, FirstName: "Sara", PhotoID: "ph-1"}, eng.messages[0])
	require.Len(t, eng.starts, 1)
	assert.Equal(t, int64(5), eng.starts[0].UserID)
}

func TestUnboundMessenger(t *testing.T) {
	m := NewMessenger(nil, nil)
	_, err := m.Send(context.Background(), 1, "hi", nil)
	assert.ErrorIs(t, err, errUnbound)

	api := &fakeAPI{}
	m.Bind(api)
	_, err = m.Send(context.Background(), 1, "hi", nil)
	require.NoError(t, err)
	assert.Len(t, api.calls, 1)
}
