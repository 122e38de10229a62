package engine

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/contentbot/core/telegram/state"
	"github.com/m3rciful/contentbot/internal/ledger"
	"github.com/m3rciful/contentbot/internal/ledger/ledgertest"
)

const adminID int64 = 9000

var errUnreachable = errors.New("forbidden: bot was blocked by the user")

type outbound struct {
	To      int64
	Text    string
	PhotoID string
	KB      Keyboard
	Ref     MessageRef
}

type edit struct {
	Ref  MessageRef
	Text string
}

type answer struct {
	ID    string
	Text  string
	Alert bool
}

// fakeMessenger records outbound traffic and fails deliveries to selected users.
type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []outbound
	edits   []edit
	answers []answer
	failTo  map[int64]bool
	members map[int64]map[int64]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		failTo:  make(map[int64]bool),
		members: make(map[int64]map[int64]bool),
	}
}

func (f *fakeMessenger) record(to int64, text, photo string, kb Keyboard) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo[to] {
		return MessageRef{}, errUnreachable
	}
	f.nextID++
	ref := MessageRef{ChatID: to, MessageID: f.nextID, Photo: photo != ""}
	f.sent = append(f.sent, outbound{To: to, Text: text, PhotoID: photo, KB: kb, Ref: ref})
	return ref, nil
}

func (f *fakeMessenger) Send(_ context.Context, to int64, text string, kb Keyboard) (MessageRef, error) {
	return f.record(to, text, "", kb)
}

func (f *fakeMessenger) SendPhoto(_ context.Context, to int64, fileID, caption string, kb Keyboard) (MessageRef, error) {
	return f.record(to, caption, fileID, kb)
}

func (f *fakeMessenger) Edit(_ context.Context, ref MessageRef, text string, _ Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{Ref: ref, Text: text})
	return nil
}

func (f *fakeMessenger) Answer(_ context.Context, id, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{ID: id, Text: text, Alert: alert})
	return nil
}

func (f *fakeMessenger) IsMember(_ context.Context, channelID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[channelID][userID], nil
}

func (f *fakeMessenger) join(channelID, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[channelID] == nil {
		f.members[channelID] = make(map[int64]bool)
	}
	f.members[channelID][userID] = true
}

func (f *fakeMessenger) fail(userID int64, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failTo[userID] = on
}

// to returns everything delivered to userID.
func (f *fakeMessenger) to(userID int64) []outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []outbound
	for _, m := range f.sent {
		if m.To == userID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMessenger) last(t *testing.T, userID int64) outbound {
	t.Helper()
	msgs := f.to(userID)
	require.NotEmpty(t, msgs, "no messages for %d", userID)
	return msgs[len(msgs)-1]
}

func (f *fakeMessenger) answersFor(id string) []answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []answer
	for _, a := range f.answers {
		if a.ID == id {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeMessenger) lastEdit(t *testing.T) edit {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.edits)
	return f.edits[len(f.edits)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	e      *Engine
	store  *ledger.Store
	states state.Manager
	out    *fakeMessenger
	clock  *fakeClock
	cbSeq  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := ledgertest.New(t)
	states := state.NewMemoryManager(state.Options{Now: clock.Now})
	out := newFakeMessenger()
	e, err := New(Options{Store: store, States: states, Messenger: out, AdminID: adminID})
	require.NoError(t, err)
	return &harness{t: t, ctx: context.Background(), e: e, store: store, states: states, out: out, clock: clock}
}

func (h *harness) start(userID int64) {
	h.e.HandleStart(h.ctx, Message{UserID: userID})
}

func (h *harness) text(userID int64, text string) {
	h.e.HandleMessage(h.ctx, Message{UserID: userID, Text: text})
}

func (h *harness) photo(userID int64, fileID string) {
	h.e.HandleMessage(h.ctx, Message{UserID: userID, PhotoID: fileID})
}

// press sends a button press and returns its callback id.
func (h *harness) press(userID int64, key, payload string, ref MessageRef) string {
	h.cbSeq++
	id := "cb-" + strconv.Itoa(h.cbSeq)
	h.e.HandleCallback(h.ctx, Callback{ID: id, UserID: userID, Key: key, Payload: payload, Message: ref})
	return id
}

func (h *harness) state(userID int64) state.State {
	h.t.Helper()
	st, err := h.states.GetState(h.ctx, userID)
	require.NoError(h.t, err)
	return st
}

func (h *harness) user(userID int64) ledger.User {
	h.t.Helper()
	u, err := h.store.GetUser(h.ctx, userID)
	require.NoError(h.t, err)
	return u
}

// register walks userID through the whole registration chain.
func (h *harness) register(userID int64, first, last string) {
	h.t.Helper()
	h.press(userID, CbRegister, "", MessageRef{})
	h.text(userID, first)
	h.text(userID, last)
	h.text(userID, "Leader")
	h.text(userID, "6037991234567890")
	h.text(userID, validSheba)
	require.Equal(h.t, state.StateIdle, h.state(userID))
}

// submit sends text content from a registered user and returns the admin's
// moderation message.
func (h *harness) submit(userID int64, content string) outbound {
	h.t.Helper()
	h.press(userID, CbSubmitContent, "", MessageRef{})
	h.text(userID, content)
	return h.out.last(h.t, adminID)
}

const validSheba = "IR123456789012345678901234"

func payloadOf(kb Keyboard, key string) string {
	for _, row := range kb {
		for _, b := range row {
			if b.Unique == key {
				return b.Data
			}
		}
	}
	return ""
}
