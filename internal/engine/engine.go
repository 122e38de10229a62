// Package engine is the conversation state machine of the bot. It turns
// inbound messages, commands and button presses into ledger writes and
// outbound messages, one event at a time per user.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/contentbot/core/logger"
	"github.com/m3rciful/contentbot/core/metrics"
	"github.com/m3rciful/contentbot/core/telegram/keyboard"
	"github.com/m3rciful/contentbot/core/telegram/state"
	"github.com/m3rciful/contentbot/internal/ledger"
)

// Keyboard is a grid of inline buttons; Unique carries the callback key and
// Data its payload.
type Keyboard [][]keyboard.Button

// MessageRef points at a delivered message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
	// Photo marks media messages whose caption, not text, is edited.
	Photo bool
}

// Messenger is the outbound side of the transport.
type Messenger interface {
	Send(ctx context.Context, to int64, text string, kb Keyboard) (MessageRef, error)
	SendPhoto(ctx context.Context, to int64, fileID, caption string, kb Keyboard) (MessageRef, error)
	// Edit replaces the text (or caption) of ref and its keyboard; nil kb removes it.
	Edit(ctx context.Context, ref MessageRef, text string, kb Keyboard) error
	// Answer acknowledges a button press, optionally as an alert.
	Answer(ctx context.Context, callbackID, text string, alert bool) error
	IsMember(ctx context.Context, channelID, userID int64) (bool, error)
}

// Message is an inbound text or photo from a private chat.
type Message struct {
	UserID    int64
	FirstName string
	Text      string
	// PhotoID is the file reference of the largest photo size, if any.
	PhotoID string
}

// Callback is an inbound button press.
type Callback struct {
	ID      string
	UserID  int64
	Key     string
	Payload string
	Message MessageRef
}

// Options configure an Engine.
type Options struct {
	Store     *ledger.Store
	States    state.Manager
	Messenger Messenger
	AdminID   int64
	Metrics   *metrics.Metrics
}

type stepFunc func(ctx context.Context, msg Message, data state.Data) error

type step struct {
	state state.State
	admin bool
	run   stepFunc
}

type callbackFunc func(ctx context.Context, cb Callback, ack *acker) error

type callbackRoute struct {
	admin bool
	// manualAck leaves the acknowledgement to the handler so it can alert.
	manualAck bool
	run       callbackFunc
}

// Engine dispatches events to the step registered for the user's state.
type Engine struct {
	store   *ledger.Store
	states  state.Manager
	out     Messenger
	adminID int64
	metrics *metrics.Metrics
	fanout  *Fanout
	locks   *state.KeyedMutex

	steps     map[state.State]step
	callbacks map[string]callbackRoute
}

// New validates opts and builds the step table.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.States == nil || opts.Messenger == nil {
		return nil, errors.New("engine: store, states and messenger are required")
	}
	if opts.AdminID == 0 {
		return nil, errors.New("engine: admin id is required")
	}
	e := &Engine{
		store:   opts.Store,
		states:  opts.States,
		out:     opts.Messenger,
		adminID: opts.AdminID,
		metrics: opts.Metrics,
		fanout:  NewFanout(opts.Metrics),
		locks:   state.NewKeyedMutex(),
	}
	steps, err := buildSteps(e.stepDefs(), States)
	if err != nil {
		return nil, err
	}
	e.steps = steps
	e.callbacks = e.callbackRoutes()
	return e, nil
}

func buildSteps(defs []step, declared []state.State) (map[state.State]step, error) {
	table := make(map[state.State]step, len(defs))
	for _, d := range defs {
		if d.run == nil {
			return nil, fmt.Errorf("engine: step for %q has no handler", d.state)
		}
		if _, dup := table[d.state]; dup {
			return nil, fmt.Errorf("engine: step for %q registered twice", d.state)
		}
		table[d.state] = d
	}
	for _, st := range declared {
		if _, ok := table[st]; !ok {
			return nil, fmt.Errorf("engine: no step for state %q", st)
		}
	}
	if len(table) != len(declared) {
		return nil, fmt.Errorf("engine: %d steps for %d declared states", len(table), len(declared))
	}
	return table, nil
}

func (e *Engine) stepDefs() []step {
	return []step{
		{state: StateFirstName, run: e.stepFirstName},
		{state: StateLastName, run: e.stepLastName},
		{state: StateGroupLeader, run: e.stepGroupLeader},
		{state: StateCardOrWallet, run: e.stepCardOrWallet},
		{state: StateSheba, run: e.stepSheba},

		{state: StateEditFirstName, run: e.editStep(ledger.FieldFirstName, txtAskFirstName)},
		{state: StateEditLastName, run: e.editStep(ledger.FieldLastName, txtAskLastName)},
		{state: StateEditGroupLeader, run: e.editStep(ledger.FieldGroupLeader, txtAskGroupLeader)},
		{state: StateEditCardOrWallet, run: e.editStep(ledger.FieldCard, txtAskCard)},
		{state: StateEditSheba, run: e.editStep(ledger.FieldSheba, txtAskSheba)},

		{state: StateContent, run: e.stepContent},
		{state: StateSupport, run: e.stepSupport},

		{state: StateBalanceUpdate, admin: true, run: e.stepBalanceUpdate},
		{state: StateReply, admin: true, run: e.stepReply},
		{state: StateBroadcast, admin: true, run: e.stepBroadcast},
		{state: StatePrivateUser, admin: true, run: e.stepPrivateUser},
		{state: StatePrivateMessage, admin: true, run: e.stepPrivateMessage},
		{state: StateApprovalDetails, admin: true, run: e.stepApprovalDetails},
		{state: StateResetApproved, admin: true, run: e.stepResetApproved},

		{state: StateAwaitingMembership, run: e.stepAwaitingMembership},
	}
}

func (e *Engine) callbackRoutes() map[string]callbackRoute {
	return map[string]callbackRoute{
		CbRegister:        {run: e.cbRegister},
		CbCheckMembership: {manualAck: true, run: e.cbCheckMembership},
		CbSubmitContent:   {run: e.prompt(StateContent, txtAskContent)},
		CbSupport:         {run: e.prompt(StateSupport, txtAskSupport)},
		CbMyProfile:       {run: e.cbMyProfile},
		CbCheckBalance:    {run: e.cbCheckBalance},
		CbEditProfile:     {run: e.cbEditProfile},
		CbBackToMain:      {run: e.cbBackToMain},
		CbCancelReply:     {run: e.cbCancel},

		CbEditFirstName:    {run: e.prompt(StateEditFirstName, txtAskFirstName)},
		CbEditLastName:     {run: e.prompt(StateEditLastName, txtAskLastName)},
		CbEditGroupLeader:  {run: e.prompt(StateEditGroupLeader, txtAskGroupLeader)},
		CbEditCardOrWallet: {run: e.prompt(StateEditCardOrWallet, txtAskCard)},
		CbEditSheba:        {run: e.prompt(StateEditSheba, txtAskSheba)},

		CbToggleBot:          {admin: true, run: e.cbToggleBot},
		CbViewUsers:          {admin: true, run: e.cbViewUsers},
		CbViewSupport:        {admin: true, run: e.cbViewSupport},
		CbManageBalances:     {admin: true, run: e.adminPrompt(StateBalanceUpdate, txtAskBalance)},
		CbBroadcast:          {admin: true, run: e.adminPrompt(StateBroadcast, txtAskBroadcast)},
		CbPrivateMessage:     {admin: true, run: e.adminPrompt(StatePrivateUser, txtAskPrivateUser)},
		CbResetApprovedCount: {admin: true, run: e.adminPrompt(StateResetApproved, txtAskResetID)},
		CbReply:              {admin: true, run: e.cbReply},
		CbApprove:            {admin: true, manualAck: true, run: e.cbApprove},
		CbReject:             {admin: true, manualAck: true, run: e.cbReject},
	}
}

// CallbackKeys lists every button key the engine handles.
func (e *Engine) CallbackKeys() []string {
	keys := make([]string, 0, len(e.callbacks))
	for k := range e.callbacks {
		keys = append(keys, k)
	}
	return keys
}

func (e *Engine) isAdmin(userID int64) bool {
	return userID == e.adminID
}

// authorize is the single admin gate shared by commands, steps and buttons.
func (e *Engine) authorize(ctx context.Context, userID int64, op string) bool {
	if e.isAdmin(userID) {
		return true
	}
	logger.Warn(ctx, "engine", "auth.denied",
		slog.Int64("user_id", userID),
		slog.String("op", op),
	)
	return false
}

// active reports whether userID may use the bot right now. The admin is
// never locked out.
func (e *Engine) active(ctx context.Context, userID int64) (bool, error) {
	if e.isAdmin(userID) {
		return true, nil
	}
	return e.store.IsBotActive(ctx)
}

// HandleStart resets the conversation and shows the entry screen.
func (e *Engine) HandleStart(ctx context.Context, msg Message) {
	defer e.locks.Lock(msg.UserID)()
	if err := e.start(ctx, msg.UserID); err != nil {
		e.fail(ctx, msg.UserID, "start", err)
	}
}

func (e *Engine) start(ctx context.Context, userID int64) error {
	ok, err := e.active(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return e.reply(ctx, userID, txtBotInactive, nil)
	}
	passed, err := e.gate(ctx, userID)
	if err != nil || !passed {
		return err
	}
	if err := e.finish(ctx, userID); err != nil {
		return err
	}
	return e.entryScreen(ctx, userID, txtWelcomeBack)
}

// entryScreen shows the main menu to registered users and the register
// button to everyone else.
func (e *Engine) entryScreen(ctx context.Context, userID int64, greeting string) error {
	exists, err := e.store.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return e.reply(ctx, userID, txtWelcomeNew, registerKeyboard())
	}
	return e.reply(ctx, userID, greeting, mainMenuKeyboard())
}

// HandleAdmin opens the admin panel.
func (e *Engine) HandleAdmin(ctx context.Context, msg Message) {
	defer e.locks.Lock(msg.UserID)()
	if !e.authorize(ctx, msg.UserID, "admin_panel") {
		return
	}
	err := e.finish(ctx, msg.UserID)
	if err == nil {
		err = e.showAdminPanel(ctx)
	}
	if err != nil {
		e.fail(ctx, msg.UserID, "admin_panel", err)
	}
}

// HandleMessage feeds text or a photo to the step of the sender's state.
// Input with no pending state is ignored.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) {
	defer e.locks.Lock(msg.UserID)()
	if err := e.dispatch(ctx, msg); err != nil {
		e.fail(ctx, msg.UserID, "message", err)
	}
}

func (e *Engine) dispatch(ctx context.Context, msg Message) error {
	ok, err := e.active(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return e.reply(ctx, msg.UserID, txtBotInactive, nil)
	}
	st, err := e.states.GetState(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if st == state.StateIdle {
		return nil
	}
	s, found := e.steps[st]
	if !found {
		logger.Warn(ctx, "engine", "state.unknown",
			slog.Int64("user_id", msg.UserID),
			slog.String("state", string(st)),
		)
		return e.finish(ctx, msg.UserID)
	}
	if s.admin && !e.authorize(ctx, msg.UserID, string(st)) {
		return nil
	}
	data, err := e.states.GetStateData(ctx, msg.UserID)
	if err != nil {
		return err
	}
	return s.run(logger.WithHandler(ctx, string(st)), msg, data)
}

// HandleCallback routes a button press. Every press is acknowledged exactly
// once; authorization failures and stale moderation buttons get an alert.
func (e *Engine) HandleCallback(ctx context.Context, cb Callback) {
	defer e.locks.Lock(cb.UserID)()
	ack := &acker{out: e.out, id: cb.ID}
	defer ack.done(ctx)

	if err := e.route(ctx, cb, ack); err != nil {
		e.fail(ctx, cb.UserID, cb.Key, err)
	}
}

func (e *Engine) route(ctx context.Context, cb Callback, ack *acker) error {
	r, found := e.callbacks[cb.Key]
	if !found {
		logger.Warn(ctx, "engine", "callback.unknown",
			slog.Int64("user_id", cb.UserID),
			slog.String("callback", cb.Key),
		)
		return ack.alert(ctx, txtUnknownAction)
	}
	ok, err := e.active(ctx, cb.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ack.alert(ctx, txtBotInactive)
	}
	if r.admin && !e.authorize(ctx, cb.UserID, cb.Key) {
		return ack.alert(ctx, txtNotAuthorized)
	}
	if !r.manualAck {
		ack.done(ctx)
	}
	return r.run(logger.WithHandler(ctx, cb.Key), cb, ack)
}

// acker sends at most one callback answer.
type acker struct {
	out  Messenger
	id   string
	once sync.Once
}

func (a *acker) answer(ctx context.Context, text string, alert bool) error {
	var err error
	a.once.Do(func() {
		err = a.out.Answer(ctx, a.id, text, alert)
	})
	if err != nil {
		logger.Warn(ctx, "engine", "callback.answer",
			slog.String("err", err.Error()),
		)
	}
	return nil
}

func (a *acker) done(ctx context.Context) { _ = a.answer(ctx, "", false) }

func (a *acker) alert(ctx context.Context, text string) error {
	return a.answer(ctx, text, true)
}

// transition moves userID to st.
func (e *Engine) transition(ctx context.Context, userID int64, st state.State, data state.Data) error {
	if err := e.states.SetState(ctx, userID, st, data); err != nil {
		return err
	}
	e.metrics.ObserveTransition(string(st))
	logger.LogEvent(ctx, logger.Component("engine"), slog.LevelDebug, "state.transition",
		slog.Int64("user_id", userID),
		slog.String("to_state", string(st)),
	)
	return nil
}

// finish ends the conversation of userID.
func (e *Engine) finish(ctx context.Context, userID int64) error {
	pending := e.states.InProgress(ctx, userID)
	if err := e.states.ClearState(ctx, userID); err != nil {
		return err
	}
	if pending {
		e.metrics.ObserveTransition("")
	}
	return nil
}

func (e *Engine) reply(ctx context.Context, to int64, text string, kb Keyboard) error {
	if _, err := e.out.Send(ctx, to, text, kb); err != nil {
		logger.Warn(ctx, "engine", "message.send",
			slog.Int64("target_user_id", to),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

// fail logs a handler error and tells the user; the state is left as is.
func (e *Engine) fail(ctx context.Context, userID int64, op string, err error) {
	logger.LogEvent(ctx, logger.Component("engine"), slog.LevelError, "handler.failed",
		slog.Int64("user_id", userID),
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	_ = e.reply(ctx, userID, txtGenericFailure, nil)
}
