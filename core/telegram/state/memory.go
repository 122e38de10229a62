package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/contentbot/core/logger"
)

type memoryManager struct {
	opts Options

	mu       sync.Mutex
	sessions map[int64]Session
}

// NewMemoryManager constructs an in-memory Manager. Nothing survives a restart.
func NewMemoryManager(opts Options) Manager {
	return &memoryManager{
		opts:     opts.normalize(),
		sessions: make(map[int64]Session),
	}
}

// SetState overwrites the session for a user.
func (m *memoryManager) SetState(ctx context.Context, userID int64, st State, data Data) error {
	if data == nil {
		data = Data{}
	}
	m.mu.Lock()
	m.sessions[userID] = Session{State: st, Data: data.clone(), UpdatedAt: m.opts.Now()}
	m.mu.Unlock()

	logger.Debug(ctx, "state", "state.set",
		slog.Int64("user_id", userID),
		slog.String("state", string(st)),
	)
	return nil
}

// lookup returns the live session and purges it if it expired.
func (m *memoryManager) lookup(ctx context.Context, userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	if sess.expired(m.opts.Now(), m.opts.TTL) {
		delete(m.sessions, userID)
		logger.Debug(ctx, "state", "state.expired",
			slog.Int64("user_id", userID),
			slog.String("state", string(sess.State)),
		)
		return Session{}, false
	}
	return sess, true
}

// GetState returns the current FSM state of a user, or StateIdle.
func (m *memoryManager) GetState(ctx context.Context, userID int64) (State, error) {
	if sess, ok := m.lookup(ctx, userID); ok {
		return sess.State, nil
	}
	return StateIdle, nil
}

// GetStateData returns a copy of the data bag.
func (m *memoryManager) GetStateData(ctx context.Context, userID int64) (Data, error) {
	if sess, ok := m.lookup(ctx, userID); ok {
		return sess.Data.clone(), nil
	}
	return Data{}, nil
}

// ClearState removes the session for a user.
func (m *memoryManager) ClearState(ctx context.Context, userID int64) error {
	m.mu.Lock()
	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		logger.Debug(ctx, "state", "state.cleared", slog.Int64("user_id", userID))
	}
	return nil
}

// InProgress reports whether the user currently has an active FSM state.
func (m *memoryManager) InProgress(ctx context.Context, userID int64) bool {
	_, ok := m.lookup(ctx, userID)
	return ok
}
