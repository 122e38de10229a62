package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/contentbot/core/logger"
)

const redisKeyPrefix = "fsm:"

type redisManager struct {
	client redis.Cmdable
	opts   Options
}

// NewRedisManager stores sessions as JSON under fsm:<userID> with a key TTL.
func NewRedisManager(client redis.Cmdable, opts Options) Manager {
	return &redisManager{client: client, opts: opts.normalize()}
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

// SetState overwrites the session and resets the key TTL.
func (m *redisManager) SetState(ctx context.Context, userID int64, st State, data Data) error {
	if data == nil {
		data = Data{}
	}
	payload, err := json.Marshal(Session{State: st, Data: data, UpdatedAt: m.opts.Now().UTC()})
	if err != nil {
		return fmt.Errorf("state: marshal session: %w", err)
	}
	if err := m.client.Set(ctx, redisKey(userID), payload, m.opts.TTL).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	logger.Debug(ctx, "state", "state.set",
		slog.Int64("user_id", userID),
		slog.String("state", string(st)),
		slog.String("backend", "redis"),
	)
	return nil
}

func (m *redisManager) lookup(ctx context.Context, userID int64) (Session, bool, error) {
	raw, err := m.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("state: redis get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// A corrupt entry is treated as absent and dropped.
		_ = m.client.Del(ctx, redisKey(userID)).Err()
		logger.Warn(ctx, "state", "state.corrupt",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Session{}, false, nil
	}
	if sess.expired(m.opts.Now(), m.opts.TTL) {
		_ = m.client.Del(ctx, redisKey(userID)).Err()
		return Session{}, false, nil
	}
	if sess.Data == nil {
		sess.Data = Data{}
	}
	return sess, true, nil
}

// GetState returns the stored state or StateIdle.
func (m *redisManager) GetState(ctx context.Context, userID int64) (State, error) {
	sess, ok, err := m.lookup(ctx, userID)
	if err != nil || !ok {
		return StateIdle, err
	}
	return sess.State, nil
}

// GetStateData returns the stored data bag or an empty one.
func (m *redisManager) GetStateData(ctx context.Context, userID int64) (Data, error) {
	sess, ok, err := m.lookup(ctx, userID)
	if err != nil || !ok {
		return Data{}, err
	}
	return sess.Data, nil
}

// ClearState deletes the key.
func (m *redisManager) ClearState(ctx context.Context, userID int64) error {
	if err := m.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("state: redis del: %w", err)
	}
	return nil
}

// InProgress reports whether a live session exists; lookup errors count as idle.
func (m *redisManager) InProgress(ctx context.Context, userID int64) bool {
	_, ok, err := m.lookup(ctx, userID)
	return err == nil && ok
}
