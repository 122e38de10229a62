package state

import (
	"context"
	"strconv"
	"time"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// DefaultTTL is how long a conversation step stays valid without updates.
const DefaultTTL = time.Hour

// Data is the small key/value bag carried alongside a state.
type Data map[string]string

// Int64 parses the value stored under key.
func (d Data) Int64(key string) (int64, bool) {
	raw, ok := d[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SetInt64 stores v under key.
func (d Data) SetInt64(key string, v int64) Data {
	d[key] = strconv.FormatInt(v, 10)
	return d
}

// Bool reports whether key holds "true".
func (d Data) Bool(key string) bool {
	return d[key] == "true"
}

func (d Data) clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Session stores conversation state and temporary data for a user.
type Session struct {
	State     State     `json:"state"`
	Data      Data      `json:"data,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Session) expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) >= ttl
}

// Manager orchestrates per-user conversation state with expiry.
type Manager interface {
	// SetState overwrites any existing state and stamps the current time.
	SetState(ctx context.Context, userID int64, st State, data Data) error
	// GetState returns StateIdle when nothing is stored or the entry expired.
	GetState(ctx context.Context, userID int64) (State, error)
	// GetStateData returns an empty bag when nothing is stored.
	GetStateData(ctx context.Context, userID int64) (Data, error)
	// ClearState removes the entry; absent entries are a no-op.
	ClearState(ctx context.Context, userID int64) error

	InProgress(ctx context.Context, userID int64) bool
}

// Options configure a Manager backend.
type Options struct {
	TTL time.Duration
	// Now overrides the clock, used by tests.
	Now func() time.Time
}

func (o Options) normalize() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
