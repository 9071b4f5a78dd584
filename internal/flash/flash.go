package flash

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DisplayDuration is how long a success message stays up.
const DisplayDuration = 2 * time.Second

// DefaultTTL bounds how long an idle session's messages are kept.
const DefaultTTL = 12 * time.Hour

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is one banner shown to a session.
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Timer is the part of *time.Timer the board needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

type entry struct {
	msg   Message
	timer Timer
}

// Board holds at most one message per kind for each session. A new message
// replaces the previous one of the same kind. Success messages clear
// themselves after the display duration; errors stay until dismissed or
// until the session has been idle for the board's TTL.
type Board struct {
	mu        sync.Mutex
	slots     *cache.Cache
	ttl       time.Duration
	duration  time.Duration
	afterFunc AfterFunc
	now       func() time.Time
}

type slots map[Kind]*entry

type Option func(*Board)

func WithDisplayDuration(d time.Duration) Option {
	return func(b *Board) {
		b.duration = d
	}
}

// WithTTL sets how long a session's messages outlive its last post.
// Use the session TTL so banners go when the session does.
func WithTTL(d time.Duration) Option {
	return func(b *Board) {
		if d > 0 {
			b.ttl = d
		}
	}
}

// WithAfterFunc replaces time.AfterFunc, for tests.
func WithAfterFunc(f AfterFunc) Option {
	return func(b *Board) {
		b.afterFunc = f
	}
}

func NewBoard(opts ...Option) *Board {
	b := &Board{
		ttl:      DefaultTTL,
		duration: DisplayDuration,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.slots = cache.New(b.ttl, b.ttl)
	b.slots.OnEvicted(func(_ string, v interface{}) {
		stopAll(v.(slots))
	})
	return b
}

func stopAll(s slots) {
	for _, e := range s {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}

func (b *Board) Success(sessionID, text string) Message {
	return b.post(sessionID, KindSuccess, text)
}

func (b *Board) Error(sessionID, text string) Message {
	return b.post(sessionID, KindError, text)
}

func (b *Board) lookup(sessionID string) (slots, bool) {
	v, ok := b.slots.Get(sessionID)
	if !ok {
		return nil, false
	}
	return v.(slots), true
}

func (b *Board) post(sessionID string, kind Kind, text string) Message {
	msg := Message{
		ID:        uuid.New().String(),
		Kind:      kind,
		Text:      text,
		CreatedAt: b.now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.lookup(sessionID)
	if !ok {
		s = make(slots)
	}
	if prev, ok := s[kind]; ok && prev.timer != nil {
		prev.timer.Stop()
	}

	e := &entry{msg: msg}
	if kind == KindSuccess && b.duration > 0 {
		e.timer = b.afterFunc(b.duration, func() {
			b.Dismiss(sessionID, msg.ID)
		})
	}
	s[kind] = e
	// refreshes the session's expiry
	b.slots.SetDefault(sessionID, s)
	return msg
}

// Messages returns the session's current messages, success first.
func (b *Board) Messages(sessionID string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, _ := b.lookup(sessionID)
	out := make([]Message, 0, 2)
	for _, e := range s {
		out = append(out, e.msg)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Kind == KindSuccess && out[j].Kind != KindSuccess
	})
	return out
}

// Dismiss removes a message by id. It reports whether the message was still
// showing; a stale id never removes a newer message.
func (b *Board) Dismiss(sessionID, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.lookup(sessionID)
	if !ok {
		return false
	}
	for kind, e := range s {
		if e.msg.ID != id {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s, kind)
		if len(s) == 0 {
			b.slots.Delete(sessionID)
		}
		return true
	}
	return false
}

// Clear drops every message of a session.
func (b *Board) Clear(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Delete runs the eviction hook, which stops pending timers.
	b.slots.Delete(sessionID)
}

// Sessions reports how many sessions currently hold messages.
func (b *Board) Sessions() int {
	return b.slots.ItemCount()
}
