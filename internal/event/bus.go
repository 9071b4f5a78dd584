package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-portal/pkg/messaging"
)

// Event is a broadcast about an updated entity, e.g.
// {type: APPOINTMENT_CONFIRMED, data: appointment}.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Bus fans events out to in-process subscribers and, when a broker is set,
// mirrors them to a pub/sub channel. Delivery is advisory: a subscriber whose
// buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	broker  messaging.Broker
	channel string
	logger  zerolog.Logger
}

type Option func(*Bus)

// WithMirror publishes every event to channel on broker as well.
func WithMirror(broker messaging.Broker, channel string) Option {
	return func(b *Bus) {
		b.broker = broker
		b.channel = channel
	}
}

func NewBus(logger zerolog.Logger, opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[int]chan Event),
		logger: logger.With().Str("component", "event_bus").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a listener. The returned function unsubscribes and
// closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish never blocks on subscribers. Mirror failures are logged only.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn().Int("subscriber", id).Str("type", evt.Type).Msg("Dropping event for slow subscriber")
		}
	}
	b.mu.RUnlock()

	if b.broker == nil {
		return
	}
	if err := b.broker.Publish(ctx, b.channel, evt); err != nil {
		b.logger.Error().Err(err).Str("type", evt.Type).Str("channel", b.channel).Msg("Failed to mirror event")
	}
}
