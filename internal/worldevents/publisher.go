package worldevents

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event is one world-visible occurrence extracted from a dialogue turn,
// e.g. a witnessed crime other characters should react to.
type Event struct {
	TurnID      string         `json:"turnId"`
	CharacterID string         `json:"characterId"`
	PlayerID    string         `json:"playerId"`
	EventType   string         `json:"eventType"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
}

// Publisher fans dialogue-born events out to interested observers.
// Publishing is best effort and must never block a dialogue turn.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Nop discards events. Used when no observer is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// LogPublisher records events in the service log. It is the default sink
// until a game-engine bridge subscribes.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "worldevents").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) {
	p.log.Info().
		Str("turn_id", ev.TurnID).
		Str("character_id", ev.CharacterID).
		Str("player_id", ev.PlayerID).
		Str("event_type", ev.EventType).
		Interface("payload", ev.Payload).
		Time("occurred_at", ev.OccurredAt).
		Msg("world event")
}

// Bus is a lightweight in-process pub-sub backed by a buffered channel.
// A full buffer drops the event rather than stalling the publishing turn.
type Bus struct {
	ch  chan Event
	log zerolog.Logger
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int, log zerolog.Logger) *Bus {
	return &Bus{
		ch:  make(chan Event, buffer),
		log: log.With().Str("component", "worldevents").Logger(),
	}
}

// Publish attempts to enqueue the event without blocking.
func (b *Bus) Publish(_ context.Context, ev Event) {
	select {
	case b.ch <- ev:
	default:
		b.log.Warn().
			Str("event_type", ev.EventType).
			Str("turn_id", ev.TurnID).
			Msg("world event dropped: bus full")
	}
}

// Subscribe returns the read-only event channel.
func (b *Bus) Subscribe() <-chan Event {
	return b.ch
}

// Consume drains bus into sink until ctx is done. Run it in its own
// goroutine next to the server loops.
func Consume(ctx context.Context, bus *Bus, sink Publisher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-bus.Subscribe():
			sink.Publish(ctx, ev)
		}
	}
}
