// Package relay republishes public game events on NATS so spectators and
// other services can follow sessions without a websocket.
package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/scythe504/mission-backend/internal"
	"github.com/scythe504/mission-backend/internal/events"
	"github.com/scythe504/mission-backend/internal/game"
)

const DefaultPrefix = "mission.games"

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Games interface {
	AddEventListener(kind game.EventKind, fn game.Listener) (events.ListenerID, error)
}

type NameResolver interface {
	DisplayName(id string) string
}

// Event is the body of every relayed message. Player ids are replaced by
// display names; the bad faction is only present once the game has ended.
type Event struct {
	Kind game.EventKind       `json:"kind"`
	Game internal.GameSummary `json:"game"`
	At   time.Time            `json:"at"`
}

type Relay struct {
	pub    Publisher
	prefix string
	names  NameResolver
	now    func() time.Time
}

func New(pub Publisher, prefix string, names NameResolver) *Relay {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Relay{pub: pub, prefix: prefix, names: names, now: time.Now}
}

// Connect dials NATS with unlimited reconnects.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("mission-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[relay] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("[relay] reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

// Attach subscribes the relay to start, update and end events.
func (r *Relay) Attach(games Games) error {
	for _, kind := range []game.EventKind{game.EventStart, game.EventUpdate, game.EventEnd} {
		if _, err := games.AddEventListener(kind, r.listener(kind)); err != nil {
			return fmt.Errorf("subscribe %s: %w", kind, err)
		}
	}
	return nil
}

// Subject is where events of kind for gameID are published.
func (r *Relay) Subject(gameID string, kind game.EventKind) string {
	return fmt.Sprintf("%s.%s.%s", r.prefix, gameID, kind)
}

func (r *Relay) listener(kind game.EventKind) game.Listener {
	return func(sum internal.GameSummary) error {
		return r.Publish(kind, sum)
	}
}

func (r *Relay) Publish(kind game.EventKind, sum internal.GameSummary) error {
	public := sum
	public.Players = make([]string, len(sum.Players))
	for i, id := range sum.Players {
		public.Players[i] = r.names.DisplayName(id)
	}
	if sum.State != internal.StateEnd {
		public.BadFaction = nil
	} else {
		public.BadFaction = slices.Clone(sum.BadFaction)
	}

	data, err := json.Marshal(Event{Kind: kind, Game: public, At: r.now()})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", kind, err)
	}
	subject := r.Subject(sum.Id, kind)
	if err := r.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
