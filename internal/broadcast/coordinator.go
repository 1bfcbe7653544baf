// Package broadcast fans lobby and game state out to connected clients.
// Lobby listings are coalesced and sent at most once per interval; game
// views are pushed as soon as the engine reports a change.
package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/scythe504/mission-backend/internal"
	"github.com/scythe504/mission-backend/internal/events"
	"github.com/scythe504/mission-backend/internal/game"
	"github.com/scythe504/mission-backend/internal/lobby"
)

const DefaultInterval = 3 * time.Second

// Lobby is the part of lobby.Registry the coordinator needs.
type Lobby interface {
	AddEventListener(kind lobby.EventKind, fn lobby.Listener) (events.ListenerID, error)
	Listing(id string) internal.LobbyListing
}

// Games is the part of game.Engine the coordinator needs.
type Games interface {
	AddEventListener(kind game.EventKind, fn game.Listener) (events.ListenerID, error)
	StartGame(roster []string) (internal.GameSummary, error)
	GetPlayerGameInfo(gameID, playerID string) (internal.PlayerGameInfo, error)
}

type NameResolver interface {
	DisplayName(id string) string
}

type Coordinator struct {
	hub      *Hub
	lobby    Lobby
	games    Games
	names    NameResolver
	interval time.Duration

	// changed holds at most one pending signal: the dirty flag.
	changed chan struct{}
}

// NewCoordinator subscribes to both registries. Run must be started for
// lobby listings to go out; room and game pushes work without it.
func NewCoordinator(hub *Hub, lob Lobby, games Games, names NameResolver, interval time.Duration) (*Coordinator, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Coordinator{
		hub:      hub,
		lobby:    lob,
		games:    games,
		names:    names,
		interval: interval,
		changed:  make(chan struct{}, 1),
	}

	lobbyListeners := []struct {
		kind lobby.EventKind
		fn   lobby.Listener
	}{
		{lobby.EventChange, func(internal.LobbyRoom) error { c.MarkDirty(); return nil }},
		{lobby.EventHost, c.sendRoomUpdate},
		{lobby.EventJoin, c.sendRoomUpdate},
		{lobby.EventLeave, c.sendRoomUpdate},
		{lobby.EventCancel, c.sendRoomCancelled},
		{lobby.EventGameStart, c.startGame},
	}
	for _, l := range lobbyListeners {
		if _, err := lob.AddEventListener(l.kind, l.fn); err != nil {
			return nil, fmt.Errorf("subscribe lobby %s: %w", l.kind, err)
		}
	}
	for _, kind := range []game.EventKind{game.EventStart, game.EventUpdate} {
		if _, err := games.AddEventListener(kind, c.sendGameViews); err != nil {
			return nil, fmt.Errorf("subscribe game %s: %w", kind, err)
		}
	}
	return c, nil
}

// MarkDirty records that the lobby changed since the last listing.
func (c *Coordinator) MarkDirty() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Run broadcasts the lobby listing whenever the interval has elapsed and
// the lobby has changed since the previous broadcast, until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	elapsed, dirty := false, false
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			elapsed = true
		case <-c.changed:
			dirty = true
		}
		if elapsed && dirty {
			c.BroadcastListing()
			elapsed, dirty = false, false
			timer.Reset(c.interval)
		}
	}
}

// BroadcastListing sends every connected client its own listing.
func (c *Coordinator) BroadcastListing() {
	clients := c.hub.Snapshot()
	for _, client := range clients {
		c.SendListing(client)
	}
	log.Printf("[BroadcastListing] sent lobby to %d client(s)", len(clients))
}

// SendListing sends one client its listing outside the broadcast cycle, as
// on connect or after the client reports a new position.
func (c *Coordinator) SendListing(client Client) {
	msg := internal.NewListingMessage(c.lobby.Listing(client.ID()))
	if err := client.Send(msg); err != nil {
		log.Printf("[SendListing] client %s: %v", client.ID(), err)
	}
}

// =============================================================================
// LOBBY EVENTS
// =============================================================================

func (c *Coordinator) sendRoomUpdate(room internal.LobbyRoom) error {
	listing := room.Listing(c.names.DisplayName)
	for _, member := range room.Members {
		c.hub.SendTo(member, internal.Message[internal.RoomUpdateData]{
			Type: internal.KindLobby,
			Data: internal.RoomUpdateData{
				Type:       internal.LobbyTypeRoomUpdate,
				Room:       listing,
				IsUserHost: member == room.Host,
			},
		})
	}
	return nil
}

func (c *Coordinator) sendRoomCancelled(room internal.LobbyRoom) error {
	msg := internal.Message[internal.RoomCancelledData]{
		Type: internal.KindLobby,
		Data: internal.RoomCancelledData{
			Type: internal.LobbyTypeRoomCancelled,
			Room: room.Listing(c.names.DisplayName),
		},
	}
	for _, member := range room.Members {
		c.hub.SendTo(member, msg)
	}
	return nil
}

func (c *Coordinator) startGame(room internal.LobbyRoom) error {
	if _, err := c.games.StartGame(room.Members); err != nil {
		return fmt.Errorf("start game for room %s: %w", room.Id, err)
	}
	return nil
}

// =============================================================================
// GAME EVENTS
// =============================================================================

// sendGameViews pushes each online roster member their own view with ids
// replaced by display names.
func (c *Coordinator) sendGameViews(sum internal.GameSummary) error {
	names := make([]string, len(sum.Players))
	for i, id := range sum.Players {
		names[i] = c.names.DisplayName(id)
	}

	for _, playerID := range sum.Players {
		client, ok := c.hub.Get(playerID)
		if !ok {
			continue
		}
		view, err := c.games.GetPlayerGameInfo(sum.Id, playerID)
		if err != nil {
			log.Printf("[sendGameViews] %s for %s: %v", sum.Id, playerID, err)
			continue
		}
		view.Players = names
		if err := client.Send(internal.Message[internal.PlayerGameInfo]{Type: internal.KindGame, Data: view}); err != nil {
			log.Printf("[sendGameViews] client %s: %v", playerID, err)
		}
	}
	return nil
}
