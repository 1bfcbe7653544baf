// Package lobby owns the open, unstarted rooms: hosting, joining, leaving,
// discovery and promotion of a room into a game.
package lobby

import (
	"log"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/scythe504/mission-backend/internal"
	"github.com/scythe504/mission-backend/internal/events"
	"github.com/scythe504/mission-backend/internal/utils"
)

type EventKind string

const (
	EventChange    EventKind = "change"
	EventHost      EventKind = "host"
	EventJoin      EventKind = "join"
	EventLeave     EventKind = "leave"
	EventCancel    EventKind = "cancel"
	EventGameStart EventKind = "gamestart"
)

// Listener receives a snapshot of the room an event concerns.
type Listener = events.Listener[internal.LobbyRoom]

// NameResolver turns a user id into a display name.
type NameResolver interface {
	DisplayName(id string) string
}

type Option func(*Registry)

// WithMaxDistance overrides the discovery radius for local rooms.
func WithMaxDistance(meters float64) Option {
	return func(r *Registry) { r.maxDistance = meters }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry serializes every read-modify-write on rooms and locations behind
// mu. Events are collected while the lock is held and delivered after it is
// released, before the mutating call returns.
//
// emitMu is taken before mu by every mutating call and held until its events
// are delivered, so listeners see events in commit order. Listeners may query
// the registry but must not call its mutating methods.
type Registry struct {
	emitMu      sync.Mutex
	mu          sync.Mutex
	rooms       []*internal.LobbyRoom
	locations   map[string]internal.Coordinates
	names       NameResolver
	maxDistance float64
	now         func() time.Time
	events      *events.Dispatcher[EventKind, internal.LobbyRoom]
}

type pendingEvent struct {
	kind EventKind
	room internal.LobbyRoom
}

func NewRegistry(names NameResolver, opts ...Option) *Registry {
	r := &Registry{
		locations:   make(map[string]internal.Coordinates),
		names:       names,
		maxDistance: internal.DefaultMaxDistanceM,
		now:         time.Now,
		events: events.NewDispatcher[EventKind, internal.LobbyRoom]("lobby",
			EventChange, EventHost, EventJoin, EventLeave, EventCancel, EventGameStart),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// =============================================================================
// LISTENERS
// =============================================================================

func (r *Registry) AddEventListener(kind EventKind, fn Listener) (events.ListenerID, error) {
	return r.events.AddEventListener(kind, fn)
}

func (r *Registry) RemoveEventListener(kind EventKind, id events.ListenerID) error {
	return r.events.RemoveEventListener(kind, id)
}

// Events exposes the dispatcher, e.g. to install a custom failure hook.
func (r *Registry) Events() *events.Dispatcher[EventKind, internal.LobbyRoom] {
	return r.events
}

func (r *Registry) emit(pending []pendingEvent) {
	for _, p := range pending {
		r.events.Emit(p.kind, p.room)
	}
}

// =============================================================================
// LOCATION
// =============================================================================

// SetUserLocation records where a user is for local room discovery.
// Invalid coordinates are ignored.
func (r *Registry) SetUserLocation(id string, coords internal.Coordinates) {
	if !coords.Valid() {
		log.Printf("[SetUserLocation] ignoring invalid coordinates for %s", id)
		return
	}
	r.mu.Lock()
	r.locations[id] = coords
	r.mu.Unlock()
}

// ForgetUser drops everything the registry remembers about id besides
// memberships, which LeaveGames handles.
func (r *Registry) ForgetUser(id string) {
	r.mu.Lock()
	delete(r.locations, id)
	r.mu.Unlock()
}

// =============================================================================
// ROOM LIFECYCLE
// =============================================================================

// HostGame opens a new room with hostID as its only member. Any room the
// host was in before is left (and cancelled if they hosted it).
func (r *Registry) HostGame(hostID string, settings internal.RoomSettings) (internal.LobbyRoom, error) {
	room := &internal.LobbyRoom{
		Id:      utils.GenerateID(8),
		Kind:    settings.Kind,
		Host:    hostID,
		Members: []string{hostID},
	}
	switch settings.Kind {
	case internal.RoomLocal, internal.RoomLink:
	case internal.RoomPassword:
		if settings.Password == nil || utf8.RuneCountInString(*settings.Password) > internal.MaxPasswordLength {
			return internal.LobbyRoom{}, internal.ErrIllegalPassword
		}
		room.Password = *settings.Password
	default:
		return internal.LobbyRoom{}, internal.ErrIllegalRoomType
	}

	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	pending := r.leaveLocked(hostID)
	room.CreatedAt = r.now()
	r.rooms = append(r.rooms, room)
	snapshot := room.Snapshot()
	pending = append(pending,
		pendingEvent{EventHost, snapshot},
		pendingEvent{EventChange, snapshot},
	)
	r.mu.Unlock()

	log.Printf("[HostGame] %s hosting %s (%s)", r.names.DisplayName(hostID), snapshot.Id, snapshot.Kind)
	r.emit(pending)
	return snapshot, nil
}

// JoinGame adds userID to the room named by req.
func (r *Registry) JoinGame(userID string, req internal.JoinRequest) (internal.LobbyRoom, error) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	room := r.findLocked(req.Id)
	if room == nil {
		r.mu.Unlock()
		return internal.LobbyRoom{}, internal.ErrNoSuchGame
	}
	if room.Kind == internal.RoomPassword && (req.Password == nil || *req.Password != room.Password) {
		r.mu.Unlock()
		return internal.LobbyRoom{}, internal.ErrIncorrectPassword
	}
	if room.HasMember(userID) {
		r.mu.Unlock()
		return internal.LobbyRoom{}, internal.ErrAlreadyInGame
	}
	if room.IsFull() {
		r.mu.Unlock()
		return internal.LobbyRoom{}, internal.ErrGameFull
	}

	pending := r.leaveLocked(userID)
	room.Members = append(room.Members, userID)
	snapshot := room.Snapshot()
	pending = append(pending,
		pendingEvent{EventJoin, snapshot},
		pendingEvent{EventChange, snapshot},
	)
	r.mu.Unlock()

	log.Printf("[JoinGame] %s joined %s (%d/%d)",
		r.names.DisplayName(userID), snapshot.Id, len(snapshot.Members), internal.MaxRoomMembers)
	r.emit(pending)
	return snapshot, nil
}

// LeaveGames removes userID from every room. A room the user hosts is
// cancelled outright. Calling it for a user with no membership is a no-op.
func (r *Registry) LeaveGames(userID string) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	pending := r.leaveLocked(userID)
	r.mu.Unlock()

	if len(pending) > 0 {
		log.Printf("[LeaveGames] %s left %d room(s)", r.names.DisplayName(userID), len(pending)/2)
	}
	r.emit(pending)
}

// leaveLocked must be called with mu held.
func (r *Registry) leaveLocked(userID string) []pendingEvent {
	var pending []pendingEvent

	if idx := slices.IndexFunc(r.rooms, func(room *internal.LobbyRoom) bool { return room.Host == userID }); idx >= 0 {
		cancelled := r.rooms[idx].Snapshot()
		r.rooms = slices.Delete(r.rooms, idx, idx+1)
		pending = append(pending,
			pendingEvent{EventCancel, cancelled},
			pendingEvent{EventChange, cancelled},
		)
	}

	for _, room := range r.rooms {
		if room.RemoveMember(userID) {
			snapshot := room.Snapshot()
			pending = append(pending,
				pendingEvent{EventLeave, snapshot},
				pendingEvent{EventChange, snapshot},
			)
		}
	}
	return pending
}

// StartGame closes the room hostID hosts and hands it off through a
// gamestart event. Rooms outside the supported roster sizes stay open.
func (r *Registry) StartGame(hostID string) (internal.LobbyRoom, error) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	idx := slices.IndexFunc(r.rooms, func(room *internal.LobbyRoom) bool { return room.Host == hostID })
	if idx < 0 {
		r.mu.Unlock()
		return internal.LobbyRoom{}, internal.ErrNotHosting
	}
	if !r.rooms[idx].CanStartGame() {
		r.mu.Unlock()
		return internal.LobbyRoom{}, internal.ErrNotEnoughPlayers
	}
	started := r.rooms[idx].Snapshot()
	r.rooms = slices.Delete(r.rooms, idx, idx+1)
	r.mu.Unlock()

	log.Printf("[StartGame] %s started game %s with %d players",
		r.names.DisplayName(hostID), started.Id, len(started.Members))
	r.emit([]pendingEvent{
		{EventGameStart, started},
		{EventChange, started},
	})
	return started, nil
}

// =============================================================================
// DISCOVERY
// =============================================================================

// GetNearbyGames lists local rooms whose host was last seen within the
// discovery radius of id's last known position.
func (r *Registry) GetNearbyGames(id string) []internal.RoomListing {
	r.mu.Lock()
	origin, ok := r.locations[id]
	if !ok {
		r.mu.Unlock()
		return []internal.RoomListing{}
	}
	var nearby []internal.LobbyRoom
	for _, room := range r.rooms {
		if room.Kind != internal.RoomLocal {
			continue
		}
		hostPos, ok := r.locations[room.Host]
		if !ok {
			continue
		}
		if internal.DistanceMeters(origin, hostPos) < r.maxDistance {
			nearby = append(nearby, room.Snapshot())
		}
	}
	r.mu.Unlock()

	return r.listings(nearby)
}

// GetPasswordProtectedGames lists every password room without its password.
func (r *Registry) GetPasswordProtectedGames() []internal.RoomListing {
	r.mu.Lock()
	var rooms []internal.LobbyRoom
	for _, room := range r.rooms {
		if room.Kind == internal.RoomPassword {
			rooms = append(rooms, room.Snapshot())
		}
	}
	r.mu.Unlock()

	return r.listings(rooms)
}

// Listing is the full lobby snapshot as seen by id.
func (r *Registry) Listing(id string) internal.LobbyListing {
	return internal.LobbyListing{
		Local:    r.GetNearbyGames(id),
		Password: r.GetPasswordProtectedGames(),
	}
}

// RoomFor returns the room userID is a member of, if any.
func (r *Registry) RoomFor(userID string) (internal.LobbyRoom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if room.HasMember(userID) {
			return room.Snapshot(), true
		}
	}
	return internal.LobbyRoom{}, false
}

// Room returns the open room with the given id.
func (r *Registry) Room(id string) (internal.LobbyRoom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room := r.findLocked(id); room != nil {
		return room.Snapshot(), true
	}
	return internal.LobbyRoom{}, false
}

func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) findLocked(id string) *internal.LobbyRoom {
	for _, room := range r.rooms {
		if room.Id == id {
			return room
		}
	}
	return nil
}

// Names are resolved outside the lock; the directory may be remote.
func (r *Registry) listings(rooms []internal.LobbyRoom) []internal.RoomListing {
	out := make([]internal.RoomListing, 0, len(rooms))
	for i := range rooms {
		out = append(out, rooms[i].Listing(r.names.DisplayName))
	}
	return out
}
