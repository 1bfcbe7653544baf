// Package game referees running sessions: it seats a roster, validates and
// applies moves round by round, and projects each player's private view.
package game

import (
	"cmp"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/scythe504/mission-backend/internal"
	"github.com/scythe504/mission-backend/internal/events"
	"github.com/scythe504/mission-backend/internal/utils"
)

type EventKind string

const (
	EventStart  EventKind = "start"
	EventUpdate EventKind = "update"
	EventEnd    EventKind = "end"
	EventEvict  EventKind = "evict"
)

// Listener receives the public summary of the session an event concerns.
type Listener = events.Listener[internal.GameSummary]

type Option func(*Engine)

// WithRandomizer fixes the source used for faction and succession draws.
func WithRandomizer(rng utils.Randomizer) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRetention sets how long an ended session is kept before eviction.
// Zero keeps ended sessions forever.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) { e.retention = d }
}

// Engine guards its sessions with mu. Mutating calls also hold emitMu,
// taken first, until their events are delivered, so listeners observe
// events in commit order. Listeners may query the engine but must not call
// StartGame, ApplyMove or EvictExpired.
type Engine struct {
	emitMu    sync.Mutex
	mu        sync.Mutex
	sessions  map[string]*Session
	seq       uint64
	rng       utils.Randomizer
	now       func() time.Time
	retention time.Duration
	events    *events.Dispatcher[EventKind, internal.GameSummary]
}

type pendingEvent struct {
	kind    EventKind
	summary internal.GameSummary
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		sessions: make(map[string]*Session),
		rng:      utils.NewRandomizer(),
		now:      time.Now,
		events: events.NewDispatcher[EventKind, internal.GameSummary]("game",
			EventStart, EventUpdate, EventEnd, EventEvict),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// LISTENERS
// =============================================================================

func (e *Engine) AddEventListener(kind EventKind, fn Listener) (events.ListenerID, error) {
	return e.events.AddEventListener(kind, fn)
}

func (e *Engine) RemoveEventListener(kind EventKind, id events.ListenerID) error {
	return e.events.RemoveEventListener(kind, id)
}

func (e *Engine) Events() *events.Dispatcher[EventKind, internal.GameSummary] {
	return e.events
}

func (e *Engine) emit(pending []pendingEvent) {
	for _, p := range pending {
		e.events.Emit(p.kind, p.summary)
	}
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// StartGame seats roster into a new session. The bad faction and the
// succession order are drawn independently from the engine's randomizer.
func (e *Engine) StartGame(roster []string) (internal.GameSummary, error) {
	n := len(roster)
	if !internal.ValidRosterSize(n) {
		return internal.GameSummary{}, fmt.Errorf("%w: got %d", internal.ErrIllegalRosterSize, n)
	}
	seen := make(map[string]struct{}, n)
	for _, id := range roster {
		if _, dup := seen[id]; dup {
			return internal.GameSummary{}, fmt.Errorf("%w: %s seated twice", internal.ErrIllegalRosterSize, id)
		}
		seen[id] = struct{}{}
	}

	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	badFaction := utils.RandIndexArray(e.rng, n, internal.BadFactionSizes[n])
	slices.Sort(badFaction)
	e.seq++
	s := &Session{
		id:         utils.GenerateID(12),
		seq:        e.seq,
		players:    slices.Clone(roster),
		badFaction: badFaction,
		succession: utils.Permutation(e.rng, n),
		history:    []internal.MissionResult{},
		state:      internal.StateNomination,
		startedAt:  e.now(),
	}
	e.sessions[s.id] = s
	summary := s.summary()
	e.mu.Unlock()

	log.Printf("[StartGame] %s: %d players, leader %s", s.id, n, roster[summary.Succession[0]])
	e.emit([]pendingEvent{{EventStart, summary}})
	return summary, nil
}

// GetPlayerGameInfo returns gameID as playerID is allowed to see it.
func (e *Engine) GetPlayerGameInfo(gameID, playerID string) (internal.PlayerGameInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[gameID]
	if !ok {
		return internal.PlayerGameInfo{}, internal.ErrNoSuchGame
	}
	idx := s.indexOf(playerID)
	if idx < 0 {
		return internal.PlayerGameInfo{}, internal.ErrPlayerNotInGame
	}
	return s.view(idx), nil
}

// Summary returns the public record of gameID.
func (e *Engine) Summary(gameID string) (internal.GameSummary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[gameID]
	if !ok {
		return internal.GameSummary{}, false
	}
	return s.summary(), true
}

// GamesFor lists the sessions playerID is seated in, oldest first.
func (e *Engine) GamesFor(playerID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var found []*Session
	for _, s := range e.sessions {
		if s.indexOf(playerID) >= 0 {
			found = append(found, s)
		}
	}
	slices.SortFunc(found, func(a, b *Session) int {
		return cmp.Compare(a.seq, b.seq)
	})
	ids := make([]string, 0, len(found))
	for _, s := range found {
		ids = append(ids, s.id)
	}
	return ids
}

// CurrentGameFor is the most recently started session playerID is seated in.
func (e *Engine) CurrentGameFor(playerID string) (string, bool) {
	ids := e.GamesFor(playerID)
	if len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}

func (e *Engine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}
