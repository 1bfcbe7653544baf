package broadcast_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/mission-backend/internal"
	"github.com/scythe504/mission-backend/internal/broadcast"
	"github.com/scythe504/mission-backend/internal/game"
	"github.com/scythe504/mission-backend/internal/lobby"
)

type fakeClient struct {
	id   string
	fail bool

	mu   sync.Mutex
	msgs []any
}

func (f *fakeClient) ID() string { return f.id }

func (f *fakeClient) Send(v any) error {
	if f.fail {
		return errors.New("connection reset")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, v)
	return nil
}

func messagesOf[T any](f *fakeClient) []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []T
	for _, m := range f.msgs {
		if typed, ok := m.(internal.Message[T]); ok {
			out = append(out, typed.Data)
		}
	}
	return out
}

type upperNames struct{}

func (upperNames) DisplayName(id string) string { return "N:" + id }

type fixture struct {
	hub     *broadcast.Hub
	lobby   *lobby.Registry
	engine  *game.Engine
	coord   *broadcast.Coordinator
	clients map[string]*fakeClient
}

func newFixture(t *testing.T, interval time.Duration, online ...string) *fixture {
	t.Helper()
	f := &fixture{
		hub:     broadcast.NewHub(),
		lobby:   lobby.NewRegistry(upperNames{}),
		engine:  game.NewEngine(),
		clients: make(map[string]*fakeClient),
	}
	coord, err := broadcast.NewCoordinator(f.hub, f.lobby, f.engine, upperNames{}, interval)
	require.NoError(t, err)
	f.coord = coord
	for _, id := range online {
		c := &fakeClient{id: id}
		f.clients[id] = c
		f.hub.Register(c)
	}
	return f
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestNoListingBeforeChange(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond, "a", "b")
	f.run(t)

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, messagesOf[internal.ListingData](f.clients["a"]))
	assert.Empty(t, messagesOf[internal.ListingData](f.clients["b"]))
}

func TestListingAfterChange(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond, "a", "b")
	f.run(t)

	_, err := f.lobby.HostGame("a", internal.RoomSettings{Kind: internal.RoomPassword, Password: ptr("pw")})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(messagesOf[internal.ListingData](f.clients["b"])) == 1
	}, time.Second, 5*time.Millisecond)

	listing := messagesOf[internal.ListingData](f.clients["b"])[0]
	assert.Equal(t, internal.LobbyTypeListing, listing.Type)
	require.Len(t, listing.Rooms.Password, 1)
	assert.Equal(t, "N:a", listing.Rooms.Password[0].Host)
	assert.NotNil(t, listing.Rooms.Local)

	// Nothing changed since, so nothing more goes out.
	time.Sleep(80 * time.Millisecond)
	assert.Len(t, messagesOf[internal.ListingData](f.clients["b"]), 1)
}

func TestListingCoalescesBursts(t *testing.T) {
	interval := 100 * time.Millisecond
	f := newFixture(t, interval, "watcher")
	f.run(t)

	start := time.Now()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, _ = f.lobby.HostGame(fmt.Sprintf("h%d", i%5), internal.RoomSettings{Kind: internal.RoomLink})
			time.Sleep(time.Millisecond)
		}
	}()
	time.Sleep(450 * time.Millisecond)
	close(stop)
	wg.Wait()
	elapsed := time.Since(start)

	got := len(messagesOf[internal.ListingData](f.clients["watcher"]))
	assert.GreaterOrEqual(t, got, 2)
	assert.LessOrEqual(t, got, int(elapsed/interval)+1, "at most one listing per interval")
}

func TestSendListing(t *testing.T) {
	f := newFixture(t, time.Hour)
	c := &fakeClient{id: "new"}
	f.coord.SendListing(c)

	listings := messagesOf[internal.ListingData](c)
	require.Len(t, listings, 1)
	assert.Empty(t, listings[0].Rooms.Local)
	assert.Empty(t, listings[0].Rooms.Password)
}

func TestRoomUpdates(t *testing.T) {
	f := newFixture(t, time.Hour, "host", "guest")

	room, err := f.lobby.HostGame("host", internal.RoomSettings{Kind: internal.RoomLink})
	require.NoError(t, err)
	_, err = f.lobby.JoinGame("guest", internal.JoinRequest{Id: room.Id})
	require.NoError(t, err)
	// Offline members are skipped without error.
	_, err = f.lobby.JoinGame("offline", internal.JoinRequest{Id: room.Id})
	require.NoError(t, err)

	hostUpdates := messagesOf[internal.RoomUpdateData](f.clients["host"])
	require.Len(t, hostUpdates, 3)
	assert.True(t, hostUpdates[2].IsUserHost)
	assert.Equal(t, []string{"N:host", "N:guest", "N:offline"}, hostUpdates[2].Room.Players)

	guestUpdates := messagesOf[internal.RoomUpdateData](f.clients["guest"])
	require.Len(t, guestUpdates, 2)
	assert.False(t, guestUpdates[0].IsUserHost)
	assert.Equal(t, internal.LobbyTypeRoomUpdate, guestUpdates[0].Type)

	f.lobby.LeaveGames("host")
	cancelled := messagesOf[internal.RoomCancelledData](f.clients["guest"])
	require.Len(t, cancelled, 1)
	assert.Equal(t, room.Id, cancelled[0].Room.Id)
	assert.Len(t, messagesOf[internal.RoomCancelledData](f.clients["host"]), 1)
}

func TestGameViewsPushedImmediately(t *testing.T) {
	f := newFixture(t, time.Hour, "p0", "p1", "p2", "p3")
	f.clients["p3"].fail = true

	room, err := f.lobby.HostGame("p0", internal.RoomSettings{Kind: internal.RoomLink})
	require.NoError(t, err)
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		_, err := f.lobby.JoinGame(id, internal.JoinRequest{Id: room.Id})
		require.NoError(t, err)
	}
	_, err = f.lobby.StartGame("p0")
	require.NoError(t, err)

	for _, id := range []string{"p0", "p1", "p2"} {
		views := messagesOf[internal.PlayerGameInfo](f.clients[id])
		require.Len(t, views, 1, "player %s", id)
		assert.Equal(t, internal.StateNomination, views[0].State)
		assert.Equal(t, []string{"N:p0", "N:p1", "N:p2", "N:p3", "N:p4"}, views[0].Players)
	}
	assert.Empty(t, messagesOf[internal.PlayerGameInfo](f.clients["p3"]))

	view := messagesOf[internal.PlayerGameInfo](f.clients["p0"])[0]
	roster := []string{"p0", "p1", "p2", "p3", "p4"}
	leader := roster[view.Succession[0]]
	require.NoError(t, f.engine.ApplyMove(view.Id, leader, internal.Move{Nominations: []int{0, 1}}))

	for _, id := range []string{"p0", "p1", "p2"} {
		views := messagesOf[internal.PlayerGameInfo](f.clients[id])
		require.Len(t, views, 2)
		assert.Equal(t, internal.StateVote, views[1].State)
		assert.Equal(t, view.Id, views[1].Id)
	}
}

func TestHubRegister(t *testing.T) {
	hub := broadcast.NewHub()
	first := &fakeClient{id: "x"}
	second := &fakeClient{id: "x"}

	unregisterFirst := hub.Register(first)
	unregisterSecond := hub.Register(second)
	unregisterFirst()

	got, ok := hub.Get("x")
	require.True(t, ok, "stale cleanup must not drop the replacement")
	assert.Same(t, second, got)

	unregisterSecond()
	_, ok = hub.Get("x")
	assert.False(t, ok)
	assert.Zero(t, hub.Len())

	hub.SendTo("x", "dropped")
}

func ptr(s string) *string { return &s }
