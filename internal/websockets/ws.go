package websockets

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/scythe504/mission-backend/internal"
	"github.com/scythe504/mission-backend/internal/broadcast"
	"github.com/scythe504/mission-backend/internal/game"
	"github.com/scythe504/mission-backend/internal/lobby"
	"github.com/scythe504/mission-backend/internal/users"
	"github.com/scythe504/mission-backend/internal/utils"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 8 << 10
	opTimeout      = 5 * time.Second
)

var errMalformed = internal.NewGameError(internal.CodeIllegalAction, "Malformed message")

// Handler owns the per-connection protocol: it turns frames into lobby and
// game calls and reports rejected actions back to the sender only.
type Handler struct {
	lobby *lobby.Registry
	games *game.Engine
	users users.Directory
	hub   *broadcast.Hub
	coord *broadcast.Coordinator
	namer users.DefaultNamer

	upgrader   websocket.Upgrader
	pingPeriod time.Duration
	pongWait   time.Duration
}

func NewHandler(lob *lobby.Registry, games *game.Engine, dir users.Directory, hub *broadcast.Hub, coord *broadcast.Coordinator) *Handler {
	return &Handler{
		lobby: lob,
		games: games,
		users: dir,
		hub:   hub,
		coord: coord,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
	}
}

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// HandleWebSocket upgrades the request and serves the connection until it
// closes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// 1. Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[HandleWebSocket] upgrade failed:", err)
		return
	}

	// 2. Every connection is a fresh identity with a default name
	player := internal.NewPlayer(utils.GenerateID(16), conn)
	unregister := h.hub.Register(player)
	log.Printf("[HandleWebSocket] player connected %s", player.Id)

	if err := h.setName(player, h.namer.Next()); err != nil {
		log.Printf("[HandleWebSocket] default name for %s: %v", player.Id, err)
	}

	// 3. Immediate lobby snapshot, outside the broadcast cycle
	h.coord.SendListing(player)

	// 4. Serve until the client goes away
	go h.handleMessages(player, unregister)
}

// handleMessages reads frames for player until the connection fails, then
// removes every trace of the player.
func (h *Handler) handleMessages(player *internal.Player, unregister func()) {
	done := make(chan struct{})
	defer func() {
		close(done)
		unregister()
		h.disconnect(player)
		player.Close()
	}()
	go h.keepAlive(player, done)

	player.Conn.SetReadLimit(maxMessageSize)
	_ = player.Conn.SetReadDeadline(time.Now().Add(h.pongWait))
	player.Conn.SetPongHandler(func(string) error {
		return player.Conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		msgType, raw, err := player.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[handleMessages] read error for %s: %v", player.Id, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var baseMsg internal.Message[json.RawMessage]
		if err := json.Unmarshal(raw, &baseMsg); err != nil {
			h.reject(player, errMalformed)
			continue
		}

		switch baseMsg.Type {
		case internal.KindUserData:
			err = h.handleUserData(player, baseMsg.Data)
		case internal.KindLobby:
			err = h.handleLobby(player, baseMsg.Data)
		case internal.KindGame:
			err = h.handleGame(player, baseMsg.Data)
		default:
			err = internal.ErrIllegalAction
		}
		if err != nil {
			h.reject(player, err)
		}
	}
}

func (h *Handler) keepAlive(player *internal.Player, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := player.Ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) disconnect(player *internal.Player) {
	h.lobby.LeaveGames(player.Id)
	h.lobby.ForgetUser(player.Id)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := h.users.Remove(ctx, player.Id); err != nil {
		log.Printf("[disconnect] removing %s: %v", player.Id, err)
	}
	log.Printf("[disconnect] player disconnected %s", player.Id)
}

func (h *Handler) reject(player *internal.Player, err error) {
	log.Printf("[handleMessages] %s rejected [%s]: %v", player.Id, internal.ErrorCode(err), err)
	if sendErr := player.Send(internal.NewServiceError(err)); sendErr != nil {
		log.Printf("[handleMessages] reporting error to %s: %v", player.Id, sendErr)
	}
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (h *Handler) setName(player *internal.Player, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := h.users.SetName(ctx, player.Id, name); err != nil {
		return err
	}
	return player.Send(internal.Message[internal.UserDataAck]{
		Type: internal.KindUserData,
		Data: internal.UserDataAck{Username: name},
	})
}

// handleUserData applies the name and the position independently, so a bad
// name never discards a good position.
func (h *Handler) handleUserData(player *internal.Player, data json.RawMessage) error {
	var payload internal.UserDataPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return errMalformed
	}

	var nameErr error
	if present(payload.Username) {
		var name string
		switch {
		case json.Unmarshal(payload.Username, &name) != nil:
			nameErr = internal.ErrIllegalName
		case name == "":
			// An empty name leaves the current one in place.
		default:
			if err := h.setName(player, name); err != nil {
				nameErr = err
			} else {
				log.Printf("[handleUserData] player %s changed name to %s", player.Id, name)
			}
		}
	}

	if present(payload.Coords) {
		if coords, ok := internal.ParseCoordinates(payload.Coords); ok {
			h.lobby.SetUserLocation(player.Id, coords)
			h.coord.SendListing(player)
		}
	}
	return nameErr
}

func (h *Handler) handleLobby(player *internal.Player, data json.RawMessage) error {
	var payload internal.LobbyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return errMalformed
	}

	switch strings.ToLower(payload.Action) {
	case internal.LobbyActionHost:
		var settings internal.RoomSettings
		if err := decodeRoom(payload.Room, &settings); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field == "password" {
				return internal.ErrIllegalPassword
			}
			return internal.ErrIllegalRoomType
		}
		_, err := h.lobby.HostGame(player.Id, settings)
		return err
	case internal.LobbyActionJoin:
		var req internal.JoinRequest
		if err := decodeRoom(payload.Room, &req); err != nil {
			return internal.ErrNoSuchGame
		}
		_, err := h.lobby.JoinGame(player.Id, req)
		return err
	case internal.LobbyActionStart:
		_, err := h.lobby.StartGame(player.Id)
		return err
	case internal.LobbyActionLeave:
		h.lobby.LeaveGames(player.Id)
		return nil
	default:
		return internal.NewGameError(internal.CodeIllegalAction, "Illegal lobby action")
	}
}

func (h *Handler) handleGame(player *internal.Player, data json.RawMessage) error {
	var payload internal.GamePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return internal.ErrIllegalMoveShape
	}
	if payload.Action != internal.GameActionMove {
		return nil
	}

	gameID, ok := h.games.CurrentGameFor(player.Id)
	if !ok {
		return internal.ErrNoSuchGame
	}
	return h.games.ApplyMove(gameID, player.Id, payload.Move)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func decodeRoom(raw json.RawMessage, v any) error {
	if !present(raw) {
		return errMalformed
	}
	return json.Unmarshal(raw, v)
}
