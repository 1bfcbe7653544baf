package internal

import "encoding/json"

// Message is the envelope for every frame in both directions.
type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Inbound and outbound message kinds.
const (
	KindUserData     = "userdata"
	KindLobby        = "lobby"
	KindGame         = "game"
	KindServiceError = "service-error"
)

// Lobby actions and payload types.
const (
	LobbyActionHost  = "host"
	LobbyActionJoin  = "join"
	LobbyActionStart = "start"
	LobbyActionLeave = "leave"

	LobbyTypeListing       = "listing"
	LobbyTypeRoomUpdate    = "room-update"
	LobbyTypeRoomCancelled = "room-cancelled"

	GameActionMove = "move"
)

// UserDataPayload keeps both fields raw so a bad value in one never
// discards the other.
type UserDataPayload struct {
	Username json.RawMessage `json:"username,omitempty"`
	Coords   json.RawMessage `json:"coords,omitempty"`
}

type LobbyPayload struct {
	Action string          `json:"action"`
	Room   json.RawMessage `json:"room,omitempty"`
}

type GamePayload struct {
	Action string `json:"action"`
	Move
}

type ListingData struct {
	Type  string       `json:"type"`
	Rooms LobbyListing `json:"rooms"`
}

type RoomUpdateData struct {
	Type       string      `json:"type"`
	Room       RoomListing `json:"room"`
	IsUserHost bool        `json:"isUserHost"`
}

type RoomCancelledData struct {
	Type string      `json:"type"`
	Room RoomListing `json:"room"`
}

type UserDataAck struct {
	Username string `json:"username"`
}

type ServiceErrorData struct {
	Message string `json:"message"`
}

func NewListingMessage(listing LobbyListing) Message[ListingData] {
	return Message[ListingData]{
		Type: KindLobby,
		Data: ListingData{Type: LobbyTypeListing, Rooms: listing},
	}
}

func NewServiceError(err error) Message[ServiceErrorData] {
	return Message[ServiceErrorData]{
		Type: KindServiceError,
		Data: ServiceErrorData{Message: err.Error()},
	}
}
