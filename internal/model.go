package internal

import (
	"encoding/json"
	"time"
)

const (
	MaxRoomMembers      = 10
	MinPlayersToStart   = 5
	MaxPasswordLength   = 64
	MaxUsernameLength   = 40
	MaxRounds           = 5
	MissionsToWin       = 3
	DefaultMaxDistanceM = 20.0
)

type RoomKind string

const (
	RoomLocal    RoomKind = "local"
	RoomLink     RoomKind = "link"
	RoomPassword RoomKind = "password"
)

func (k RoomKind) Valid() bool {
	switch k {
	case RoomLocal, RoomLink, RoomPassword:
		return true
	}
	return false
}

type GameState string

const (
	StateNomination GameState = "nomination"
	StateVote       GameState = "vote"
	StateMission    GameState = "mission"
	StateEnd        GameState = "end"
)

type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeGood Outcome = "good"
	OutcomeBad  Outcome = "bad"
)

// MissionSizes maps roster size to the required team size of each round.
var MissionSizes = map[int][MaxRounds]int{
	5:  {2, 3, 2, 3, 3},
	6:  {2, 3, 4, 3, 4},
	7:  {2, 3, 3, 4, 4},
	8:  {3, 4, 4, 5, 5},
	9:  {3, 4, 4, 5, 5},
	10: {3, 4, 4, 5, 5},
}

// BadFactionSizes maps roster size to the number of hidden bad-faction players.
var BadFactionSizes = map[int]int{
	5:  2,
	6:  2,
	7:  3,
	8:  3,
	9:  3,
	10: 4,
}

// FailThreshold returns how many fail cards sink the mission of the given round.
func FailThreshold(rosterSize, round int) int {
	if rosterSize >= 7 && round == 3 {
		return 2
	}
	return 1
}

// ValidRosterSize reports whether the rule tables cover n players.
func ValidRosterSize(n int) bool {
	_, ok := MissionSizes[n]
	return ok
}

// LobbyRoom is an open, unstarted room. Members[0] is always the host.
type LobbyRoom struct {
	Id        string    `json:"id"`
	Kind      RoomKind  `json:"kind"`
	Host      string    `json:"host"`
	Members   []string  `json:"players"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// RoomSettings is what a host submits when opening a room.
type RoomSettings struct {
	Kind     RoomKind `json:"kind"`
	Password *string  `json:"password,omitempty"`
}

// JoinRequest identifies the room a user wants to enter.
type JoinRequest struct {
	Id       string   `json:"id"`
	Kind     RoomKind `json:"kind"`
	Password *string  `json:"password,omitempty"`
}

// UnmarshalJSON accepts "type" in place of "kind", as older clients send it.
func (s *RoomSettings) UnmarshalJSON(data []byte) error {
	type plain RoomSettings
	var aux struct {
		plain
		Type RoomKind `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = RoomSettings(aux.plain)
	if s.Kind == "" {
		s.Kind = aux.Type
	}
	return nil
}

func (r *JoinRequest) UnmarshalJSON(data []byte) error {
	type plain JoinRequest
	var aux struct {
		plain
		Type RoomKind `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = JoinRequest(aux.plain)
	if r.Kind == "" {
		r.Kind = aux.Type
	}
	return nil
}

// RoomListing is the name-resolved, password-free view of a room.
type RoomListing struct {
	Id      string   `json:"id"`
	Kind    RoomKind `json:"kind"`
	Host    string   `json:"host"`
	Players []string `json:"players"`
}

type LobbyListing struct {
	Local    []RoomListing `json:"local"`
	Password []RoomListing `json:"password"`
}

type MissionResult struct {
	FailCount int  `json:"failCount"`
	IsFailure bool `json:"isFailure"`
}

// Move carries whichever field the current game state expects.
type Move struct {
	Nominations []int `json:"nominations,omitempty"`
	Approve     *bool `json:"approve,omitempty"`
	Succeed     *bool `json:"succeed,omitempty"`
}

// PlayerGameInfo is a game session as one player is allowed to see it.
type PlayerGameInfo struct {
	Id                  string          `json:"id"`
	PlayerIndex         int             `json:"playerIndex"`
	State               GameState       `json:"state"`
	Players             []string        `json:"players"`
	BadFaction          []int           `json:"badFaction,omitempty"`
	Succession          []int           `json:"succession"`
	LastVote            map[int]bool    `json:"lastVote,omitempty"`
	MissionHistory      []MissionResult `json:"missionHistory"`
	NextMissionSize     int             `json:"nextMissionSize,omitempty"`
	FailThreshold       int             `json:"failThreshold,omitempty"`
	CurrentNominations  []int           `json:"currentNominations,omitempty"`
	CurrentMissionGroup []int           `json:"currentMissionGroup,omitempty"`
	HasMadeSelection    *bool           `json:"hasMadeSelection,omitempty"`
	Outcome             Outcome         `json:"outcome,omitempty"`
}

// GameSummary is the public record of a session, safe to publish or archive.
type GameSummary struct {
	Id             string          `json:"id"`
	State          GameState       `json:"state"`
	Players        []string        `json:"players"`
	Succession     []int           `json:"succession"`
	MissionHistory []MissionResult `json:"missionHistory"`
	BadFaction     []int           `json:"badFaction,omitempty"`
	Outcome        Outcome         `json:"outcome,omitempty"`
	StartedAt      time.Time       `json:"startedAt"`
	EndedAt        time.Time       `json:"endedAt"`
}

// Response wraps every JSON body served over plain HTTP.
type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}
