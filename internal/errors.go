package internal

import (
	"errors"
)

// Error codes reported to clients and used for errors.Is comparisons.
const (
	CodeIllegalRoomType        = "IllegalRoomType"
	CodeIllegalPassword        = "IllegalPassword"
	CodeIllegalNomination      = "IllegalNomination"
	CodeIllegalNominationCount = "IllegalNominationCount"
	CodeIllegalMoveShape       = "IllegalMoveShape"
	CodeIllegalActor           = "IllegalActor"
	CodePlayerNotInGame        = "PlayerNotInGame"
	CodeNoSuchGame             = "NoSuchGame"
	CodeNotHosting             = "NotHosting"
	CodeGameFull               = "GameFull"
	CodeAlreadyInGame          = "AlreadyInGame"
	CodeIncorrectPassword      = "IncorrectPassword"
	CodeGameEnded              = "GameEnded"
	CodeIllegalName            = "IllegalName"
	CodeIllegalRosterSize      = "IllegalRosterSize"
	CodeNotEnoughPlayers       = "NotEnoughPlayers"
	CodeIllegalAction          = "IllegalAction"
)

// GameError is a rule violation detected by the lobby or the game engine.
type GameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *GameError) Error() string {
	return e.Message
}

// Is matches any GameError carrying the same code.
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewGameError(code, message string) *GameError {
	return &GameError{Code: code, Message: message}
}

var (
	ErrIllegalRoomType        = NewGameError(CodeIllegalRoomType, "Illegal room type")
	ErrIllegalPassword        = NewGameError(CodeIllegalPassword, "Illegal password")
	ErrIllegalNomination      = NewGameError(CodeIllegalNomination, "Illegal nomination")
	ErrIllegalNominationCount = NewGameError(CodeIllegalNominationCount, "Illegal nomination count")
	ErrIllegalMoveShape       = NewGameError(CodeIllegalMoveShape, "Move is missing a required field")
	ErrIllegalActor           = NewGameError(CodeIllegalActor, "Player may not act in this phase")
	ErrPlayerNotInGame        = NewGameError(CodePlayerNotInGame, "Player not in game")
	ErrNoSuchGame             = NewGameError(CodeNoSuchGame, "No game with given ID")
	ErrNotHosting             = NewGameError(CodeNotHosting, "User not hosting a game")
	ErrGameFull               = NewGameError(CodeGameFull, "Game full")
	ErrAlreadyInGame          = NewGameError(CodeAlreadyInGame, "Already in game")
	ErrIncorrectPassword      = NewGameError(CodeIncorrectPassword, "Incorrect password")
	ErrGameEnded              = NewGameError(CodeGameEnded, "Game has ended")
	ErrIllegalName            = NewGameError(CodeIllegalName, "Illegal name")
	ErrIllegalRosterSize      = NewGameError(CodeIllegalRosterSize, "Games need between 5 and 10 distinct players")
	ErrNotEnoughPlayers       = NewGameError(CodeNotEnoughPlayers, "Not enough players to start")
	ErrIllegalAction          = NewGameError(CodeIllegalAction, "Illegal action")
)

// ErrorCode extracts the GameError code from err, or "" for foreign errors.
func ErrorCode(err error) string {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	return ""
}
