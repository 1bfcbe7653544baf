package internal_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scythe504/mission-backend/internal"
)

func TestGameErrorMatching(t *testing.T) {
	wrapped := fmt.Errorf("room r1: %w", internal.ErrGameFull)
	assert.ErrorIs(t, wrapped, internal.ErrGameFull)
	assert.NotErrorIs(t, wrapped, internal.ErrAlreadyInGame)

	// Same code, different message still matches.
	custom := internal.NewGameError(internal.CodeIllegalAction, "Illegal lobby action")
	assert.ErrorIs(t, custom, internal.ErrIllegalAction)
	assert.Equal(t, "Illegal lobby action", custom.Error())

	assert.Equal(t, internal.CodeGameFull, internal.ErrorCode(wrapped))
	assert.Empty(t, internal.ErrorCode(errors.New("io timeout")))
}

func TestServiceErrorCarriesMessageOnly(t *testing.T) {
	msg := internal.NewServiceError(fmt.Errorf("join: %w", internal.ErrIncorrectPassword))
	assert.Equal(t, internal.KindServiceError, msg.Type)
	assert.Equal(t, "join: Incorrect password", msg.Data.Message)
}
