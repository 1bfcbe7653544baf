package internal_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/mission-backend/internal"
)

func TestRoomKindKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want internal.RoomKind
	}{
		{name: "kind", raw: `{"kind": "password", "password": "pw"}`, want: internal.RoomPassword},
		{name: "type", raw: `{"type": "password", "password": "pw"}`, want: internal.RoomPassword},
		{name: "kind wins", raw: `{"kind": "link", "type": "local", "password": "pw"}`, want: internal.RoomLink},
		{name: "neither", raw: `{"password": "pw"}`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var settings internal.RoomSettings
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &settings))
			assert.Equal(t, tt.want, settings.Kind)
			require.NotNil(t, settings.Password)
			assert.Equal(t, "pw", *settings.Password)

			var req internal.JoinRequest
			require.NoError(t, json.Unmarshal([]byte(`{"id": "r1", `+tt.raw[1:]), &req))
			assert.Equal(t, tt.want, req.Kind)
			assert.Equal(t, "r1", req.Id)
		})
	}
}

func TestRoomSettingsPasswordTypeError(t *testing.T) {
	var settings internal.RoomSettings
	err := json.Unmarshal([]byte(`{"type": "password", "password": 42}`), &settings)

	var typeErr *json.UnmarshalTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "password", typeErr.Field)
}
