package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chat-session/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.ConnectionState
		ok       bool
	}{
		{models.Disconnected, models.Connecting, true},
		{models.Connecting, models.Connected, true},
		{models.Connecting, models.Disconnected, true},
		{models.Connected, models.Reconnecting, true},
		{models.Reconnecting, models.Connected, true},
		{models.Reconnecting, models.Disconnected, true},
		{models.Connected, models.Disconnected, true},
		{models.Disconnected, models.Connected, false},
		{models.Disconnected, models.Reconnecting, false},
		{models.Connected, models.Connecting, false},
		{models.Reconnecting, models.Connecting, false},
		{models.Disconnected, models.Disconnected, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, canTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
