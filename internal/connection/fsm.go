package connection

import (
	"fmt"

	"chat-session/internal/models"
)

// transitions lists the allowed moves besides "any state to Disconnected".
var transitions = map[models.ConnectionState][]models.ConnectionState{
	models.Disconnected: {models.Connecting},
	models.Connecting:   {models.Connected},
	models.Connected:    {models.Reconnecting},
	models.Reconnecting: {models.Connected},
}

func canTransition(from, to models.ConnectionState) bool {
	if to == models.Disconnected {
		return from != models.Disconnected
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateChange is one entry of the connection state stream. Err is set when
// the change was caused by a failure.
type StateChange struct {
	From models.ConnectionState
	To   models.ConnectionState
	Err  error
}

type invalidTransitionError struct {
	from, to models.ConnectionState
}

func (e invalidTransitionError) Error() string {
	return fmt.Sprintf("invalid connection transition %s -> %s", e.from, e.to)
}
