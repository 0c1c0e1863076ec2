package server

// Action is the inbound tagged message envelope. Unknown or malformed
// actions are logged and dropped; the protocol has no error channel back to
// the sender.
type Action struct {
	Type          string `json:"type"`
	TeamID        string `json:"teamId,omitempty"`
	Email         string `json:"email,omitempty"`
	PlayerID      string `json:"playerId,omitempty"`
	PlayerIndex   int    `json:"playerIndex"`
	PhonePosition string `json:"phonePosition,omitempty"`
	HasMotion     bool   `json:"hasMotion,omitempty"`
}

const (
	actionGetState            = "getState"
	actionJoinTeam            = "joinTeam"
	actionLeaveTeam           = "leaveTeam"
	actionStartGame           = "startGame"
	actionUpdatePhonePosition = "updatePhonePosition"
	actionAcceptOption        = "acceptOption"
	actionRejectOption        = "rejectOption"
	actionNextQuote           = "nextQuote"
	actionResetGame           = "resetGame"
)

// stateMessage is the full snapshot sent on every mutation and in reply to
// getState. No deltas: clients overwrite their whole view.
type stateMessage struct {
	Type    string      `json:"type"`
	State   *GameState  `json:"state"`
	Options GameOptions `json:"options"`
}

// resetMessage tells clients to navigate away instead of rendering the
// zeroed state a reset leaves behind.
type resetMessage struct {
	Type string `json:"type"`
}

func newStateMessage(room *Room) stateMessage {
	return stateMessage{Type: "state", State: room.State, Options: room.Options}
}
