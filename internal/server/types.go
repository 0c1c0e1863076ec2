package server

import (
	"strconv"
	"time"
)

const (
	phaseLobby        = "lobby"
	phaseRoundActive  = "round-active"
	phaseRoundDecided = "round-decided"
	phaseGameOver     = "game-over"
)

const (
	phoneFaceUp   = "faceUp"
	phoneFaceDown = "faceDown"
)

const (
	optionAccepted  = "accepted"
	optionRejected  = "rejected"
	optionUndecided = "undecided"
)

// forfeitValue is written into a player's choice when the countdown expires
// before their team committed an answer.
const forfeitValue = "Forfeited"

const firstAnswerBonus = 10

// Backend selects which quote provider is tried first.
type Backend string

const (
	BackendLangflow Backend = "langflow"
	BackendAstra    Backend = "astra"
)

// GameOptions is fixed at room creation and immutable for the lifetime of
// one game. A reset constructs a fresh set from config defaults.
type GameOptions struct {
	Backend           Backend `json:"backend"`
	NumberOfQuestions int     `json:"numberOfQuestions"`
	RoundDurationMs   int     `json:"roundDurationMs"`
}

// GameState is the single source of truth for one room. Every broadcast
// carries the whole thing; clients overwrite, never merge.
type GameState struct {
	Teams             map[string]*Team `json:"teams"`
	Quotes            []Quote          `json:"quotes"`
	CurrentQuoteIndex int              `json:"currentQuoteIndex"`
	IsRoundDecided    bool             `json:"isRoundDecided"`
	TimeRemaining     int              `json:"timeRemaining"`
	IsGameStarted     bool             `json:"isGameStarted"`
	GameEndedAt       *time.Time       `json:"gameEndedAt"`
	TeamAnswers       []RoundAnswers   `json:"teamAnswers"`
}

type Team struct {
	ID                 string    `json:"id"`
	Score              int       `json:"score"`
	PreviousRoundScore int       `json:"previousRoundScore"`
	Players            []*Player `json:"players"`
}

// Player identity is the email; the ID is the current websocket connection
// id and is rewritten in place when the same email rejoins.
type Player struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	PhonePosition string         `json:"phonePosition"`
	Choices       map[int]Option `json:"choices"`
	HasMotion     bool           `json:"hasMotion"`
}

// Option is one player's current vote on whether their assigned option is
// the correct answer.
type Option struct {
	Value  string `json:"value"`
	Status string `json:"status"`
}

type Quote struct {
	Quote              string   `json:"quote"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// RoundAnswers maps team id to that team's committed answer for one round.
// A missing entry means the team has not answered yet.
type RoundAnswers map[string]TeamAnswer

const (
	answerCommitted = "answered"
	answerForfeited = "forfeited"
)

// TeamAnswer records how a team's round resolved. Seq is a room-wide
// monotonic counter so the first-answer bonus never depends on map
// iteration order.
type TeamAnswer struct {
	Status      string
	OptionIndex int
	Seq         int64
}

// MarshalJSON keeps the original wire format: the committed option index,
// or -1 for a forfeit.
func (a TeamAnswer) MarshalJSON() ([]byte, error) {
	if a.Status == answerForfeited {
		return []byte("-1"), nil
	}
	return []byte(strconv.Itoa(a.OptionIndex)), nil
}

// UnmarshalJSON accepts the same wire format back, for tooling that
// round-trips snapshots.
func (a *TeamAnswer) UnmarshalJSON(data []byte) error {
	value, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	if value < 0 {
		*a = TeamAnswer{Status: answerForfeited, OptionIndex: -1}
		return nil
	}
	*a = TeamAnswer{Status: answerCommitted, OptionIndex: value}
	return nil
}

// phase derives the coordinator state from the four fields the transition
// table keys on.
func phase(state *GameState) string {
	switch {
	case state.GameEndedAt != nil:
		return phaseGameOver
	case !state.IsGameStarted:
		return phaseLobby
	case state.IsRoundDecided:
		return phaseRoundDecided
	default:
		return phaseRoundActive
	}
}
