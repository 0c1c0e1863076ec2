package server

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// dispatchAction routes one inbound client message to the coordinator.
// Validation failures are deliberately silent: the sender observes a lack
// of state change, never an error.
func (s *Server) dispatchAction(room *Room, connID string, raw []byte) {
	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		log.Printf("dropping malformed action room=%s error=%v", room.Code, err)
		return
	}
	metricActions.WithLabelValues(action.Type).Inc()

	switch action.Type {
	case actionGetState:
		s.handleGetState(room, connID)
	case actionJoinTeam:
		s.handleJoinTeam(room, connID, action.TeamID, action.Email, action.HasMotion)
	case actionLeaveTeam:
		s.handleLeaveTeam(room, action.PlayerID)
	case actionStartGame:
		s.handleStartGame(context.Background(), room)
	case actionUpdatePhonePosition:
		s.handleUpdatePhonePosition(room, action.TeamID, action.PlayerIndex, action.PhonePosition)
	case actionAcceptOption:
		s.handleChoice(room, action.TeamID, action.PlayerID, optionAccepted)
	case actionRejectOption:
		s.handleChoice(room, action.TeamID, action.PlayerID, optionRejected)
	case actionNextQuote:
		s.handleNextQuote(room)
	case actionResetGame:
		s.handleResetGame(room)
	default:
		log.Printf("dropping unknown action room=%s type=%q", room.Code, action.Type)
	}
}

// handleGetState unicasts the current snapshot to the requester only.
func (s *Server) handleGetState(room *Room, connID string) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.retired() {
		return
	}
	s.ws.SendTo(room.Code, connID, newStateMessage(room))
}

// handleJoinTeam upserts a player keyed by email. A rejoin with a known
// email refreshes the connection-scoped id in place; brand new players are
// only admitted while the game has not started.
func (s *Server) handleJoinTeam(room *Room, connID, teamID, email string, hasMotion bool) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.retired() {
		return
	}
	state := room.State
	team, ok := state.Teams[teamID]
	if !ok || email == "" || connID == "" {
		log.Printf("ignoring joinTeam room=%s team=%q email=%q", room.Code, teamID, email)
		return
	}

	if existing, _ := playerByEmail(team, email); existing != nil {
		existing.ID = connID
		existing.HasMotion = hasMotion
		log.Printf("player rejoined room=%s team=%s email=%s", room.Code, teamID, email)
		s.broadcastState(room)
		return
	}

	if state.IsGameStarted {
		log.Printf("ignoring joinTeam after start room=%s email=%s", room.Code, email)
		return
	}
	if limit := s.cfg.MaxPlayersPerTeam; limit > 0 && len(team.Players) >= limit {
		log.Printf("ignoring joinTeam, team full room=%s team=%s email=%s", room.Code, teamID, email)
		return
	}

	team.Players = append(team.Players, &Player{
		ID:            connID,
		Email:         email,
		PhonePosition: phoneFaceUp,
		Choices:       make(map[int]Option),
		HasMotion:     hasMotion,
	})
	log.Printf("player joined room=%s team=%s email=%s", room.Code, teamID, email)
	s.broadcastState(room)
}

// handleLeaveTeam removes the player whose current connection id matches,
// from whichever team holds them. Leaving twice is a no-op.
func (s *Server) handleLeaveTeam(room *Room, playerID string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.retired() || playerID == "" {
		return
	}
	removed := false
	for _, team := range room.State.Teams {
		kept := team.Players[:0]
		for _, player := range team.Players {
			if player.ID == playerID {
				removed = true
				continue
			}
			kept = append(kept, player)
		}
		team.Players = kept
	}
	if !removed {
		return
	}
	log.Printf("player left room=%s player_id=%s", room.Code, playerID)
	s.broadcastState(room)
}

// handleStartGame fetches and clamps the quote set, then deals round 0.
// The fetch suspends on external I/O, so the start latch is taken before
// releasing the room lock: a second startGame observed mid-fetch is dropped
// rather than double-executed.
func (s *Server) handleStartGame(ctx context.Context, room *Room) {
	room.mu.Lock()
	if room.retired() || phase(room.State) != phaseLobby || room.startQueued {
		room.mu.Unlock()
		return
	}
	room.startQueued = true
	options := room.Options
	room.mu.Unlock()

	quotes := s.quotes.Fetch(ctx, options.NumberOfQuestions, options.Backend)

	room.mu.Lock()
	defer room.mu.Unlock()

	state := room.State
	if room.retired() || state.IsGameStarted {
		room.startQueued = false
		return
	}
	totalPlayers := maxTeamSize(state)
	if totalPlayers < 1 {
		totalPlayers = 1
	}
	state.Quotes = clampOptions(quotes, totalPlayers)
	state.CurrentQuoteIndex = -1
	state.IsGameStarted = true
	room.startQueued = false
	log.Printf("game started room=%s quotes=%d players=%d", room.Code, len(state.Quotes), countPlayers(state))

	// write-behind: never awaited, never blocks game flow
	emails := collectEmails(state)
	go s.persistPlayers(emails)
	go s.persistEvent(room.Code, "game_started", EventPayload{Quotes: len(state.Quotes), Players: len(emails)})

	s.advanceRound(room, -1)
}

// handleUpdatePhonePosition is the cheap, frequent gesture signal. It does
// not resolve rounds or broadcast on its own; the timer subsystem picks the
// new position up on its next tick.
func (s *Server) handleUpdatePhonePosition(room *Room, teamID string, playerIndex int, position string) {
	if position != phoneFaceUp && position != phoneFaceDown {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.retired() {
		return
	}
	team, ok := room.State.Teams[teamID]
	if !ok || playerIndex < 0 || playerIndex >= len(team.Players) {
		return
	}
	team.Players[playerIndex].PhonePosition = position
}

// handleChoice records an accept or reject vote for the acting player's
// assigned option and re-tallies the team. The player is resolved by email,
// not by the transient connection id carried in the action: a reconnect
// changes the id but never the identity.
func (s *Server) handleChoice(room *Room, teamID, playerID, status string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	state := room.State
	if room.retired() || phase(state) != phaseRoundActive {
		return
	}
	team, ok := state.Teams[teamID]
	if !ok {
		return
	}
	email, ok := emailForPlayerID(state, playerID)
	if !ok {
		return
	}
	player, seat := playerByEmail(team, email)
	if player == nil {
		return
	}
	index := state.CurrentQuoteIndex
	if index < 0 || index >= len(state.Quotes) {
		return
	}
	quote := state.Quotes[index]
	if seat < len(quote.Options) {
		player.Choices[index] = Option{Value: quote.Options[seat], Status: status}
	}
	s.resolveTeam(room, team)
	s.broadcastState(room)
}

// resolveTeam commits a team answer once every player has a non-undecided
// choice for the current round and exactly one of them accepted. Any other
// distribution leaves the team unresolved; players may keep flipping their
// votes. Caller holds the room lock.
func (s *Server) resolveTeam(room *Room, team *Team) {
	state := room.State
	index := state.CurrentQuoteIndex
	if index < 0 || index >= len(state.Quotes) || index >= len(state.TeamAnswers) {
		return
	}
	answers := state.TeamAnswers[index]
	if _, committed := answers[team.ID]; committed {
		return
	}
	if len(team.Players) == 0 {
		return
	}

	acceptedValue := ""
	acceptedCount := 0
	for _, player := range team.Players {
		choice, ok := player.Choices[index]
		if !ok || choice.Status == optionUndecided {
			return
		}
		if choice.Status == optionAccepted {
			acceptedCount++
			acceptedValue = choice.Value
		}
	}
	if acceptedCount != 1 {
		return
	}

	quote := state.Quotes[index]
	optionIndex := indexOf(quote.Options, acceptedValue)
	if optionIndex == -1 {
		return
	}

	first := !hasCommittedAnswer(answers)
	answers[team.ID] = TeamAnswer{
		Status:      answerCommitted,
		OptionIndex: optionIndex,
		Seq:         room.nextAnswerSeq(),
	}
	if optionIndex == quote.CorrectOptionIndex {
		points := state.TimeRemaining / 1000
		if first {
			points += firstAnswerBonus
		}
		team.Score += points
		log.Printf("team answered correctly room=%s team=%s round=%d points=%d first=%t",
			room.Code, team.ID, index, points, first)
	} else {
		log.Printf("team answered incorrectly room=%s team=%s round=%d option=%d",
			room.Code, team.ID, index, optionIndex)
	}
}

// handleNextQuote is the explicit advance request from the host or the
// auto-continue UI.
func (s *Server) handleNextQuote(room *Room) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.retired() || phase(room.State) != phaseRoundDecided {
		return
	}
	room.nextQueued = false
	s.advanceRound(room, room.State.CurrentQuoteIndex)
}

// advanceRound deals the round after from, or ends the game when the quote
// sequence is exhausted. The from parameter makes the operation a
// compare-and-swap on currentQuoteIndex: a stale or duplicate advance
// observes a mismatch and becomes a no-op, regardless of latch timing.
// Caller holds the room lock.
func (s *Server) advanceRound(room *Room, from int) {
	state := room.State
	if state.CurrentQuoteIndex != from {
		room.nextQueued = false
		return
	}

	next := from + 1
	if next >= len(state.Quotes) {
		if state.GameEndedAt == nil {
			now := time.Now().UTC()
			state.GameEndedAt = &now
			log.Printf("game ended room=%s rounds=%d", room.Code, len(state.Quotes))
			go s.persistEvent(room.Code, "game_ended", EventPayload{Quotes: len(state.Quotes)})
		}
		state.IsRoundDecided = true
		room.nextQueued = false
		s.broadcastState(room)
		return
	}

	quote := state.Quotes[next]
	for _, team := range state.Teams {
		team.PreviousRoundScore = team.Score
		// default vote is accepted, matching the face-up default
		for seat, player := range team.Players {
			if seat >= len(quote.Options) {
				continue
			}
			player.Choices[next] = Option{Value: quote.Options[seat], Status: optionAccepted}
		}
	}
	for len(state.TeamAnswers) <= next {
		state.TeamAnswers = append(state.TeamAnswers, RoundAnswers{})
	}
	state.TimeRemaining = room.Options.RoundDurationMs
	state.IsRoundDecided = false
	state.CurrentQuoteIndex = next
	room.nextQueued = false
	// the pre-seeded defaults already resolve a single-player team, so it
	// commits here instead of stalling on an explicit vote
	for _, team := range state.Teams {
		s.resolveTeam(room, team)
	}
	log.Printf("round dealt room=%s round=%d", room.Code, next)
	s.broadcastState(room)
}

// handleResetGame tears the room down and replaces it with a fresh lobby:
// new state, new options from config defaults, new timers. The old
// generation's timers are stopped before the replacement exists, so both
// can never run concurrently.
func (s *Server) handleResetGame(room *Room) {
	room.mu.Lock()
	if room.retired() {
		room.mu.Unlock()
		return
	}
	room.stopTimers()
	room.mu.Unlock()

	fresh := NewRoom(room.Code, s.defaultOptions(), s.cfg.TeamCount)
	s.store.Replace(fresh)
	s.startRoomTimers(fresh)
	log.Printf("room reset room=%s", room.Code)
	go s.persistEvent(room.Code, "room_reset", EventPayload{})
	s.ws.Broadcast(room.Code, resetMessage{Type: "reset"})
	metricBroadcasts.Inc()
}

// broadcastState fans the canonical snapshot out to every connection in the
// room. Caller holds the room lock; the hub serializes writes per
// connection.
func (s *Server) broadcastState(room *Room) {
	s.ws.Broadcast(room.Code, newStateMessage(room))
	metricBroadcasts.Inc()
}

func playerByEmail(team *Team, email string) (*Player, int) {
	for seat, player := range team.Players {
		if player.Email == email {
			return player, seat
		}
	}
	return nil, -1
}

func emailForPlayerID(state *GameState, playerID string) (string, bool) {
	if playerID == "" {
		return "", false
	}
	for _, team := range state.Teams {
		for _, player := range team.Players {
			if player.ID == playerID {
				return player.Email, true
			}
		}
	}
	return "", false
}

func hasCommittedAnswer(answers RoundAnswers) bool {
	for _, answer := range answers {
		if answer.Status == answerCommitted {
			return true
		}
	}
	return false
}

func maxTeamSize(state *GameState) int {
	max := 0
	for _, team := range state.Teams {
		if len(team.Players) > max {
			max = len(team.Players)
		}
	}
	return max
}

func countPlayers(state *GameState) int {
	total := 0
	for _, team := range state.Teams {
		total += len(team.Players)
	}
	return total
}

func collectEmails(state *GameState) []string {
	emails := make([]string, 0, countPlayers(state))
	for _, team := range state.Teams {
		for _, player := range team.Players {
			emails = append(emails, player.Email)
		}
	}
	return emails
}
