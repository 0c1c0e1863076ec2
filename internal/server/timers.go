package server

import (
	"log"
	"time"
)

// startRoomTimers launches the two periodic activities owned by one room
// generation: the countdown that forfeits stragglers and the completion
// poller that decides and advances rounds. Both stop when the room's done
// channel closes; a reset closes it before constructing the replacement, so
// stale ticks never reach fresh state.
//
// Two independent pollers instead of reactive dispatch: forfeiture depends
// on wall-clock elapse and advancing depends on order-independent
// phone-position signals, and polling both at tick resolution avoids the
// missed-wakeup race between "last player flips phone" and "timer expires".
func (s *Server) startRoomTimers(room *Room) {
	go s.runCountdown(room)
	go s.runCompletionPoller(room)
}

func (s *Server) runCountdown(room *Room) {
	ticker := time.NewTicker(s.tickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-room.done:
			return
		case <-ticker.C:
			s.countdownTick(room)
		}
	}
}

func (s *Server) runCompletionPoller(room *Room) {
	ticker := time.NewTicker(s.tickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-room.done:
			return
		case <-ticker.C:
			s.completionTick(room)
		}
	}
}

func (s *Server) tickInterval() time.Duration {
	tick := s.cfg.TickMs
	if tick <= 0 {
		tick = 1000
	}
	return time.Duration(tick) * time.Millisecond
}

// countdownTick burns down the round clock while a round is active. At zero
// every team that still has players but no committed answer is unilaterally
// forfeited: each of its players gets a Forfeited/undecided choice and the
// team's answer records the forfeit sentinel.
func (s *Server) countdownTick(room *Room) {
	room.mu.Lock()
	defer room.mu.Unlock()

	state := room.State
	if room.retired() || phase(state) != phaseRoundActive {
		return
	}
	state.TimeRemaining -= s.cfg.TickMs
	if state.TimeRemaining > 0 {
		s.broadcastState(room)
		return
	}
	state.TimeRemaining = 0

	index := state.CurrentQuoteIndex
	if index >= 0 && index < len(state.TeamAnswers) {
		answers := state.TeamAnswers[index]
		for _, team := range state.Teams {
			if len(team.Players) == 0 {
				continue
			}
			if _, answered := answers[team.ID]; answered {
				continue
			}
			for _, player := range team.Players {
				player.Choices[index] = Option{Value: forfeitValue, Status: optionUndecided}
			}
			answers[team.ID] = TeamAnswer{
				Status:      answerForfeited,
				OptionIndex: -1,
				Seq:         room.nextAnswerSeq(),
			}
			log.Printf("team forfeited room=%s team=%s round=%d", room.Code, team.ID, index)
		}
	}
	s.broadcastState(room)
}

// completionTick drives round resolution independently of client events.
// While a round is undecided it checks whether every team with players has
// committed an answer; once decided it waits for every phone to come back
// face up before queueing the advance, so nobody sees the next prompt while
// still holding up an answer.
func (s *Server) completionTick(room *Room) {
	room.mu.Lock()
	defer room.mu.Unlock()

	state := room.State
	if room.retired() || !state.IsGameStarted || state.GameEndedAt != nil || room.nextQueued {
		return
	}
	if countPlayers(state) == 0 {
		return
	}

	if state.IsRoundDecided {
		if !allPhonesFaceUp(state) {
			return
		}
		room.nextQueued = true
		s.advanceRound(room, state.CurrentQuoteIndex)
		return
	}

	index := state.CurrentQuoteIndex
	if index < 0 || index >= len(state.TeamAnswers) {
		return
	}
	// re-tally before checking: roster changes can leave a team resolvable
	// without any player sending a new vote
	answers := state.TeamAnswers[index]
	for _, team := range state.Teams {
		s.resolveTeam(room, team)
	}
	for _, team := range state.Teams {
		if len(team.Players) == 0 {
			continue
		}
		if _, answered := answers[team.ID]; !answered {
			return
		}
	}
	state.IsRoundDecided = true
	log.Printf("round decided room=%s round=%d", room.Code, index)
	s.broadcastState(room)
}

func allPhonesFaceUp(state *GameState) bool {
	for _, team := range state.Teams {
		for _, player := range team.Players {
			if player.PhonePosition != phoneFaceUp {
				return false
			}
		}
	}
	return true
}
