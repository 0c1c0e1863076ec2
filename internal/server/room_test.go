package server

import (
	"context"
	"testing"
)

func TestJoinTeamUpsertsByEmail(t *testing.T) {
	srv, room := newGameServer(t)

	joinPlayer(t, srv, room, "1", "a@example.com", "conn-1")
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-2")

	team := room.State.Teams["1"]
	if len(team.Players) != 1 {
		t.Fatalf("expected 1 player after rejoin, got %d", len(team.Players))
	}
	if team.Players[0].ID != "conn-2" {
		t.Fatalf("expected latest connection id, got %s", team.Players[0].ID)
	}
}

func TestJoinTeamUnknownTeamIgnored(t *testing.T) {
	srv, room := newGameServer(t)

	srv.handleJoinTeam(room, "conn-1", "9", "a@example.com", true)
	if got := countPlayers(room.State); got != 0 {
		t.Fatalf("expected no players, got %d", got)
	}
}

func TestJoinTeamAfterStartOnlyRejoins(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-1")
	startTestGame(t, srv, room)

	srv.handleJoinTeam(room, "conn-2", "1", "b@example.com", true)
	if got := len(room.State.Teams["1"].Players); got != 1 {
		t.Fatalf("expected new player rejected after start, got %d players", got)
	}

	srv.handleJoinTeam(room, "conn-3", "1", "a@example.com", false)
	player := room.State.Teams["1"].Players[0]
	if player.ID != "conn-3" || player.HasMotion {
		t.Fatalf("expected rejoin to refresh connection, got %#v", player)
	}
}

func TestJoinTeamEnforcesTeamCapacity(t *testing.T) {
	srv, room := newGameServer(t)
	for i := 0; i < srv.cfg.MaxPlayersPerTeam; i++ {
		email := string(rune('a'+i)) + "@example.com"
		joinPlayer(t, srv, room, "1", email, "conn-"+email)
	}

	srv.handleJoinTeam(room, "conn-late", "1", "late@example.com", true)
	if got := len(room.State.Teams["1"].Players); got != srv.cfg.MaxPlayersPerTeam {
		t.Fatalf("expected full team to reject new players, got %d", got)
	}

	// a member of a full team can still rejoin
	srv.handleJoinTeam(room, "conn-again", "1", "a@example.com", true)
	player, _ := playerByEmail(room.State.Teams["1"], "a@example.com")
	if player == nil || player.ID != "conn-again" {
		t.Fatalf("expected rejoin on a full team, got %#v", player)
	}
}

func TestLeaveTeamIsIdempotent(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "2", "a@example.com", "conn-1")

	srv.handleLeaveTeam(room, "conn-1")
	if got := len(room.State.Teams["2"].Players); got != 0 {
		t.Fatalf("expected empty team after leave, got %d", got)
	}
	srv.handleLeaveTeam(room, "conn-1")
	srv.handleLeaveTeam(room, "")
}

func TestStartGameDealsFirstRound(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	joinPlayer(t, srv, room, "1", "b@example.com", "conn-b")

	startTestGame(t, srv, room)

	state := room.State
	if len(state.Quotes) != 10 {
		t.Fatalf("expected 10 quotes, got %d", len(state.Quotes))
	}
	for _, quote := range state.Quotes {
		if len(quote.Options) != 2 {
			t.Fatalf("expected options clamped to team size 2, got %d", len(quote.Options))
		}
	}
	if len(state.TeamAnswers) != 1 {
		t.Fatalf("expected one answer ledger, got %d", len(state.TeamAnswers))
	}
	if state.TimeRemaining != room.Options.RoundDurationMs {
		t.Fatalf("expected full round clock, got %d", state.TimeRemaining)
	}
	for seat, player := range state.Teams["1"].Players {
		choice, ok := player.Choices[0]
		if !ok || choice.Status != optionAccepted {
			t.Fatalf("expected pre-seeded accepted choice for seat %d, got %#v", seat, choice)
		}
		if choice.Value != state.Quotes[0].Options[seat] {
			t.Fatalf("expected seat %d assigned its option, got %q", seat, choice.Value)
		}
	}
	if phase(state) != phaseRoundActive {
		t.Fatalf("expected active round, got %s", phase(state))
	}
}

func TestStartGameIgnoredOnceStarted(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	startTestGame(t, srv, room)

	srv.handleStartGame(context.Background(), room)
	if room.State.CurrentQuoteIndex != 0 || len(room.State.TeamAnswers) != 1 {
		t.Fatalf("expected second start to be a no-op, got index=%d ledgers=%d",
			room.State.CurrentQuoteIndex, len(room.State.TeamAnswers))
	}
}

func TestChoiceResolvesCorrectAnswer(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	joinPlayer(t, srv, room, "1", "b@example.com", "conn-b")
	startTestGame(t, srv, room)

	// both seats pre-seed accepted; the reject from seat 1 leaves exactly
	// one accepted option, which is seat 0's correct one
	srv.handleChoice(room, "1", "conn-b", optionRejected)

	team := room.State.Teams["1"]
	answers := room.State.TeamAnswers[0]
	answer, committed := answers["1"]
	if !committed || answer.Status != answerCommitted || answer.OptionIndex != 0 {
		t.Fatalf("expected committed answer at index 0, got %#v", answer)
	}
	if team.Score != 70 {
		t.Fatalf("expected 60 time points plus first-answer bonus, got %d", team.Score)
	}
}

func TestChoiceResolvesIncorrectAnswer(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	joinPlayer(t, srv, room, "1", "b@example.com", "conn-b")
	startTestGame(t, srv, room)

	// rejecting seat 0 leaves seat 1's incorrect option accepted
	srv.handleChoice(room, "1", "conn-a", optionRejected)

	team := room.State.Teams["1"]
	answer := room.State.TeamAnswers[0]["1"]
	if answer.Status != answerCommitted || answer.OptionIndex != 1 {
		t.Fatalf("expected committed answer at index 1, got %#v", answer)
	}
	if team.Score != 0 {
		t.Fatalf("expected no points for a wrong answer, got %d", team.Score)
	}
}

func TestFirstAnswerBonusGoesToOneTeam(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a1@example.com", "conn-a1")
	joinPlayer(t, srv, room, "1", "b1@example.com", "conn-b1")
	joinPlayer(t, srv, room, "2", "a2@example.com", "conn-a2")
	joinPlayer(t, srv, room, "2", "b2@example.com", "conn-b2")
	startTestGame(t, srv, room)

	srv.handleChoice(room, "1", "conn-b1", optionRejected)
	srv.handleChoice(room, "2", "conn-b2", optionRejected)

	state := room.State
	if state.Teams["1"].Score != 70 {
		t.Fatalf("expected first team to earn the bonus, got %d", state.Teams["1"].Score)
	}
	if state.Teams["2"].Score != 60 {
		t.Fatalf("expected second team without bonus, got %d", state.Teams["2"].Score)
	}
	answers := state.TeamAnswers[0]
	if answers["1"].Seq >= answers["2"].Seq {
		t.Fatalf("expected answer order preserved, got %d then %d", answers["1"].Seq, answers["2"].Seq)
	}
}

func TestTeamAnswerCommitsExactlyOnce(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	startTestGame(t, srv, room)

	before := room.State.TeamAnswers[0]["1"]
	if before.Status != answerCommitted {
		t.Fatalf("expected solo team committed at deal, got %#v", before)
	}
	score := room.State.Teams["1"].Score

	srv.handleChoice(room, "1", "conn-a", optionRejected)
	after := room.State.TeamAnswers[0]["1"]
	if after != before {
		t.Fatalf("expected committed answer to be immutable, got %#v then %#v", before, after)
	}
	if room.State.Teams["1"].Score != score {
		t.Fatalf("expected score unchanged, got %d", room.State.Teams["1"].Score)
	}
}

func TestSoloTeamCommitsPreSeededAnswer(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	startTestGame(t, srv, room)

	answer, committed := room.State.TeamAnswers[0]["1"]
	if !committed || answer.Status != answerCommitted || answer.OptionIndex != 0 {
		t.Fatalf("expected lone pre-seeded choice to commit without a vote, got %#v", answer)
	}
	if got := room.State.Teams["1"].Score; got != 70 {
		t.Fatalf("expected full time points plus bonus, got %d", got)
	}

	room.mu.Lock()
	room.State.TimeRemaining = srv.cfg.TickMs
	room.mu.Unlock()
	srv.countdownTick(room)
	if got := room.State.TeamAnswers[0]["1"]; got != answer {
		t.Fatalf("expected committed answer to survive the clock, got %#v", got)
	}
}

func TestActionsIgnoreRetiredGeneration(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	joinPlayer(t, srv, room, "1", "b@example.com", "conn-b")
	startTestGame(t, srv, room)
	room.stopTimers()

	srv.handleChoice(room, "1", "conn-b", optionRejected)
	if len(room.State.TeamAnswers[0]) != 0 {
		t.Fatal("expected no answer recorded on a retired generation")
	}
	srv.handleLeaveTeam(room, "conn-a")
	if got := len(room.State.Teams["1"].Players); got != 2 {
		t.Fatalf("expected roster untouched, got %d players", got)
	}
	srv.handleUpdatePhonePosition(room, "1", 0, phoneFaceDown)
	if got := room.State.Teams["1"].Players[0].PhonePosition; got != phoneFaceUp {
		t.Fatalf("expected phone position untouched, got %s", got)
	}
	srv.handleNextQuote(room)
	if room.State.CurrentQuoteIndex != 0 {
		t.Fatalf("expected no advance, got index %d", room.State.CurrentQuoteIndex)
	}

	lobby := NewRoom("retired-lobby", srv.defaultOptions(), srv.cfg.TeamCount)
	srv.store.Replace(lobby)
	lobby.stopTimers()
	srv.handleJoinTeam(lobby, "conn-c", "1", "c@example.com", true)
	if countPlayers(lobby.State) != 0 {
		t.Fatal("expected join rejected on a retired lobby")
	}
	srv.handleStartGame(context.Background(), lobby)
	if lobby.State.IsGameStarted {
		t.Fatal("expected start rejected on a retired lobby")
	}
}

func TestResetGameIgnoredOnRetiredGeneration(t *testing.T) {
	srv, room := newGameServer(t)
	srv.handleResetGame(room)

	fresh, ok := srv.store.Get(room.Code)
	if !ok || fresh == room {
		t.Fatal("expected fresh generation after first reset")
	}
	t.Cleanup(fresh.stopTimers)

	srv.handleResetGame(room)
	got, _ := srv.store.Get(room.Code)
	if got != fresh {
		t.Fatal("expected stale reset to leave the fresh generation in place")
	}
	if fresh.retired() {
		t.Fatal("expected fresh generation to stay live")
	}
}

func TestChoiceIgnoredOutsideActiveRound(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")

	srv.handleChoice(room, "1", "conn-a", optionAccepted)
	if len(room.State.TeamAnswers) != 0 {
		t.Fatal("expected no answer ledger before the game starts")
	}
}

func TestNextQuoteRequiresDecidedRound(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	startTestGame(t, srv, room)

	srv.handleNextQuote(room)
	if room.State.CurrentQuoteIndex != 0 {
		t.Fatalf("expected advance rejected mid-round, got index %d", room.State.CurrentQuoteIndex)
	}

	srv.completionTick(room)
	if !room.State.IsRoundDecided {
		t.Fatal("expected round decided once every team answered")
	}

	srv.handleNextQuote(room)
	state := room.State
	if state.CurrentQuoteIndex != 1 {
		t.Fatalf("expected round 1 dealt, got index %d", state.CurrentQuoteIndex)
	}
	if state.IsRoundDecided || state.TimeRemaining != room.Options.RoundDurationMs {
		t.Fatalf("expected fresh round, got decided=%t remaining=%d", state.IsRoundDecided, state.TimeRemaining)
	}
	if len(state.TeamAnswers) != 2 {
		t.Fatalf("expected second answer ledger, got %d", len(state.TeamAnswers))
	}
	if got := state.Teams["1"].PreviousRoundScore; got != 70 {
		t.Fatalf("expected previous-round score snapshot, got %d", got)
	}
}

func TestAdvanceRoundIgnoresStaleIndex(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	startTestGame(t, srv, room)

	room.mu.Lock()
	room.nextQueued = true
	srv.advanceRound(room, 5)
	room.mu.Unlock()

	if room.State.CurrentQuoteIndex != 0 {
		t.Fatalf("expected stale advance ignored, got index %d", room.State.CurrentQuoteIndex)
	}
	if room.nextQueued {
		t.Fatal("expected advance latch released")
	}
}

func TestGameEndsAfterLastQuote(t *testing.T) {
	srv, room := newGameServer(t)
	srv.quotes = stubQuotes{quotes: testQuotes(1)}
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	startTestGame(t, srv, room)

	srv.completionTick(room)
	srv.handleNextQuote(room)

	state := room.State
	if phase(state) != phaseGameOver {
		t.Fatalf("expected game over, got %s", phase(state))
	}
	if state.GameEndedAt == nil {
		t.Fatal("expected game end timestamp")
	}
	endedAt := *state.GameEndedAt

	srv.handleNextQuote(room)
	srv.completionTick(room)
	if state.GameEndedAt == nil || !state.GameEndedAt.Equal(endedAt) {
		t.Fatalf("expected end timestamp stable, got %v", state.GameEndedAt)
	}
	if state.CurrentQuoteIndex != 0 {
		t.Fatalf("expected terminal index unchanged, got %d", state.CurrentQuoteIndex)
	}
}

func TestResetGameReplacesRoomGeneration(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")
	startTestGame(t, srv, room)
	room.State.Teams["1"].Score = 42

	srv.handleResetGame(room)

	fresh, ok := srv.store.Get(room.Code)
	if !ok || fresh == room {
		t.Fatal("expected a fresh room generation in the store")
	}
	t.Cleanup(fresh.stopTimers)

	if !room.retired() {
		t.Fatal("expected old generation retired")
	}
	state := fresh.State
	if phase(state) != phaseLobby || state.CurrentQuoteIndex != 0 {
		t.Fatalf("expected fresh lobby, got phase=%s index=%d", phase(state), state.CurrentQuoteIndex)
	}
	if countPlayers(state) != 0 {
		t.Fatalf("expected empty teams after reset, got %d players", countPlayers(state))
	}
	if state.Teams["1"].Score != 0 {
		t.Fatalf("expected scores cleared, got %d", state.Teams["1"].Score)
	}
}

func TestUpdatePhonePositionGuardsInput(t *testing.T) {
	srv, room := newGameServer(t)
	joinPlayer(t, srv, room, "1", "a@example.com", "conn-a")

	srv.handleUpdatePhonePosition(room, "1", 0, "sideways")
	if got := room.State.Teams["1"].Players[0].PhonePosition; got != phoneFaceUp {
		t.Fatalf("expected invalid position ignored, got %s", got)
	}

	srv.handleUpdatePhonePosition(room, "1", 5, phoneFaceDown)
	srv.handleUpdatePhonePosition(room, "9", 0, phoneFaceDown)

	srv.handleUpdatePhonePosition(room, "1", 0, phoneFaceDown)
	if got := room.State.Teams["1"].Players[0].PhonePosition; got != phoneFaceDown {
		t.Fatalf("expected position updated, got %s", got)
	}
}
