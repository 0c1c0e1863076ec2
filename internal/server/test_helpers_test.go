package server

import (
	"context"
	"fmt"
	"testing"

	"unreel/internal/config"
)

// stubQuotes replaces the langflow fetcher in tests with a deterministic
// quote sequence.
type stubQuotes struct {
	quotes []Quote
}

func (s stubQuotes) Fetch(_ context.Context, count int, _ Backend) []Quote {
	return truncateQuotes(append([]Quote(nil), s.quotes...), count)
}

func testQuotes(n int) []Quote {
	quotes := make([]Quote, 0, n)
	for i := 0; i < n; i++ {
		quotes = append(quotes, Quote{
			Quote: fmt.Sprintf("quote-%d", i),
			Options: []string{
				fmt.Sprintf("option-%d-0", i),
				fmt.Sprintf("option-%d-1", i),
				fmt.Sprintf("option-%d-2", i),
				fmt.Sprintf("option-%d-3", i),
			},
			CorrectOptionIndex: 0,
		})
	}
	return quotes
}

// newGameServer builds a server with a stubbed quote source and one room
// whose timers are not running, so tests drive ticks explicitly.
func newGameServer(t *testing.T) (*Server, *Room) {
	t.Helper()
	cfg := config.Default()
	srv := New(nil, cfg)
	srv.quotes = stubQuotes{quotes: testQuotes(10)}
	room := NewRoom("test-room", srv.defaultOptions(), cfg.TeamCount)
	srv.store.Replace(room)
	return srv, room
}

func joinPlayer(t *testing.T, srv *Server, room *Room, teamID, email, connID string) {
	t.Helper()
	srv.handleJoinTeam(room, connID, teamID, email, true)
	team := room.State.Teams[teamID]
	if _, seat := playerByEmail(team, email); seat == -1 {
		t.Fatalf("expected %s to be on team %s", email, teamID)
	}
}

func startTestGame(t *testing.T, srv *Server, room *Room) {
	t.Helper()
	srv.handleStartGame(context.Background(), room)
	if !room.State.IsGameStarted {
		t.Fatal("expected game to start")
	}
	if room.State.CurrentQuoteIndex != 0 {
		t.Fatalf("expected round 0 dealt, got index %d", room.State.CurrentQuoteIndex)
	}
}
