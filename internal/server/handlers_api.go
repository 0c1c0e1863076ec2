package server

import (
	"log"
	"net/http"
	"strconv"
)

// handleRoomSubroutes currently serves the single provisioning route:
// GET /api/rooms/{code}/connections.
func (s *Server) handleRoomSubroutes(w http.ResponseWriter, r *http.Request) {
	if roomCode, ok := parseRoomConnectionsPath(r.URL.Path); ok {
		s.handleRoomConnections(w, r, roomCode)
		return
	}
	http.NotFound(w, r)
}

// handleRoomConnections backs the room allocator: it lists the live
// connection ids for a code (an empty list means the code is free) and, as
// a side effect, applies the supplied game options to the room if the game
// has not started yet.
func (s *Server) handleRoomConnections(w http.ResponseWriter, r *http.Request, roomCode string) {
	room := s.getOrCreateRoom(roomCode)

	options, changed := optionsFromQuery(r, room)
	if changed {
		room.mu.Lock()
		if !room.State.IsGameStarted {
			room.Options = options
			room.State.TimeRemaining = options.RoundDurationMs
			log.Printf("room options applied room=%s backend=%s questions=%d duration_ms=%d",
				roomCode, options.Backend, options.NumberOfQuestions, options.RoundDurationMs)
		}
		room.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room":        roomCode,
		"connections": s.ws.ConnectionIDs(roomCode),
	})
}

func optionsFromQuery(r *http.Request, room *Room) (GameOptions, bool) {
	room.mu.Lock()
	options := room.Options
	room.mu.Unlock()

	changed := false
	query := r.URL.Query()
	if raw := query.Get("backend"); raw == string(BackendLangflow) || raw == string(BackendAstra) {
		options.Backend = Backend(raw)
		changed = true
	}
	if raw := query.Get("numberOfQuestions"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			options.NumberOfQuestions = value
			changed = true
		}
	}
	if raw := query.Get("roundDurationMs"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			options.RoundDurationMs = value
			changed = true
		}
	}
	return options, changed
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
