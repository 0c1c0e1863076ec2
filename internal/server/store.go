package server

import (
	"strconv"
	"sync"
	"time"
)

// Room owns one game's canonical state. All mutation happens under mu, so a
// room is effectively single-writer: client actions and timer ticks contend
// on the same lock and never interleave partially. The done channel is the
// lifetime of this room generation; reset closes it before a replacement
// room exists, so a stale ticker can never fire into fresh state.
type Room struct {
	Code string

	mu      sync.Mutex
	State   *GameState
	Options GameOptions

	// single-flight latches
	startQueued bool
	nextQueued  bool

	answerSeq int64
	createdAt time.Time
	done      chan struct{}
}

func NewRoom(code string, options GameOptions, teamCount int) *Room {
	return &Room{
		Code:      code,
		State:     newGameState(options, teamCount),
		Options:   options,
		createdAt: time.Now().UTC(),
		done:      make(chan struct{}),
	}
}

func newGameState(options GameOptions, teamCount int) *GameState {
	teams := make(map[string]*Team, teamCount)
	for i := 1; i <= teamCount; i++ {
		id := strconv.Itoa(i)
		teams[id] = &Team{ID: id, Players: []*Player{}}
	}
	return &GameState{
		Teams:         teams,
		Quotes:        []Quote{},
		TimeRemaining: options.RoundDurationMs,
		TeamAnswers:   []RoundAnswers{},
	}
}

// nextAnswerSeq hands out the monotonic per-room order of team answers.
// Caller holds the room lock.
func (r *Room) nextAnswerSeq() int64 {
	r.answerSeq++
	return r.answerSeq
}

func (r *Room) stopTimers() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

// retired reports whether this room generation has been torn down. Ticks
// and in-flight starts racing a reset check it under the room lock and
// become no-ops instead of mutating a detached generation.
func (r *Room) retired() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// RoomStore maps room codes to live Room instances. Rooms are fully
// independent of each other; the store lock only guards the map itself.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*Room)}
}

func (s *RoomStore) Get(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

// GetOrCreate returns the room for code, constructing it lazily on first
// contact. The second return reports whether the room was created.
func (s *RoomStore) GetOrCreate(code string, options GameOptions, teamCount int) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[code]; ok {
		return room, false
	}
	room := NewRoom(code, options, teamCount)
	s.rooms[code] = room
	return room, true
}

// Replace swaps in a fresh room generation for the same code. The old
// room's timers must already be stopped by the caller.
func (s *RoomStore) Replace(fresh *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[fresh.Code] = fresh
}

func (s *RoomStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
