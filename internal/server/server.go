package server

import (
	"log"
	"net/http"

	"unreel/internal/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Server struct {
	store  *RoomStore
	db     *gorm.DB
	ws     *wsHub
	cfg    config.Config
	quotes quoteFetcher
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return &Server{
		store:  NewRoomStore(),
		db:     conn,
		ws:     newWSHub(),
		cfg:    cfg,
		quotes: newLangflowFetcher(cfg.QuoteAPIURL, cfg.QuoteManagedAPIURL, cfg.QuoteAPIKey),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/rooms/", s.handleWebsocket)
	mux.HandleFunc("/api/rooms/", s.handleRoomSubroutes)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) defaultOptions() GameOptions {
	return GameOptions{
		Backend:           Backend(s.cfg.Backend),
		NumberOfQuestions: s.cfg.QuestionCount,
		RoundDurationMs:   s.cfg.RoundDurationMs,
	}
}

// getOrCreateRoom provisions a room lazily on first contact, starting its
// timer pair alongside it.
func (s *Server) getOrCreateRoom(code string) *Room {
	room, created := s.store.GetOrCreate(code, s.defaultOptions(), s.cfg.TeamCount)
	if created {
		s.startRoomTimers(room)
		metricActiveRooms.Set(float64(s.store.Count()))
		log.Printf("room created room=%s", code)
		go s.persistEvent(code, "room_created", EventPayload{})
	}
	return room
}
