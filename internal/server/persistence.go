package server

import (
	"encoding/json"
	"log"
	"time"

	"unreel/internal/db"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// persistPlayers upserts every player by email and bumps their play
// counter. Called fire-and-forget at game start: failures are logged for
// operators and never surfaced to players.
func (s *Server) persistPlayers(emails []string) {
	if s.db == nil {
		return
	}
	now := time.Now().UTC()
	for _, email := range emails {
		record := db.Player{
			Email:        email,
			Plays:        1,
			LastPlayedAt: now,
		}
		err := s.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.Assignments(map[string]any{
				"plays":          gorm.Expr("players.plays + 1"),
				"last_played_at": now,
			}),
		}).Create(&record).Error
		if err != nil {
			log.Printf("player upsert failed email=%s error=%v", email, err)
		}
	}
}

// persistEvent records a room lifecycle event for operator visibility.
// Advisory only; a nil db handle makes it a no-op.
func (s *Server) persistEvent(roomCode, eventType string, payload EventPayload) {
	if s.db == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("event payload marshal failed room=%s type=%s error=%v", roomCode, eventType, err)
		return
	}
	record := db.Event{
		RoomCode: roomCode,
		Type:     eventType,
		Payload:  datatypes.JSON(data),
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("event insert failed room=%s type=%s error=%v", roomCode, eventType, err)
	}
}
