package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsHub tracks the live connections of every room and assigns each one a
// connection-scoped id. The id is what joinTeam stores as the player id;
// it changes on every reconnect, which is why player identity is the email.
type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]*wsClient
}

// wsClient carries the connection id and the write mutex. Writes come from
// both room generations during a reset, so each connection serializes its
// own frames; gorilla conns do not tolerate concurrent writers.
type wsClient struct {
	id      string
	writeMu sync.Mutex
}

func newWSHub() *wsHub {
	return &wsHub{groups: make(map[string]map[*websocket.Conn]*wsClient)}
}

func (h *wsHub) Add(roomCode string, conn *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomCode]
	if group == nil {
		group = make(map[*websocket.Conn]*wsClient)
		h.groups[roomCode] = group
	}
	client := &wsClient{id: uuid.NewString()}
	group[conn] = client
	return client.id
}

func (h *wsHub) Remove(roomCode string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomCode]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, roomCode)
	}
}

// ConnectionIDs lists the ids of every live connection in a room, for the
// allocator's collision probe.
func (h *wsHub) ConnectionIDs(roomCode string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.groups[roomCode]))
	for _, client := range h.groups[roomCode] {
		ids = append(ids, client.id)
	}
	return ids
}

func (h *wsHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, group := range h.groups {
		total += len(group)
	}
	return total
}

// Broadcast sends the payload to every connection in the room.
func (h *wsHub) Broadcast(roomCode string, payload any) {
	h.mu.Lock()
	targets := make(map[*websocket.Conn]*wsClient, len(h.groups[roomCode]))
	for conn, client := range h.groups[roomCode] {
		targets[conn] = client
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for conn, client := range targets {
		h.write(roomCode, conn, client, data)
	}
}

// SendTo unicasts to a single connection without disturbing the rest of the
// room.
func (h *wsHub) SendTo(roomCode, connID string, payload any) {
	h.mu.Lock()
	var target *websocket.Conn
	var targetClient *wsClient
	for conn, client := range h.groups[roomCode] {
		if client.id == connID {
			target = conn
			targetClient = client
			break
		}
	}
	h.mu.Unlock()
	if target == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.write(roomCode, target, targetClient, data)
}

func (h *wsHub) write(roomCode string, conn *websocket.Conn, client *wsClient, data []byte) {
	client.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, data)
	client.writeMu.Unlock()
	if err != nil {
		h.Remove(roomCode, conn)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomCode, ok := parseRoomWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	room := s.getOrCreateRoom(roomCode)
	connID := s.ws.Add(roomCode, conn)
	metricConnections.Set(float64(s.ws.Count()))
	log.Printf("ws connected room=%s conn_id=%s remote=%s", roomCode, connID, r.RemoteAddr)

	// connect-time snapshot so late joiners render immediately
	s.handleGetState(room, connID)

	go s.readWS(roomCode, connID, conn)
}

// readWS is the per-connection read loop. Every inbound frame is one tagged
// action; the room is re-fetched per message so actions land on the current
// room generation even across a reset.
func (s *Server) readWS(roomCode, connID string, conn *websocket.Conn) {
	defer func() {
		s.ws.Remove(roomCode, conn)
		metricConnections.Set(float64(s.ws.Count()))
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected room=%s conn_id=%s error=%v", roomCode, connID, err)
			return
		}
		room, ok := s.store.Get(roomCode)
		if !ok {
			room = s.getOrCreateRoom(roomCode)
		}
		s.dispatchAction(room, connID, raw)
	}
}
