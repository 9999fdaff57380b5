package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/afriverse/gameclient/proto"
)

// Session is one connected player. Profile fields are authoritative
// server state; the client only ever sees them through profile messages.
type Session struct {
	ID string

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu         sync.Mutex
	username   string
	pvpLevel   int
	properties []proto.Property
}

func newSession(conn *websocket.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		ID:       id,
		conn:     conn,
		username: "User-" + id[:8],
		pvpLevel: 1,
	}
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// profile snapshots the session's profile; the daily reward is the sum
// of the rewards of every owned property.
func (s *Session) profile() proto.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	daily := 0
	properties := make([]proto.Property, len(s.properties))
	copy(properties, s.properties)
	for _, p := range properties {
		daily += p.Reward
	}

	return proto.Profile{
		Username:    s.username,
		PvPLevel:    s.pvpLevel,
		Properties:  properties,
		DailyReward: daily,
	}
}

func (s *Session) addProperty(p proto.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = append(s.properties, p)
}

func (s *Session) playerInfo() proto.PlayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return proto.PlayerInfo{ID: s.ID, Username: s.username, PvPLevel: s.pvpLevel}
}

// send marshals v and writes it as one text frame.
func (s *Session) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	slog.Debug("Sent frame", "to", s.ID, "size", len(data))
	return nil
}

// State is the shared in-memory world: connected sessions plus the
// placed buildings.
type State struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	buildings []proto.Building
}

func NewState() *State {
	return &State{sessions: make(map[string]*Session)}
}

func (st *State) add(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

func (st *State) remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *State) get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// others lists every connected player except the given one.
func (st *State) others(excludeID string) []proto.PlayerInfo {
	st.mu.RLock()
	defer st.mu.RUnlock()

	players := make([]proto.PlayerInfo, 0, len(st.sessions))
	for id, s := range st.sessions {
		if id == excludeID {
			continue
		}
		players = append(players, s.playerInfo())
	}
	return players
}

var buildingColors = []string{"#cc6633", "#3366cc", "#33aa66", "#aa3366", "#e0a030"}

// placeBuilding adds a new building somewhere on the plain.
func (st *State) placeBuilding() proto.Building {
	b := proto.Building{
		ID:       "bld-" + uuid.NewString()[:8],
		Position: [3]float64{rand.Float64()*80 - 40, 0, rand.Float64()*80 - 40},
		Color:    buildingColors[rand.Intn(len(buildingColors))],
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.buildings = append(st.buildings, b)
	return b
}

// Buildings returns a copy of the placed buildings.
func (st *State) Buildings() []proto.Building {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]proto.Building, len(st.buildings))
	copy(out, st.buildings)
	return out
}

// broadcast sends v to every connected session.
func (st *State) broadcast(v any) {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.RUnlock()

	for _, s := range sessions {
		if err := s.send(v); err != nil {
			slog.Warn("Failed to broadcast", "to", s.ID, "error", err)
		}
	}
}
