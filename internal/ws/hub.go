package ws

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"shoply/internal/domain"
	"shoply/internal/metrics"
)

// Session represents a single live connection with its auth and room state.
type Session struct {
	ID   string
	Send chan []byte

	hub    *Hub
	mu     sync.Mutex
	closed bool

	userID        uint
	role          string
	authenticated bool
	lastPong      time.Time
}

func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		Send:     make(chan []byte, 256),
		lastPong: time.Now(),
	}
}

// UserID returns the bound user id, 0 while unauthenticated.
func (s *Session) UserID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// TouchPong records liveness; StaleSessions reads it.
func (s *Session) TouchPong() {
	s.mu.Lock()
	s.lastPong = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastPong() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPong
}

// trySend enqueues without blocking. Reports false when the session is
// closed or its buffer is full. Holding s.mu across the send is what makes
// Close safe: close(s.Send) cannot run between the closed check and the send.
func (s *Session) trySend(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.Send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.Send)
	s.mu.Unlock()
	if s.hub != nil {
		s.hub.unregister(s)
	}
}

// Hub maintains connected sessions and fans events out to them by user,
// role, room, or broadcast. All sends are non-blocking: a session whose
// buffer is full simply misses the event (durability lives in the store).
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	byUser   map[uint]map[*Session]struct{}
	rooms    map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		byUser:   make(map[uint]map[*Session]struct{}),
		rooms:    make(map[string]map[*Session]struct{}),
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.hub = h
	h.sessions[s] = struct{}{}
	metrics.LiveSessions.Inc()
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	h.removeUserLocked(s)
	for room, members := range h.rooms {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	metrics.LiveSessions.Dec()
}

func (h *Hub) removeUserLocked(s *Session) {
	s.mu.Lock()
	uid := s.userID
	s.mu.Unlock()
	if m := h.byUser[uid]; m != nil {
		delete(m, s)
		if len(m) == 0 {
			delete(h.byUser, uid)
		}
	}
}

// Authenticate binds a user to a session. It is a no-op when the same
// (session, user) pair is already bound, so reconnect storms replaying the
// handshake cause no duplicate side effects. A different user id on the same
// session re-binds. Returns true when the binding is new.
func (h *Hub) Authenticate(s *Session, userID uint, role string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.mu.Lock()
	if s.authenticated && s.userID == userID {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()
	h.removeUserLocked(s)
	s.mu.Lock()
	s.userID = userID
	s.role = role
	s.authenticated = true
	s.mu.Unlock()
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Session]struct{})
	}
	h.byUser[userID][s] = struct{}{}
	return true
}

// ValidRoom restricts membership to the two scoping namespaces.
func ValidRoom(room string) bool {
	return strings.HasPrefix(room, "order:") || strings.HasPrefix(room, "product:")
}

// JoinRoom is idempotent.
func (h *Hub) JoinRoom(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][s] = struct{}{}
}

// LeaveRoom is idempotent.
func (h *Hub) LeaveRoom(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members := h.rooms[room]; members != nil {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// StaleSessions counts sessions whose last pong is older than maxAge. The
// write pump pings every 30s, so a healthy session never falls far behind.
func (h *Hub) StaleSessions(maxAge time.Duration) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cutoff := time.Now().Add(-maxAge)
	n := 0
	for s := range h.sessions {
		if s.LastPong().Before(cutoff) {
			n++
		}
	}
	return n
}

// deliver marshals once and pushes to a snapshot of targets.
func deliver(targets []*Session, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	for _, s := range targets {
		if s.trySend(data) {
			metrics.LiveEventsSentTotal.Inc()
		} else {
			metrics.LiveEventsDroppedTotal.Inc()
		}
	}
}

func (h *Hub) userSnapshot(userID uint) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m := h.byUser[userID]
	out := make([]*Session, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	return out
}

func (h *Hub) allSnapshot() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		out = append(out, s)
	}
	return out
}

func (h *Hub) roomSnapshot(room string) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m := h.rooms[room]
	out := make([]*Session, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	return out
}

func (h *Hub) roleSnapshot(role string) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0)
	for s := range h.sessions {
		if s.Role() == role {
			out = append(out, s)
		}
	}
	return out
}

// NotifyUser delivers to every session of one user.
func (h *Hub) NotifyUser(userID uint, ev Event) {
	deliver(h.userSnapshot(userID), ev)
}

// NotifySystem broadcasts to all connected sessions.
func (h *Hub) NotifySystem(ev Event) {
	deliver(h.allSnapshot(), ev)
}

// NotifyAdmins delivers to admin-role sessions only.
func (h *Hub) NotifyAdmins(ev Event) {
	deliver(h.roleSnapshot(domain.RoleAdmin), ev)
}

// NotifyOrderUpdate targets the purchaser's sessions plus anyone watching
// the order room, without double-sending to sessions in both sets.
func (h *Hub) NotifyOrderUpdate(orderID string, userID uint, ev Event) {
	seen := make(map[*Session]struct{})
	var targets []*Session
	for _, s := range h.userSnapshot(userID) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			targets = append(targets, s)
		}
	}
	for _, s := range h.roomSnapshot("order:" + orderID) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			targets = append(targets, s)
		}
	}
	deliver(targets, ev)
}

// NotifyProductAlert targets the product room plus admin sessions; with a
// zero product id it broadcasts.
func (h *Hub) NotifyProductAlert(productID uint, ev Event) {
	if productID == 0 {
		h.NotifySystem(ev)
		return
	}
	seen := make(map[*Session]struct{})
	var targets []*Session
	for _, s := range h.roomSnapshot("product:" + strconv.FormatUint(uint64(productID), 10)) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			targets = append(targets, s)
		}
	}
	for _, s := range h.roleSnapshot(domain.RoleAdmin) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			targets = append(targets, s)
		}
	}
	deliver(targets, ev)
}
