package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"shoply/config"
	"shoply/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Serve upgrades the connection and runs the session until disconnect.
// Clients may pass ?token= for immediate auth or send an authenticate
// message later; either way auth happens once per (connection, user) pair.
func Serve(cfg *config.JWTConfig, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		session := NewSession(uuid.NewString())
		hub.Register(session)
		defer session.Close()

		if token := c.Query("token"); token != "" {
			authenticate(cfg, hub, session, token)
		}

		go writePump(session, conn)
		readPump(cfg, hub, session, conn)
	}
}

func authenticate(cfg *config.JWTConfig, hub *Hub, s *Session, token string) {
	claims, err := auth.ParseAccessToken(cfg, token)
	if err != nil {
		sendEvent(s, Event{Event: EventError, Data: map[string]any{"reason": "invalid token"}, Timestamp: time.Now()})
		return
	}
	if hub.Authenticate(s, claims.UserID, claims.Role) {
		sendEvent(s, Event{
			Event:     EventAuthenticated,
			Data:      map[string]any{"user_id": claims.UserID},
			Timestamp: time.Now(),
		})
	}
	// repeat authenticate for the same pair: silently a no-op
}

func readPump(cfg *config.JWTConfig, hub *Hub, s *Session, conn *websocket.Conn) {
	conn.SetPongHandler(func(string) error {
		s.TouchPong()
		return nil
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Event {
		case ActionAuthenticate:
			authenticate(cfg, hub, s, msg.Token)
		case ActionJoin:
			if s.Authenticated() && ValidRoom(msg.Room) {
				hub.JoinRoom(s, msg.Room)
			}
		case ActionLeave:
			if ValidRoom(msg.Room) {
				hub.LeaveRoom(s, msg.Room)
			}
		case ActionPing:
			s.TouchPong()
			sendEvent(s, Event{Event: EventPong, Timestamp: time.Now()})
		}
	}
}

// writePump copies messages from session.Send to the connection and keeps
// the transport alive with periodic pings.
func writePump(s *Session, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-s.Send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func sendEvent(s *Session, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.trySend(data)
}
