package ws

import (
	"strconv"
	"time"

	"shoply/internal/models"
	"shoply/pkg/i18n"
)

// Server -> client event names.
const (
	EventNotification       = "notification"
	EventSystemNotification = "system_notification"
	EventOrderUpdate        = "order_update"
	EventProductAlert       = "product_alert"
	EventAdminNotification  = "admin_notification"
	EventAuthenticated      = "authenticated"
	EventPong               = "pong"
	EventError              = "error"
)

// Client -> server event names.
const (
	ActionAuthenticate = "authenticate"
	ActionJoin         = "join"
	ActionLeave        = "leave"
	ActionPing         = "ping"
)

// Event is the live wire payload. Delivery is at-most-once and best-effort;
// the durable store is the source of truth.
type Event struct {
	Event     string         `json:"event"`
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type,omitempty"`
	Title     string         `json:"title,omitempty"`
	Message   *i18n.Message  `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}

// EventFromNotification mirrors a persisted row onto the live channel. The
// shared id is what lets the client-side merge collapse the two copies.
func EventFromNotification(name string, n *models.Notification) Event {
	msg := n.Message()
	return Event{
		Event:     name,
		ID:        strconv.FormatUint(uint64(n.ID), 10),
		Type:      n.Type,
		Title:     n.TitleKey,
		Message:   &msg,
		Data:      n.DataMap(),
		Timestamp: n.CreatedAt,
	}
}

// clientMessage is what sessions send us.
type clientMessage struct {
	Event string `json:"event"`
	Token string `json:"token,omitempty"`
	Room  string `json:"room,omitempty"`
}
