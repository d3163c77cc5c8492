package models

import (
	"encoding/json"
	"time"

	"shoply/pkg/i18n"
)

// Notification is the durable record. UserID nil means system-wide: visible
// to every user whose retention window covers CreatedAt.
type Notification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        *uint     `gorm:"index" json:"user_id,omitempty"`
	Type          string    `gorm:"size:32;not null;index" json:"type"`
	TitleKey      string    `gorm:"size:128;not null" json:"title"`
	MessageKey    string    `gorm:"size:128;not null" json:"message_key"`
	MessageParams string    `gorm:"type:text" json:"-"` // JSON-encoded i18n params
	Data          string    `gorm:"type:text" json:"-"` // JSON payload
	Read          bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

type messageParams struct {
	Params   []string             `json:"params,omitempty"`
	Optional []i18n.OptionalParam `json:"optional,omitempty"`
}

// SetMessage stores the deferred-rendering message tuple.
func (n *Notification) SetMessage(m i18n.Message) {
	n.MessageKey = m.Key
	if len(m.Params) == 0 && len(m.Optional) == 0 {
		n.MessageParams = ""
		return
	}
	b, _ := json.Marshal(messageParams{Params: m.Params, Optional: m.Optional})
	n.MessageParams = string(b)
}

// Message reconstructs the tuple for rendering in the viewer's locale.
func (n *Notification) Message() i18n.Message {
	m := i18n.Message{Key: n.MessageKey}
	if n.MessageParams == "" {
		return m
	}
	var p messageParams
	if err := json.Unmarshal([]byte(n.MessageParams), &p); err != nil {
		return m
	}
	m.Params = p.Params
	m.Optional = p.Optional
	return m
}

// SetData stores the structured payload; nil clears it.
func (n *Notification) SetData(data map[string]any) {
	if data == nil {
		n.Data = ""
		return
	}
	b, _ := json.Marshal(data)
	n.Data = string(b)
}

// DataMap decodes the structured payload; empty or malformed data yields nil.
func (n *Notification) DataMap() map[string]any {
	if n.Data == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(n.Data), &m); err != nil {
		return nil
	}
	return m
}
