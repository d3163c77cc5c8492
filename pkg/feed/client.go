package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"shoply/pkg/i18n"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Options configures a feed client.
type Options struct {
	BaseURL  string // e.g. http://localhost:8090
	WSURL    string // e.g. ws://localhost:8090/ws
	Token    string
	PageSize int
	// Reconnection is bounded: after MaxReconnects failed attempts the
	// client stays on its last durable page plus whatever live events it
	// already holds.
	MaxReconnects int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

func (o *Options) defaults() {
	if o.PageSize == 0 {
		o.PageSize = 20
	}
	if o.MaxReconnects == 0 {
		o.MaxReconnects = 5
	}
	if o.BackoffBase == 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax == 0 {
		o.BackoffMax = 30 * time.Second
	}
}

// Client connects the reconciler to a live server: it dials the push
// channel, mirrors events into the live list, and refreshes the durable
// list over HTTP. OnChange fires after every change to either source.
type Client struct {
	opts     Options
	rec      *Reconciler
	http     *http.Client
	logger   *zap.Logger
	OnChange func()

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	opts.defaults()
	return &Client{
		opts:   opts,
		rec:    NewReconciler(),
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (c *Client) Reconciler() *Reconciler { return c.rec }

func (c *Client) changed() {
	if c.OnChange != nil {
		c.OnChange()
	}
}

// wireEvent mirrors the server's event shape.
type wireEvent struct {
	Event     string         `json:"event"`
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   *i18n.Message  `json:"message"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}

func (e *wireEvent) record() Record {
	r := Record{
		ID:        e.ID,
		Type:      e.Type,
		Title:     e.Title,
		Data:      e.Data,
		Timestamp: e.Timestamp,
		Read:      e.Read,
	}
	if e.Message != nil {
		r.Message = *e.Message
	}
	return r
}

// Connect dials the live channel, authenticates, fetches the durable page
// and keeps reading until ctx is cancelled or reconnects are exhausted.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial durable fetch failed", zap.Error(err))
	}
	go c.readLoop(ctx)
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.opts.WSURL, nil)
	if err != nil {
		return fmt.Errorf("dial live channel: %w", err)
	}
	// authenticate once per connection; the server treats replays as no-ops
	if err := conn.WriteJSON(map[string]string{"event": "authenticate", "token": c.opts.Token}); err != nil {
		conn.Close()
		return fmt.Errorf("authenticate: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !c.reconnect(ctx) {
				c.logger.Warn("live channel lost, showing last known state")
				return
			}
			continue
		}
		var ev wireEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		switch ev.Event {
		case "notification", "system_notification", "order_update", "product_alert", "admin_notification":
			c.rec.AddLive(ev.record())
			c.changed()
		case "pong", "authenticated", "error":
			// control traffic, nothing to merge
		}
	}
}

// reconnect retries with exponential backoff. Every successful reconnect
// re-authenticates and re-fetches the durable list: live events missed
// while disconnected only exist in the store.
func (c *Client) reconnect(ctx context.Context) bool {
	c.closeConn()
	for attempt := 0; attempt < c.opts.MaxReconnects; attempt++ {
		backoff := time.Duration(float64(c.opts.BackoffBase) * math.Pow(2, float64(attempt)))
		if backoff > c.opts.BackoffMax {
			backoff = c.opts.BackoffMax
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		if err := c.dial(ctx); err != nil {
			c.logger.Warn("reconnect failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("post-reconnect fetch failed", zap.Error(err))
		}
		c.changed()
		return true
	}
	return false
}

// Refresh pulls the first durable page and the unread count into the
// reconciler. Call it on load, focus and navigation.
func (c *Client) Refresh(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/v1/me/notifications?page=1&pageSize=%d", c.opts.BaseURL, c.opts.PageSize)
	var body struct {
		Notifications []struct {
			ID        uint           `json:"id"`
			Type      string         `json:"type"`
			Title     string         `json:"title"`
			Message   i18n.Message   `json:"message"`
			Data      map[string]any `json:"data"`
			Read      bool           `json:"read"`
			CreatedAt time.Time      `json:"created_at"`
		} `json:"notifications"`
		UnreadCount int64 `json:"unread_count"`
	}
	if err := c.getJSON(ctx, url, &body); err != nil {
		return err
	}
	records := make([]Record, 0, len(body.Notifications))
	for _, n := range body.Notifications {
		records = append(records, Record{
			ID:        fmt.Sprint(n.ID),
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Data:      n.Data,
			Timestamp: n.CreatedAt,
			Read:      n.Read,
		})
	}
	c.rec.SetDurable(records, body.UnreadCount)
	c.changed()
	return nil
}

// MarkRead dual-routes: live flips always succeed locally; the durable call
// may fail (offline) and can simply be retried via another MarkRead.
func (c *Client) MarkRead(ctx context.Context, ids []string) error {
	err := c.rec.MarkRead(ids, func(durableIDs []string) error {
		numeric := make([]uint64, 0, len(durableIDs))
		for _, id := range durableIDs {
			var n uint64
			if _, err := fmt.Sscanf(id, "%d", &n); err == nil {
				numeric = append(numeric, n)
			}
		}
		if len(numeric) == 0 {
			return nil
		}
		return c.postJSON(ctx, c.opts.BaseURL+"/api/v1/me/notifications/read", map[string]any{"ids": numeric})
	})
	c.changed()
	return err
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	err := c.rec.MarkAllRead(func() error {
		return c.postJSON(ctx, c.opts.BaseURL+"/api/v1/me/notifications/read-all", nil)
	})
	c.changed()
	return err
}

// Ping exercises the health channel; the server answers with a pong.
func (c *Client) Ping() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	return conn.WriteJSON(map[string]string{"event": "ping"})
}

// JoinRoom scopes delivery to an order or product room.
func (c *Client) JoinRoom(room string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	return conn.WriteJSON(map[string]string{"event": "join", "room": room})
}

// Close tears the client down; in-memory live state is discarded.
func (c *Client) Close() {
	c.closeConn()
	c.rec.ClearLive()
}

func (c *Client) closeConn() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, url string, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
