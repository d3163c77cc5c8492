// Package feed reconciles the two notification sources a client sees: the
// durable paginated list and the live push stream. Neither source is ground
// truth on its own (live events have no persistence, durable reads lag behind
// pushes), so the merged view is re-derived from scratch on every change via
// a derived fingerprint rather than trusting either source's identity.
package feed

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"shoply/pkg/i18n"
)

// DedupBucket is the coarseness of the same-occurrence fingerprint. Two
// differently-sourced records for one logical event land within this span.
// It is a tuned heuristic, not a semantic guarantee.
const DedupBucket = 5 * time.Second

const typeProductAlert = "PRODUCT_ALERT"

// Record is one notification as the client sees it, regardless of source.
type Record struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   i18n.Message   `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}

// HasTracking reports whether the record can back a "track package" action:
// both the order reference and the tracking number must be present.
func (r Record) HasTracking() bool {
	return r.Data["trackingNumber"] != nil && r.Data["orderId"] != nil
}

// rich reports whether the record carries the durable copy's identifying
// data. Within a dedup group the rich copy wins.
func (r Record) rich() bool {
	return r.Data["trackingNumber"] != nil || r.Data["orderId"] != nil
}

// fingerprint groups records that describe the same occurrence. Product
// alerts get the product id appended so distinct products firing in the
// same bucket stay distinct.
func (r Record) fingerprint() string {
	key := fmt.Sprintf("%s|%s|%d", r.Type, r.Title, r.Timestamp.Unix()/int64(DedupBucket/time.Second))
	if r.Type == typeProductAlert {
		if pid, ok := r.Data["productId"]; ok {
			key += "|" + fmt.Sprint(pid)
		}
	}
	return key
}

// Reconciler holds both source lists and derives the merged view. It is
// safe for concurrent use, though clients are typically single-threaded.
type Reconciler struct {
	mu            sync.Mutex
	durable       []Record
	live          []Record
	durableUnread int64
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// SetDurable replaces the durable list wholesale; called after every fetch.
func (rc *Reconciler) SetDurable(records []Record, unread int64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.durable = append([]Record(nil), records...)
	rc.durableUnread = unread
}

// AddLive appends a pushed event. A replayed id is dropped, so redelivery
// of the same live event cannot duplicate it.
func (rc *Reconciler) AddLive(r Record) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for _, existing := range rc.live {
		if existing.ID == r.ID {
			return
		}
	}
	rc.live = append(rc.live, r)
}

// ClearLive drops in-memory live state (client teardown).
func (rc *Reconciler) ClearLive() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.live = nil
}

// Merged returns the deduplicated, time-descending view. Durable records are
// scanned first so a group's first-seen member is the durable copy whenever
// one exists.
func (rc *Reconciler) Merged() []Record {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	seen := make(map[string]struct{})
	groups := make(map[string]int)
	var out []Record

	add := func(r Record) {
		if _, dup := seen[r.ID]; dup {
			return
		}
		seen[r.ID] = struct{}{}
		fp := r.fingerprint()
		if i, ok := groups[fp]; ok {
			// prefer the copy carrying durable identifiers; first-seen otherwise
			if !out[i].rich() && r.rich() {
				out[i] = r
			}
			return
		}
		groups[fp] = len(out)
		out = append(out, r)
	}

	for _, r := range rc.durable {
		add(r)
	}
	for _, r := range rc.live {
		add(r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// UnreadCount combines the server-reported durable count with unread live
// events.
func (rc *Reconciler) UnreadCount() int64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	count := rc.durableUnread
	for _, r := range rc.live {
		if !r.Read {
			count++
		}
	}
	return count
}

// MarkRead routes each id to its source: live copies flip in memory only,
// everything else goes to the durable store via remote. Live flips stick
// even when the remote call fails, so an offline mark produces no error;
// the durable half is retried by the caller.
func (rc *Reconciler) MarkRead(ids []string, remote func(durableIDs []string) error) error {
	rc.mu.Lock()
	liveIDs := make(map[string]struct{}, len(rc.live))
	for i := range rc.live {
		liveIDs[rc.live[i].ID] = struct{}{}
	}
	var durableIDs []string
	for _, id := range ids {
		inLive := false
		if _, ok := liveIDs[id]; ok {
			inLive = true
			for i := range rc.live {
				if rc.live[i].ID == id {
					rc.live[i].Read = true
				}
			}
		}
		// an id may exist in both lists (pushed, then fetched); the durable
		// copy still needs the server-side flip
		if !inLive || rc.inDurableLocked(id) {
			durableIDs = append(durableIDs, id)
		}
	}
	rc.mu.Unlock()

	if len(durableIDs) == 0 || remote == nil {
		return nil
	}
	return remote(durableIDs)
}

func (rc *Reconciler) inDurableLocked(id string) bool {
	for i := range rc.durable {
		if rc.durable[i].ID == id {
			return true
		}
	}
	return false
}

// MarkAllRead flips every live record and invokes the durable bulk call.
func (rc *Reconciler) MarkAllRead(remote func() error) error {
	rc.mu.Lock()
	for i := range rc.live {
		rc.live[i].Read = true
	}
	rc.durableUnread = 0
	rc.mu.Unlock()

	if remote == nil {
		return nil
	}
	return remote()
}
