// Package notify maintains the bounded notification collection surfaced to
// the dashboard for high-scoring listings.
package notify

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eivindh/finnscan/internal/storage"
)

// MaxNotifications caps the stored collection; the oldest are dropped.
const MaxNotifications = 100

// Notification is one surfaced alert for a listing that cleared a
// profile's notification threshold.
type Notification struct {
	ID        string    `json:"id"`
	ListingID string    `json:"job_id"`
	ProfileID string    `json:"profile_id"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	Score     int       `json:"score"`
	Threshold int       `json:"threshold"`
	URL       string    `json:"url"`
	Rationale string    `json:"reasoning"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

type collection struct {
	Notifications []Notification `json:"notifications"`
}

// Center stores and serves notifications from one blob.
type Center struct {
	blob storage.Store
	now  func() time.Time
}

// NewCenter creates a notification center over the blob store.
func NewCenter(blob storage.Store) *Center {
	return &Center{blob: blob, now: time.Now}
}

func (c *Center) load(ctx context.Context) (collection, error) {
	var col collection
	err := storage.GetJSON(ctx, c.blob, storage.KeyNotifications, &col)
	if err == storage.ErrNotFound {
		return collection{}, nil
	}
	if err != nil {
		return collection{}, err
	}
	return col, nil
}

func (c *Center) save(ctx context.Context, col collection) error {
	return storage.PutJSON(ctx, c.blob, storage.KeyNotifications, col)
}

// Create assigns an id and timestamp, prepends the notification and trims
// the collection to the cap.
func (c *Center) Create(ctx context.Context, n Notification) (Notification, error) {
	col, err := c.load(ctx)
	if err != nil {
		return Notification{}, err
	}

	n.ID = uuid.NewString()
	n.CreatedAt = c.now()
	n.Read = false

	col.Notifications = append([]Notification{n}, col.Notifications...)
	if len(col.Notifications) > MaxNotifications {
		col.Notifications = col.Notifications[:MaxNotifications]
	}

	if err := c.save(ctx, col); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// List returns up to limit notifications: unread first, each group ordered
// by creation time descending. limit <= 0 returns everything.
func (c *Center) List(ctx context.Context, limit int) ([]Notification, error) {
	col, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	items := col.Notifications
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Read != items[j].Read {
			return !items[i].Read
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// MarkRead flags one notification read by id.
func (c *Center) MarkRead(ctx context.Context, id string) error {
	col, err := c.load(ctx)
	if err != nil {
		return err
	}

	for i := range col.Notifications {
		if col.Notifications[i].ID == id {
			col.Notifications[i].Read = true
			return c.save(ctx, col)
		}
	}
	return fmt.Errorf("notification not found: %s", id)
}

// MarkAllRead flags every notification read.
func (c *Center) MarkAllRead(ctx context.Context) error {
	col, err := c.load(ctx)
	if err != nil {
		return err
	}

	for i := range col.Notifications {
		col.Notifications[i].Read = true
	}
	return c.save(ctx, col)
}

// UnreadCount returns the number of unread notifications.
func (c *Center) UnreadCount(ctx context.Context) (int, error) {
	col, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range col.Notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}
