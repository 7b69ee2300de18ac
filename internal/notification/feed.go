package notification

import (
	"context"
	"sync"
)

// PageSize is the fixed number of notifications per feed page.
const PageSize = 10

// Feed serves a device's notification log in reverse-chronological
// pages. The cursor is the oldest key loaded so far; each subsequent
// page fetches entries strictly before it.
type Feed struct {
	store    Store
	deviceID string

	mu      sync.Mutex
	loading bool
	cursor  string
	loaded  int
}

func NewFeed(store Store, deviceID string) *Feed {
	return &Feed{
		store:    store,
		deviceID: deviceID,
	}
}

// LoadPage fetches the next page. With initial=true the newest
// PageSize entries are returned and the cursor reset; otherwise the
// page strictly before the current cursor is returned. Concurrent
// invocations and paging past the start both return an empty page.
func (f *Feed) LoadPage(ctx context.Context, initial bool) ([]Notification, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil, nil
	}
	if !initial && f.cursor == "" {
		f.mu.Unlock()
		return nil, nil
	}
	f.loading = true
	cursor := f.cursor
	if initial {
		cursor = ""
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.loading = false
		f.mu.Unlock()
	}()

	notifications, err := f.store.ListBefore(ctx, f.deviceID, cursor, PageSize)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if initial {
		f.loaded = 0
		f.cursor = ""
	}
	f.loaded += len(notifications)
	if len(notifications) > 0 {
		// Descending order: the last entry is the oldest loaded key.
		f.cursor = notifications[len(notifications)-1].Key
	} else if !initial {
		f.cursor = ""
	}
	f.mu.Unlock()

	return notifications, nil
}

// UnreadCount recomputes the unread total over the whole log.
func (f *Feed) UnreadCount(ctx context.Context) (int64, error) {
	return f.store.CountUnread(ctx, f.deviceID)
}

// MarkRead flips a single notification to read.
func (f *Feed) MarkRead(ctx context.Context, key string) error {
	return f.store.MarkRead(ctx, f.deviceID, key)
}

// Loaded returns how many notifications have been served so far.
func (f *Feed) Loaded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}
