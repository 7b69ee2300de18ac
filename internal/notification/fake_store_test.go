package notification

import (
	"context"
	"sort"
	"sync"
)

// fakeStore is an in-memory Store with the same ordering semantics as
// the SQL implementation.
type fakeStore struct {
	mu            sync.Mutex
	notifications map[string][]Notification // deviceID -> entries
	latches       map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notifications: make(map[string][]Notification),
		latches:       make(map[string]string),
	}
}

func (s *fakeStore) Add(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.notifications[n.DeviceID] {
		if existing.Key == n.Key {
			return nil
		}
	}
	s.notifications[n.DeviceID] = append(s.notifications[n.DeviceID], *n)
	return nil
}

func (s *fakeStore) ListBefore(_ context.Context, deviceID, cursor string, limit int) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append([]Notification(nil), s.notifications[deviceID]...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key > entries[j].Key
	})

	var page []Notification
	for _, n := range entries {
		if cursor != "" && n.Key >= cursor {
			continue
		}
		page = append(page, n)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (s *fakeStore) CountUnread(_ context.Context, deviceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.notifications[deviceID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) MarkRead(_ context.Context, deviceID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.notifications[deviceID]
	for i := range entries {
		if entries[i].Key == key {
			entries[i].Read = true
		}
	}
	return nil
}

func (s *fakeStore) BatteryLatch(_ context.Context, deviceID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if latch, ok := s.latches[deviceID]; ok {
		return latch, nil
	}
	return LatchNormal, nil
}

func (s *fakeStore) SetBatteryLatch(_ context.Context, deviceID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latches[deviceID] = status
	return nil
}
