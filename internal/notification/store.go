package notification

import (
	"slices"
	"sort"
	"sync"
)

// NotificationStore interface defines methods for persisting notifications
type NotificationStore interface {
	Save(notification *Notification) error
	Get(id string) (*Notification, error)
	List(filter *FilterOptions) ([]*Notification, error)
	Update(notification *Notification) error
	Delete(id string) error
	DeleteExpired() error
	GetUnreadCount() (int, error)
}

// InMemoryStore provides a thread-safe in-memory notification store
type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[string]*Notification
	maxSize       int
	unreadCount   int
}

// NewInMemoryStore creates a new in-memory notification store
func NewInMemoryStore(maxSize int) *InMemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}

	return &InMemoryStore{
		notifications: make(map[string]*Notification),
		maxSize:       maxSize,
	}
}

// Save stores a notification, evicting the oldest entry when the store is
// full.
func (s *InMemoryStore) Save(notification *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.notifications) >= s.maxSize {
		s.evictOldestLocked()
	}

	s.notifications[notification.ID] = notification
	if notification.Status == StatusUnread {
		s.unreadCount++
	}
	return nil
}

func (s *InMemoryStore) evictOldestLocked() {
	var oldestID string
	var oldest *Notification
	for id, n := range s.notifications {
		if oldest == nil || n.Timestamp.Before(oldest.Timestamp) {
			oldestID = id
			oldest = n
		}
	}
	if oldest != nil {
		if oldest.Status == StatusUnread {
			s.unreadCount--
		}
		delete(s.notifications, oldestID)
	}
}

// Get retrieves a notification by ID
func (s *InMemoryStore) Get(id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

// List returns notifications matching the filter, newest first.
func (s *InMemoryStore) List(filter *FilterOptions) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if matches(n, filter) {
			out = append(out, n)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if filter != nil && filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(n *Notification, filter *FilterOptions) bool {
	if filter == nil {
		return true
	}
	if len(filter.Types) > 0 && !slices.Contains(filter.Types, n.Type) {
		return false
	}
	if len(filter.Status) > 0 && !slices.Contains(filter.Status, n.Status) {
		return false
	}
	if filter.Component != "" && n.Component != filter.Component {
		return false
	}
	if filter.Since != nil && n.Timestamp.Before(*filter.Since) {
		return false
	}
	return true
}

// Update modifies an existing notification
func (s *InMemoryStore) Update(notification *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notifications[notification.ID]
	if !ok {
		return ErrNotificationNotFound
	}

	if existing.Status == StatusUnread && notification.Status != StatusUnread {
		s.unreadCount--
	} else if existing.Status != StatusUnread && notification.Status == StatusUnread {
		s.unreadCount++
	}

	s.notifications[notification.ID] = notification
	return nil
}

// Delete removes a notification
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	if n.Status == StatusUnread {
		s.unreadCount--
	}
	delete(s.notifications, id)
	return nil
}

// DeleteExpired removes all expired notifications
func (s *InMemoryStore) DeleteExpired() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.notifications {
		if n.IsExpired() {
			if n.Status == StatusUnread {
				s.unreadCount--
			}
			delete(s.notifications, id)
		}
	}
	return nil
}

// GetUnreadCount returns the count of unread notifications
func (s *InMemoryStore) GetUnreadCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadCount, nil
}
