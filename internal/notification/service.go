package notification

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/nutriscan/arnutri-go/internal/errors"
	"github.com/nutriscan/arnutri-go/internal/logging"
)

// Package-level logger specific to the notification service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "notification.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "notification", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize notification file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "notification")
		closeLogger = func() error { return nil }
	}
}

// Defaults for the service configuration.
const (
	DefaultMaxNotifications   = 500
	DefaultCleanupInterval    = 5 * time.Minute
	DefaultRateLimitMaxEvents = 120
	DefaultChannelBufferSize  = 16
	// ScanStatusExpiry bounds how long transient scan status messages
	// stay listable.
	ScanStatusExpiry = 30 * time.Second
)

// Subscriber is one live notification consumer, typically an SSE stream.
type Subscriber struct {
	ch     chan *Notification
	ctx    context.Context
	cancel context.CancelFunc
}

// Service manages notifications, their storage, and live broadcast.
type Service struct {
	store         NotificationStore
	subscribers   []*Subscriber
	subscribersMu sync.RWMutex
	rateLimiter   *RateLimiter
	cleanupTicker *time.Ticker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	debug         bool
}

// ServiceConfig holds the configuration for the notification service.
type ServiceConfig struct {
	// Debug enables debug logging for the service
	Debug bool
	// MaxNotifications is the maximum number of notifications to keep in memory
	MaxNotifications int
	// CleanupInterval is how often to clean up expired notifications
	CleanupInterval time.Duration
	// RateLimitWindow is the time window for rate limiting
	RateLimitWindow time.Duration
	// RateLimitMaxEvents is the maximum number of events per window
	RateLimitMaxEvents int
}

// DefaultServiceConfig returns a default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxNotifications:   DefaultMaxNotifications,
		CleanupInterval:    DefaultCleanupInterval,
		RateLimitWindow:    1 * time.Minute,
		RateLimitMaxEvents: DefaultRateLimitMaxEvents,
	}
}

// NewService creates a new notification service
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	service := &Service{
		store:         NewInMemoryStore(config.MaxNotifications),
		subscribers:   make([]*Subscriber, 0),
		rateLimiter:   NewRateLimiter(config.RateLimitWindow, config.RateLimitMaxEvents),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
		ctx:           ctx,
		cancel:        cancel,
		debug:         config.Debug,
	}

	logger.Info("notification service initialized",
		"max_notifications", config.MaxNotifications,
		"cleanup_interval", config.CleanupInterval,
		"debug", config.Debug)

	service.wg.Add(1)
	go service.cleanupLoop()

	return service
}

// Create adds a new notification and broadcasts it to subscribers.
func (s *Service) Create(notifType Type, priority Priority, title, message string) (*Notification, error) {
	if !s.rateLimiter.Allow() {
		return nil, errors.Newf("notification rate limit exceeded").
			Category(errors.CategoryLimit).
			Component("notification").
			Build()
	}

	notification := NewNotification(notifType, priority, title, message)
	if notifType == TypeScan {
		notification.WithExpiry(ScanStatusExpiry)
	}

	if err := s.store.Save(notification); err != nil {
		return nil, err
	}

	if s.debug {
		logger.Debug("notification created",
			"id", notification.ID,
			"type", notifType,
			"title", title)
	}

	s.broadcast(notification)
	return notification, nil
}

// CreateWithComponent adds a new notification tagged with its source component.
func (s *Service) CreateWithComponent(notifType Type, priority Priority, title, message, component string) (*Notification, error) {
	notification, err := s.Create(notifType, priority, title, message)
	if err != nil {
		return nil, err
	}
	notification.WithComponent(component)
	return notification, s.store.Update(notification)
}

// Info emits a low-priority informational notification.
func (s *Service) Info(title, message string) {
	if _, err := s.Create(TypeInfo, PriorityLow, title, message); err != nil {
		logger.Warn("failed to create info notification", "error", err)
	}
}

// Warn emits a medium-priority warning notification.
func (s *Service) Warn(title, message string) {
	if _, err := s.Create(TypeWarning, PriorityMedium, title, message); err != nil {
		logger.Warn("failed to create warning notification", "error", err)
	}
}

// Error emits a high-priority error notification.
func (s *Service) Error(title, message string) {
	if _, err := s.Create(TypeError, PriorityHigh, title, message); err != nil {
		logger.Warn("failed to create error notification", "error", err)
	}
}

// ScanStatus emits a transient scan status line for the viewfinder.
func (s *Service) ScanStatus(message string) {
	if _, err := s.Create(TypeScan, PriorityLow, "Scanner", message); err != nil {
		logger.Warn("failed to create scan status notification", "error", err)
	}
}

// Get retrieves a notification by ID
func (s *Service) Get(id string) (*Notification, error) {
	return s.store.Get(id)
}

// List returns notifications matching the filter
func (s *Service) List(filter *FilterOptions) ([]*Notification, error) {
	return s.store.List(filter)
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(id string) error {
	notification, err := s.store.Get(id)
	if err != nil {
		return err
	}
	notification.MarkAsRead()
	return s.store.Update(notification)
}

// Delete removes a notification
func (s *Service) Delete(id string) error {
	return s.store.Delete(id)
}

// GetUnreadCount returns the number of unread notifications
func (s *Service) GetUnreadCount() (int, error) {
	return s.store.GetUnreadCount()
}

// Subscribe registers a consumer for live notifications. The returned
// context is cancelled when the subscriber is removed or the service
// stops.
func (s *Service) Subscribe() (<-chan *Notification, context.Context) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	sub := &Subscriber{
		ch:     make(chan *Notification, DefaultChannelBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	s.subscribers = append(s.subscribers, sub)
	return sub.ch, ctx
}

// Unsubscribe removes a notification channel. It cancels the subscriber's
// context but does not close the channel.
func (s *Service) Unsubscribe(ch <-chan *Notification) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for i, subscriber := range s.subscribers {
		if subscriber.ch == ch {
			subscriber.cancel()
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			break
		}
	}
}

// broadcast sends a notification clone to every live subscriber. Slow
// subscribers with full buffers are skipped rather than blocked on.
func (s *Service) broadcast(notification *Notification) {
	s.subscribersMu.RLock()
	defer s.subscribersMu.RUnlock()

	for _, sub := range s.subscribers {
		select {
		case <-sub.ctx.Done():
			continue
		default:
		}

		select {
		case sub.ch <- notification.Clone():
		default:
			if s.debug {
				logger.Debug("subscriber buffer full, dropping notification",
					"id", notification.ID)
			}
		}
	}
}

func (s *Service) cleanupLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.cleanupTicker.C:
			if err := s.store.DeleteExpired(); err != nil {
				logger.Warn("failed to delete expired notifications", "error", err)
			}
		}
	}
}

// Stop shuts down the service and cancels all subscribers.
func (s *Service) Stop() {
	s.cancel()
	s.cleanupTicker.Stop()
	s.wg.Wait()

	s.subscribersMu.Lock()
	for _, sub := range s.subscribers {
		sub.cancel()
	}
	s.subscribers = nil
	s.subscribersMu.Unlock()
}

// RateLimiter caps the number of notifications per time window.
type RateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	maxEvents int
	events    []time.Time
}

// NewRateLimiter creates a sliding-window rate limiter.
func NewRateLimiter(window time.Duration, maxEvents int) *RateLimiter {
	if maxEvents <= 0 {
		maxEvents = DefaultRateLimitMaxEvents
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		window:    window,
		maxEvents: maxEvents,
	}
}

// Allow reports whether another event fits into the current window.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	kept := r.events[:0]
	for _, t := range r.events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.events = kept

	if len(r.events) >= r.maxEvents {
		return false
	}
	r.events = append(r.events, now)
	return true
}
