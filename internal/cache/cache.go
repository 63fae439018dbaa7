// Package cache keeps the console's redis-held state: the cached copy of each backend
// collection, every user's list view state and the last known current user.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/pkg/redis"
)

const keyPrefix = "console:"

// Collection names.
const (
	Users           = "users"
	Organizations   = "organizations"
	Events          = "events"
	Tags            = "tags"
	SupportMessages = "support_messages"
)

// Collection is the cached, possibly stale copy of one backend collection shared by
// every admin dashboard.
type Collection[T any] struct {
	store redis.JSONStore
	name  string
	ttl   time.Duration
}

type snapshot[T any] struct {
	Items    []T       `json:"items"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewCollection creates a cached collection under name.
func NewCollection[T any](store redis.JSONStore, name string, ttl time.Duration) *Collection[T] {
	return &Collection[T]{store: store, name: name, ttl: ttl}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) key() string { return keyPrefix + "collection:" + c.name }

// Get returns the cached items and when they were loaded. ok is false on a miss.
func (c *Collection[T]) Get(ctx context.Context) (items []T, loadedAt time.Time, ok bool, err error) {
	var s snapshot[T]
	ok, err = c.store.GetJSON(ctx, c.key(), &s)
	if err != nil || !ok {
		return nil, time.Time{}, false, err
	}
	if s.Items == nil {
		s.Items = []T{}
	}
	return s.Items, s.LoadedAt, true, nil
}

// Set replaces the cached items.
func (c *Collection[T]) Set(ctx context.Context, items []T, loadedAt time.Time) error {
	if items == nil {
		items = []T{}
	}
	return c.store.SetJSON(ctx, c.key(), snapshot[T]{Items: items, LoadedAt: loadedAt}, c.ttl)
}

// Update applies fn to the cached items when they are present. It is used for
// optimistic edits between a mutation and the reload that follows it.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) []T) error {
	items, loadedAt, ok, err := c.Get(ctx)
	if err != nil || !ok {
		return err
	}
	return c.Set(ctx, fn(items), loadedAt)
}

// Invalidate drops the cached items so the next read reloads them.
func (c *Collection[T]) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, c.key())
}

// ViewStates persists each user's state per list so views survive between requests.
type ViewStates struct {
	store redis.JSONStore
	ttl   time.Duration
}

// NewViewStates creates a view state store.
func NewViewStates(store redis.JSONStore, ttl time.Duration) *ViewStates {
	return &ViewStates{store: store, ttl: ttl}
}

func viewKey(userID int64, list string) string {
	return fmt.Sprintf("%sview:%d:%s", keyPrefix, userID, list)
}

// Load decodes the saved state of list into v. It reports false when nothing is saved.
func (s *ViewStates) Load(ctx context.Context, userID int64, list string, v any) (bool, error) {
	return s.store.GetJSON(ctx, viewKey(userID, list), v)
}

// Save stores the state of list.
func (s *ViewStates) Save(ctx context.Context, userID int64, list string, v any) error {
	return s.store.SetJSON(ctx, viewKey(userID, list), v, s.ttl)
}

// Reset forgets the state of list.
func (s *ViewStates) Reset(ctx context.Context, userID int64, list string) error {
	return s.store.Delete(ctx, viewKey(userID, list))
}

// Sessions remembers the last user record fetched for each user id, so the profile
// screen still has something to show when the backend is briefly unreachable.
type Sessions struct {
	store redis.JSONStore
	ttl   time.Duration
}

// NewSessions creates a current-user store.
func NewSessions(store redis.JSONStore, ttl time.Duration) *Sessions {
	return &Sessions{store: store, ttl: ttl}
}

func sessionKey(userID int64) string {
	return keyPrefix + "session:" + strconv.FormatInt(userID, 10)
}

// Get returns the stored user, or nil.
func (s *Sessions) Get(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	ok, err := s.store.GetJSON(ctx, sessionKey(userID), &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// Save stores u.
func (s *Sessions) Save(ctx context.Context, u *models.User) error {
	return s.store.SetJSON(ctx, sessionKey(u.ID), u, s.ttl)
}

// Delete forgets the stored user.
func (s *Sessions) Delete(ctx context.Context, userID int64) error {
	return s.store.Delete(ctx, sessionKey(userID))
}
