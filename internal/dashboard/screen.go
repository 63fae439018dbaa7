package dashboard

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/cache"
	"github.com/helpinghands/console/internal/listview"
)

// screen is one cached admin list: where its items come from, where they are cached
// and how its view is configured.
type screen[T any] struct {
	cache  *cache.Collection[T]
	id     func(T) int64
	fetch  func(ctx context.Context) ([]T, error)
	config func(now time.Time) listview.Config[T]
	views  *cache.ViewStates
	logger *zap.Logger
}

// Listing is the response of every admin list endpoint.
type Listing[T any] struct {
	listview.Snapshot[T]
	LoadedAt time.Time `json:"loaded_at"`
}

// reload fetches the collection from the backend and replaces the cached copy.
func (s *screen[T]) reload(ctx context.Context) error {
	items, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, items, time.Now()); err != nil {
		// The fresh copy is still good for this request; the next one refetches.
		s.logger.Warn("cache collection failed", zap.String("collection", s.cache.Name()), zap.Error(err))
	}
	return nil
}

// items returns the cached collection, fetching it on a miss.
func (s *screen[T]) items(ctx context.Context) ([]T, time.Time, error) {
	items, loadedAt, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("read cached collection failed", zap.String("collection", s.cache.Name()), zap.Error(err))
	}
	if ok {
		return items, loadedAt, nil
	}
	items, err = s.fetch(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	loadedAt = time.Now()
	if err := s.cache.Set(ctx, items, loadedAt); err != nil {
		s.logger.Warn("cache collection failed", zap.String("collection", s.cache.Name()), zap.Error(err))
	}
	return items, loadedAt, nil
}

// drop removes the item with id from the cached copy.
func (s *screen[T]) drop(ctx context.Context, id int64) error {
	return s.cache.Update(ctx, func(items []T) []T {
		kept := items[:0]
		for _, it := range items {
			if s.id(it) != id {
				kept = append(kept, it)
			}
		}
		return kept
	})
}

// list restores userID's view, applies the query actions, saves the view and renders it.
// A reset query action starts from the default view.
func (s *screen[T]) list(ctx context.Context, userID int64, q url.Values, now time.Time) (*Listing[T], error) {
	items, loadedAt, err := s.items(ctx)
	if err != nil {
		return nil, err
	}
	v := listview.New(s.config(now))
	var state listview.State
	var ok bool
	if q.Has("reset") {
		err = s.views.Reset(ctx, userID, s.cache.Name())
	} else {
		ok, err = s.views.Load(ctx, userID, s.cache.Name(), &state)
	}
	if err != nil {
		s.logger.Warn("load view state failed", zap.Int64("user_id", userID), zap.String("list", s.cache.Name()), zap.Error(err))
	}
	if ok {
		v.Restore(state, items)
	} else {
		v.Load(items)
	}
	v.ApplyQuery(q)
	if err := s.views.Save(ctx, userID, s.cache.Name(), v.State()); err != nil {
		s.logger.Warn("save view state failed", zap.Int64("user_id", userID), zap.String("list", s.cache.Name()), zap.Error(err))
	}
	return &Listing[T]{Snapshot: v.Snapshot(), LoadedAt: loadedAt}, nil
}
