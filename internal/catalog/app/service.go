package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/most4f4/chowhub/internal/catalog/domain"
)

var ErrNotFound = errors.New("not found")

// Snapshot is one consistent view of the catalog. Refresh replaces it
// wholesale; a failed refresh never touches it.
type Snapshot struct {
	Items      []domain.MenuItem
	Categories []domain.Category

	// ByCategory maps category id to the items in it, in fetch order.
	ByCategory map[string][]domain.MenuItem
}

// Service is the in-memory catalog cache. It is safe to refresh repeatedly;
// readers always see either the previous complete snapshot or the new one.
type Service struct {
	fetcher Fetcher
	log     *slog.Logger

	mu   sync.RWMutex
	snap Snapshot
	gen  uint64
}

func NewService(fetcher Fetcher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		fetcher: fetcher,
		log:     log,
		snap:    Snapshot{ByCategory: map[string][]domain.MenuItem{}},
	}
}

// Refresh fetches menu items and categories and swaps the snapshot in one
// step. On any failure the previous snapshot stays intact and the error is
// returned for toast-level reporting. Overlapping refreshes are resolved by
// generation: only the newest one may install its result, so a slow older
// fetch can never clobber fresher data.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	var (
		items      []domain.MenuItem
		categories []domain.Category
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched, err := s.fetcher.FetchMenuItems(ctx)
		if err != nil {
			return fmt.Errorf("fetch menu items: %w", err)
		}
		items = fetched
		return nil
	})
	g.Go(func() error {
		fetched, err := s.fetcher.FetchCategories(ctx)
		if err != nil {
			return fmt.Errorf("fetch categories: %w", err)
		}
		categories = fetched
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	next := Snapshot{
		Items:      make([]domain.MenuItem, len(items)),
		Categories: categories,
		ByCategory: make(map[string][]domain.MenuItem, len(categories)),
	}
	for i, item := range items {
		item.IsDisabled = allUnavailable(item.Variations)
		next.Items[i] = item
		next.ByCategory[item.Category] = append(next.ByCategory[item.Category], item)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.Debug("refresh superseded, result discarded")
		return nil
	}
	s.snap = next
	s.mu.Unlock()

	s.log.Debug("catalog refreshed",
		slog.Int("items", len(next.Items)),
		slog.Int("categories", len(next.Categories)))
	return nil
}

// Snapshot returns the current catalog view.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Item looks up a menu item by id in the current snapshot.
func (s *Service) Item(id string) (domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.snap.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.MenuItem{}, ErrNotFound
}

// ItemsByCategory returns the items grouped under one category.
func (s *Service) ItemsByCategory(categoryID string) []domain.MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.ByCategory[categoryID]
}

func allUnavailable(variations []domain.Variation) bool {
	for _, v := range variations {
		if v.IsAvailable {
			return false
		}
	}
	return true
}
