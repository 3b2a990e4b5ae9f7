package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/most4f4/chowhub/internal/catalog/domain"
)

type fakeFetcher struct {
	items      []domain.MenuItem
	categories []domain.Category
	itemsErr   error
	catErr     error
}

func (f *fakeFetcher) FetchMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	return f.items, f.itemsErr
}

func (f *fakeFetcher) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	return f.categories, f.catErr
}

func variation(id string, available bool) domain.Variation {
	return domain.Variation{ID: id, Name: id, Price: decimal.NewFromInt(5), IsAvailable: available}
}

func TestRefreshDisabledDerivation(t *testing.T) {
	f := &fakeFetcher{
		items: []domain.MenuItem{
			{ID: "m1", Category: "c1", Variations: []domain.Variation{variation("v1", false), variation("v2", false)}},
			{ID: "m2", Category: "c1", Variations: []domain.Variation{variation("v1", false), variation("v2", true)}},
			{ID: "m3", Category: "c2"},
		},
		categories: []domain.Category{{ID: "c1", Name: "Mains"}, {ID: "c2", Name: "Sides"}},
	}
	svc := NewService(f, nil)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	t.Run("all variations unavailable -> disabled", func(t *testing.T) {
		item, err := svc.Item("m1")
		if err != nil {
			t.Fatalf("item lookup: %v", err)
		}
		if !item.IsDisabled {
			t.Fatal("expected m1 disabled")
		}
	})

	t.Run("one available variation -> enabled", func(t *testing.T) {
		item, err := svc.Item("m2")
		if err != nil {
			t.Fatalf("item lookup: %v", err)
		}
		if item.IsDisabled {
			t.Fatal("expected m2 enabled")
		}
	})

	t.Run("no variations -> disabled", func(t *testing.T) {
		item, err := svc.Item("m3")
		if err != nil {
			t.Fatalf("item lookup: %v", err)
		}
		if !item.IsDisabled {
			t.Fatal("expected m3 disabled")
		}
	})
}

func TestRefreshGroupsByCategory(t *testing.T) {
	f := &fakeFetcher{
		items: []domain.MenuItem{
			{ID: "m1", Category: "c1"},
			{ID: "m2", Category: "c2"},
			{ID: "m3", Category: "c1"},
		},
		categories: []domain.Category{{ID: "c1"}, {ID: "c2"}},
	}
	svc := NewService(f, nil)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	grouped := svc.ItemsByCategory("c1")
	if len(grouped) != 2 || grouped[0].ID != "m1" || grouped[1].ID != "m3" {
		t.Fatalf("unexpected grouping: %+v", grouped)
	}
	if got := svc.ItemsByCategory("missing"); len(got) != 0 {
		t.Fatalf("expected empty group, got %+v", got)
	}
}

// gatedFetcher blocks the first menu fetch until released so the test can
// interleave a second refresh with it.
type gatedFetcher struct {
	mu         sync.Mutex
	items      []domain.MenuItem
	categories []domain.Category

	entered chan struct{} // closed when the gated fetch starts
	gate    chan struct{} // the gated fetch waits on this once
	gated   bool
}

func (g *gatedFetcher) FetchMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	g.mu.Lock()
	wait := g.gated
	g.gated = false
	items := g.items
	g.mu.Unlock()

	if wait {
		close(g.entered)
		<-g.gate
	}
	return items, nil
}

func (g *gatedFetcher) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.categories, nil
}

func (g *gatedFetcher) setItems(items []domain.MenuItem) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items = items
}

func TestRefreshSupersededResultDiscarded(t *testing.T) {
	slow := &gatedFetcher{
		items:      []domain.MenuItem{{ID: "old", Category: "c1"}},
		categories: []domain.Category{{ID: "c1"}},
		entered:    make(chan struct{}),
		gate:       make(chan struct{}),
		gated:      true,
	}
	svc := NewService(slow, nil)

	done := make(chan error, 1)
	go func() { done <- svc.Refresh(context.Background()) }()
	<-slow.entered

	// A newer refresh completes while the first still holds its old data.
	slow.setItems([]domain.MenuItem{{ID: "new", Category: "c1"}})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	close(slow.gate)
	if err := <-done; err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	snap := svc.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != "new" {
		t.Fatalf("older refresh overwrote newer data: %+v", snap.Items)
	}
}

func TestRefreshFailureKeepsLastGood(t *testing.T) {
	f := &fakeFetcher{
		items:      []domain.MenuItem{{ID: "m1", Category: "c1", Variations: []domain.Variation{variation("v1", true)}}},
		categories: []domain.Category{{ID: "c1"}},
	}
	svc := NewService(f, nil)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("seed refresh failed: %v", err)
	}

	f.itemsErr = errors.New("backend down")
	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	snap := svc.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != "m1" {
		t.Fatalf("snapshot lost after failed refresh: %+v", snap.Items)
	}

	// Category failure alone must also leave the snapshot untouched.
	f.itemsErr = nil
	f.catErr = errors.New("backend down")
	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := svc.Snapshot(); len(got.Categories) != 1 {
		t.Fatalf("categories lost after failed refresh: %+v", got.Categories)
	}
}
