package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	cartdomain "github.com/most4f4/chowhub/internal/cart/domain"
	catalog "github.com/most4f4/chowhub/internal/catalog/domain"
	"github.com/most4f4/chowhub/internal/checkout/domain"
)

type fakeCart struct {
	entries []cartdomain.Entry
	cleared bool
}

func (f *fakeCart) Entries() []cartdomain.Entry {
	out := make([]cartdomain.Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *fakeCart) Clear() {
	f.entries = nil
	f.cleared = true
}

type fakePoster struct {
	calls   int
	err     error
	lastReq domain.CreateOrderRequest

	// When set, CreateOrder signals started and waits for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakePoster) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) error {
	f.calls++
	f.lastReq = req
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return f.err
}

type fakeTaxSource struct {
	rate decimal.Decimal
	err  error
}

func (f *fakeTaxSource) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	return f.rate, f.err
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls++
	return f.err
}

func entry(itemID, variantID, price string, qty int) cartdomain.Entry {
	return cartdomain.Entry{
		Item: catalog.MenuItem{
			ID:   itemID,
			Name: "item-" + itemID,
			Variations: []catalog.Variation{{
				ID:          variantID,
				Name:        "variant-" + variantID,
				Price:       decimal.RequireFromString(price),
				IsAvailable: true,
			}},
		},
		VariantID: variantID,
		Quantity:  qty,
	}
}

func newFixture(entries ...cartdomain.Entry) (*Service, *fakeCart, *fakePoster, *fakeRefresher) {
	cart := &fakeCart{entries: entries}
	poster := &fakePoster{}
	refresher := &fakeRefresher{}
	tax := &fakeTaxSource{rate: decimal.RequireFromString("0.13")}
	svc := NewService(cart, poster, tax, refresher, nil)
	return svc, cart, poster, refresher
}

func TestSubmitSuccess(t *testing.T) {
	svc, cart, poster, refresher := newFixture(
		entry("a", "v1", "10", 2),
		entry("b", "v1", "5.50", 1),
	)
	svc.SetComment("extra napkins")

	if err := svc.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !cart.cleared {
		t.Fatal("expected cart cleared on success")
	}
	if svc.Comment() != "" {
		t.Fatalf("expected comment cleared, got %q", svc.Comment())
	}
	if refresher.calls != 1 {
		t.Fatalf("expected 1 catalog refresh, got %d", refresher.calls)
	}

	req := poster.lastReq
	if req.Subtotal != "25.50" || req.Tax != "3.32" || req.Total != "28.82" {
		t.Fatalf("unexpected totals: subtotal=%s tax=%s total=%s", req.Subtotal, req.Tax, req.Total)
	}
	if req.Comment != "extra napkins" {
		t.Fatalf("comment not sent: %q", req.Comment)
	}
	if req.Reference == "" {
		t.Fatal("expected a client-generated order reference")
	}
	if len(req.LineItems) != 2 || req.LineItems[0].VariationName != "variant-v1" {
		t.Fatalf("unexpected line items: %+v", req.LineItems)
	}
}

func TestSubmitFailurePreservesCart(t *testing.T) {
	svc, cart, poster, refresher := newFixture(entry("a", "v1", "10", 2))
	svc.SetComment("keep me")
	poster.err = errors.New("backend rejected the order")

	err := svc.Submit(context.Background())
	if err == nil {
		t.Fatal("expected submit error")
	}

	if cart.cleared || len(cart.entries) != 1 {
		t.Fatalf("cart must survive a failed submit: cleared=%v entries=%d", cart.cleared, len(cart.entries))
	}
	if svc.Comment() != "keep me" {
		t.Fatalf("comment must survive a failed submit, got %q", svc.Comment())
	}
	if refresher.calls != 0 {
		t.Fatal("no refresh after a failed submit")
	}

	// Manual retry works once the backend recovers.
	poster.err = nil
	if err := svc.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !cart.cleared {
		t.Fatal("expected cart cleared after successful retry")
	}
}

func TestSubmitSingleFlight(t *testing.T) {
	svc, _, poster, _ := newFixture(entry("a", "v1", "10", 1))
	poster.started = make(chan struct{})
	poster.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- svc.Submit(context.Background()) }()

	select {
	case <-poster.started:
	case <-time.After(time.Second):
		t.Fatal("first submit never reached the poster")
	}

	if err := svc.Submit(context.Background()); err != domain.ErrSubmitInFlight {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(poster.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if poster.calls != 1 {
		t.Fatalf("expected exactly 1 create-order call, got %d", poster.calls)
	}
}

func TestSubmitEmptyCart(t *testing.T) {
	svc, _, poster, _ := newFixture()
	if err := svc.Submit(context.Background()); err != domain.ErrEmptyCart {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if poster.calls != 0 {
		t.Fatal("nothing must be sent for an empty cart")
	}
}

func TestSubmitStaleVariant(t *testing.T) {
	stale := entry("a", "v1", "10", 1)
	stale.VariantID = "gone"
	svc, cart, poster, _ := newFixture(stale)

	err := svc.Submit(context.Background())
	if !errors.Is(err, domain.ErrStaleVariant) {
		t.Fatalf("expected ErrStaleVariant, got %v", err)
	}
	if poster.calls != 0 {
		t.Fatal("a stale cart must not be submitted")
	}
	if len(cart.entries) != 1 {
		t.Fatal("cart must survive a rejected submit")
	}
}

func TestSubmitTaxRateFallback(t *testing.T) {
	cart := &fakeCart{entries: []cartdomain.Entry{entry("a", "v1", "100", 1)}}
	poster := &fakePoster{}
	tax := &fakeTaxSource{err: errors.New("restaurant fetch failed")}
	svc := NewService(cart, poster, tax, &fakeRefresher{}, nil)

	if err := svc.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if poster.lastReq.Tax != "13.00" {
		t.Fatalf("expected default 13%% tax, got %s", poster.lastReq.Tax)
	}
}

func TestSubmitRefreshFailureIsNonFatal(t *testing.T) {
	svc, cart, _, refresher := newFixture(entry("a", "v1", "10", 1))
	refresher.err = errors.New("catalog down")

	if err := svc.Submit(context.Background()); err != nil {
		t.Fatalf("submit must succeed despite refresh failure: %v", err)
	}
	if !cart.cleared {
		t.Fatal("expected cart cleared")
	}
}

func TestBuildLineItemsRoundTrip(t *testing.T) {
	entries := []cartdomain.Entry{
		entry("a", "v1", "10", 2),
		entry("b", "v2", "5.50", 1),
		entry("c", "v3", "3.25", 4),
	}

	lines, err := BuildLineItems(entries)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(lines) != len(entries) {
		t.Fatalf("expected %d lines, got %d", len(entries), len(lines))
	}

	byID := map[string]domain.OrderLineItem{}
	for _, line := range lines {
		byID[line.MenuItemID] = line
	}
	for _, e := range entries {
		line, ok := byID[e.Item.ID]
		if !ok {
			t.Fatalf("no line for item %s", e.Item.ID)
		}
		v, _ := e.Item.Variation(e.VariantID)
		if line.Quantity != e.Quantity || line.VariationName != v.Name {
			t.Fatalf("line mismatch for %s: %+v", e.Item.ID, line)
		}
		if !line.SubTotal.Equal(v.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))) {
			t.Fatalf("subtotal mismatch for %s: %s", e.Item.ID, line.SubTotal)
		}
	}
}
