package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartdomain "github.com/most4f4/chowhub/internal/cart/domain"
	"github.com/most4f4/chowhub/internal/checkout/domain"
)

// Service turns the current cart into a persisted order. One submission may
// be outstanding per cart session; the cart is only cleared when the
// backend accepted the order.
type Service struct {
	cart     Cart
	poster   OrderPoster
	taxRates TaxRateSource
	catalog  Refresher
	log      *slog.Logger

	inFlight atomic.Bool

	mu      sync.Mutex
	comment string
}

func NewService(cart Cart, poster OrderPoster, taxRates TaxRateSource, catalog Refresher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cart:     cart,
		poster:   poster,
		taxRates: taxRates,
		catalog:  catalog,
		log:      log,
	}
}

// SetComment stores the optional order comment; it is cleared together with
// the cart once an order goes through.
func (s *Service) SetComment(comment string) {
	s.mu.Lock()
	s.comment = comment
	s.mu.Unlock()
}

func (s *Service) Comment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comment
}

// Submit sends the cart as one create-order request.
//
// Totals are recomputed here from the freshly built line items rather than
// reused from whatever the UI displayed, so what is sent can never drift
// from the cart contents. On success the cart and comment are cleared and
// the catalog refreshed; on failure everything is preserved for a manual
// retry.
func (s *Service) Submit(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return domain.ErrSubmitInFlight
	}
	defer s.inFlight.Store(false)

	entries := s.cart.Entries()
	if len(entries) == 0 {
		return domain.ErrEmptyCart
	}

	lines, err := BuildLineItems(entries)
	if err != nil {
		return err
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.SubTotal)
	}
	taxRate := s.taxRate(ctx)
	tax := subtotal.Mul(taxRate)
	total := subtotal.Add(tax)

	req := domain.CreateOrderRequest{
		Reference: uuid.NewString(),
		LineItems: lines,
		Subtotal:  subtotal.StringFixed(2),
		Tax:       tax.StringFixed(2),
		Total:     total.StringFixed(2),
		Comment:   s.Comment(),
	}

	if err := s.poster.CreateOrder(ctx, req); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	s.cart.Clear()
	s.SetComment("")

	if err := s.catalog.Refresh(ctx); err != nil {
		// The order went through; a failed refresh only delays the
		// availability update.
		s.log.Warn("catalog refresh after order failed", slog.Any("err", err))
	}

	s.log.Info("order submitted",
		slog.String("reference", req.Reference),
		slog.Int("lines", len(lines)),
		slog.String("total", req.Total))
	return nil
}

func (s *Service) taxRate(ctx context.Context) decimal.Decimal {
	rate, err := s.taxRates.TaxRate(ctx)
	if err != nil {
		s.log.Warn("tax rate fetch failed, using default", slog.Any("err", err))
		return domain.DefaultTaxRate
	}
	return rate
}

// BuildLineItems maps cart entries to order line items, resolving each
// variant's name and price at this moment. An entry whose variant no longer
// resolves aborts the build: submitting a half-priced order is worse than
// telling the user the cart went stale.
func BuildLineItems(entries []cartdomain.Entry) ([]domain.OrderLineItem, error) {
	lines := make([]domain.OrderLineItem, 0, len(entries))
	for _, e := range entries {
		v, ok := e.Item.Variation(e.VariantID)
		if !ok {
			return nil, fmt.Errorf("%w: item %s variant %s", domain.ErrStaleVariant, e.Item.ID, e.VariantID)
		}
		lines = append(lines, domain.OrderLineItem{
			MenuItemID:    e.Item.ID,
			Name:          e.Item.Name,
			VariationName: v.Name,
			Quantity:      e.Quantity,
			Price:         v.Price,
			SubTotal:      v.Price.Mul(decimal.NewFromInt(int64(e.Quantity))),
		})
	}
	return lines, nil
}
