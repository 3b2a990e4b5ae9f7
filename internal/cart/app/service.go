package app

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/most4f4/chowhub/internal/cart/domain"
	catalog "github.com/most4f4/chowhub/internal/catalog/domain"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrItemDisabled    = errors.New("item is disabled")
	ErrNotOrderable    = errors.New("variation is not available")
)

// Service is the cart for a single checkout session. The UI is the only
// writer; the mutex just keeps the library safe for callers that read from
// other goroutines (e.g. the notification ticker).
type Service struct {
	log *slog.Logger

	mu      sync.Mutex
	entries []domain.Entry
}

func NewService(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log}
}

// Add merges a selection into the cart. A selection for an existing
// (item, variation) pair sums quantities instead of appending a duplicate
// row, so the result is the same no matter what order duplicates arrive in.
func (s *Service) Add(item catalog.MenuItem, variantID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if item.IsDisabled {
		return ErrItemDisabled
	}
	if !item.Orderable(variantID) {
		return ErrNotOrderable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].SameLine(item.ID, variantID) {
			s.entries[i].Quantity += quantity
			return nil
		}
	}
	s.entries = append(s.entries, domain.Entry{Item: item, VariantID: variantID, Quantity: quantity})
	return nil
}

// Remove drops the entry at a snapshot index. Out-of-range indices are a
// no-op; callers only remove indices observed from the current snapshot.
func (s *Service) Remove(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.entries) {
		return
	}
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
}

// Clear empties the cart, e.g. after a successful order submission.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Entries returns a copy of the current cart lines.
func (s *Service) Entries() []domain.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Totals prices the cart at the given tax rate. An entry whose variant no
// longer resolves contributes zero and is counted in UnpricedLines; the
// condition is logged because it means the cart is stale against the
// catalog, not that the line is free.
func (s *Service) Totals(taxRate decimal.Decimal) domain.Totals {
	totals := ComputeTotals(s.Entries(), taxRate)
	if totals.UnpricedLines > 0 {
		s.log.Warn("cart references variations missing from the catalog",
			slog.Int("lines", totals.UnpricedLines))
	}
	return totals
}

// ComputeTotals is the pure pricing function over a set of cart lines:
// subtotal = Σ price·quantity, tax = subtotal·rate, total = subtotal + tax.
// Amounts stay unrounded; callers format to two decimals at the boundary.
func ComputeTotals(entries []domain.Entry, taxRate decimal.Decimal) domain.Totals {
	subtotal := decimal.Zero
	unpriced := 0
	for _, e := range entries {
		v, ok := e.Item.Variation(e.VariantID)
		if !ok {
			unpriced++
			continue
		}
		subtotal = subtotal.Add(v.Price.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}

	tax := subtotal.Mul(taxRate)
	return domain.Totals{
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal.Add(tax),
		UnpricedLines: unpriced,
	}
}
