package domain

import (
	"github.com/shopspring/decimal"

	catalog "github.com/most4f4/chowhub/internal/catalog/domain"
)

// Entry is one (menu item, variation, quantity) selection awaiting
// checkout. At most one entry exists per (Item.ID, VariantID) pair.
type Entry struct {
	Item      catalog.MenuItem
	VariantID string
	Quantity  int
}

// SameLine reports whether another selection merges into this entry.
func (e Entry) SameLine(itemID, variantID string) bool {
	return e.Item.ID == itemID && e.VariantID == variantID
}

// Totals is the priced view of a cart. Amounts stay unrounded; rounding to
// two decimals happens only when formatting for display or submission.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal

	// UnpricedLines counts entries whose variant could not be resolved.
	// They contribute zero to Subtotal; a non-zero count means the cart
	// references variations the catalog no longer has.
	UnpricedLines int
}
