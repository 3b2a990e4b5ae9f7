package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrSubmitInFlight = errors.New("an order submission is already in flight")
	ErrStaleVariant   = errors.New("cart references a variation the catalog no longer has")
)

// DefaultTaxRate applies when the restaurant record carries no tax rate.
var DefaultTaxRate = decimal.RequireFromString("0.13")

// OrderLineItem is the submission-time projection of a cart entry. Variant
// name and price are resolved at build time, never from an earlier read.
type OrderLineItem struct {
	MenuItemID    string
	Name          string
	VariationName string
	Quantity      int
	Price         decimal.Decimal
	SubTotal      decimal.Decimal
}

// CreateOrderRequest is the one create-order call. Totals are already
// formatted to two decimals; this is the submission boundary.
type CreateOrderRequest struct {
	Reference string
	LineItems []OrderLineItem
	Subtotal  string
	Tax       string
	Total     string
	Comment   string
}
