package app

import (
	"context"

	"github.com/shopspring/decimal"

	cartdomain "github.com/most4f4/chowhub/internal/cart/domain"
	"github.com/most4f4/chowhub/internal/checkout/domain"
)

type OrderPoster interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) error
}

// TaxRateSource yields the current restaurant's tax rate as a fraction
// (0.13, not 13).
type TaxRateSource interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

type Cart interface {
	Entries() []cartdomain.Entry
	Clear()
}

// Refresher is the catalog refresh triggered after a successful order, so
// availability changes driven by consumed ingredients show up immediately.
type Refresher interface {
	Refresh(ctx context.Context) error
}
