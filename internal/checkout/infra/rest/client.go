package rest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/most4f4/chowhub/internal/checkout/domain"
	"github.com/most4f4/chowhub/pkg/apiclient"
)

type orderLineItemWire struct {
	MenuItemID    string `json:"menuItemId"`
	Name          string `json:"name"`
	VariationName string `json:"variationName"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
	SubTotal      string `json:"subTotal"`
}

type createOrderWire struct {
	Reference      string              `json:"reference"`
	OrderLineItems []orderLineItemWire `json:"orderLineItems"`
	Subtotal       string              `json:"subtotal"`
	Tax            string              `json:"tax"`
	Total          string              `json:"total"`
	Comment        string              `json:"comment,omitempty"`
}

// Poster sends create-order requests to the backend.
type Poster struct {
	client *apiclient.Client
}

func NewPoster(client *apiclient.Client) *Poster {
	return &Poster{client: client}
}

func (p *Poster) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) error {
	wire := createOrderWire{
		Reference:      req.Reference,
		OrderLineItems: make([]orderLineItemWire, 0, len(req.LineItems)),
		Subtotal:       req.Subtotal,
		Tax:            req.Tax,
		Total:          req.Total,
		Comment:        req.Comment,
	}
	for _, line := range req.LineItems {
		wire.OrderLineItems = append(wire.OrderLineItems, orderLineItemWire{
			MenuItemID:    line.MenuItemID,
			Name:          line.Name,
			VariationName: line.VariationName,
			Quantity:      line.Quantity,
			Price:         line.Price.StringFixed(2),
			SubTotal:      line.SubTotal.StringFixed(2),
		})
	}

	var resp struct {
		Success bool `json:"success"`
	}
	return p.client.Post(ctx, "/order/create-order", wire, &resp)
}

// TaxSource reads the restaurant's tax rate. The restaurant id comes from
// the live session, not a value captured at construction.
type TaxSource struct {
	client       *apiclient.Client
	restaurantID func() string
}

func NewTaxSource(client *apiclient.Client, restaurantID func() string) *TaxSource {
	return &TaxSource{client: client, restaurantID: restaurantID}
}

func (t *TaxSource) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	id := t.restaurantID()
	if id == "" {
		return decimal.Zero, fmt.Errorf("no restaurant in session")
	}

	var resp struct {
		Restaurant struct {
			TaxRatePercent *float64 `json:"taxRatePercent"`
		} `json:"restaurant"`
	}
	if err := t.client.Get(ctx, "/restaurant/"+id, &resp); err != nil {
		return decimal.Zero, err
	}

	if resp.Restaurant.TaxRatePercent == nil {
		return domain.DefaultTaxRate, nil
	}
	return decimal.NewFromFloat(*resp.Restaurant.TaxRatePercent).Div(decimal.NewFromInt(100)), nil
}
