package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID   string
	Name string
}

// IngredientRef points at an ingredient consumed by a variation. Stock
// levels live server-side; the client only carries the reference.
type IngredientRef struct {
	ID   string
	Name string
}

type Variation struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Cost        decimal.Decimal
	IsAvailable bool
	Ingredients []IngredientRef
}

type MenuItem struct {
	ID          string
	Name        string
	Description string
	Image       string
	Category    string
	Variations  []Variation

	// IsDisabled is derived at refresh time: true when every variation is
	// unavailable (or there are none). Disabled items cannot enter the cart.
	IsDisabled bool
}

// Variation resolves a variation by id.
func (m MenuItem) Variation(id string) (Variation, bool) {
	for _, v := range m.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// Orderable reports whether the variation exists and is available.
func (m MenuItem) Orderable(variantID string) bool {
	v, ok := m.Variation(variantID)
	return ok && v.IsAvailable
}
