package rest

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/most4f4/chowhub/internal/catalog/domain"
	"github.com/most4f4/chowhub/pkg/apiclient"
)

// Fetcher loads the catalog from the ChowHub backend.
type Fetcher struct {
	client *apiclient.Client
}

func NewFetcher(client *apiclient.Client) *Fetcher {
	return &Fetcher{client: client}
}

type ingredientRefWire struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type variationWire struct {
	ID          string              `json:"_id"`
	Name        string              `json:"name"`
	Price       decimal.Decimal     `json:"price"`
	Cost        decimal.Decimal     `json:"cost"`
	IsAvailable bool                `json:"isAvailable"`
	Ingredients []ingredientRefWire `json:"ingredients"`
}

type menuItemWire struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Variations  []variationWire `json:"variations"`
}

type categoryWire struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func (f *Fetcher) FetchMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	var resp struct {
		MenuItems []menuItemWire `json:"menuItems"`
	}
	if err := f.client.Get(ctx, "/menu-management", &resp); err != nil {
		return nil, err
	}

	items := make([]domain.MenuItem, 0, len(resp.MenuItems))
	for _, w := range resp.MenuItems {
		variations := make([]domain.Variation, 0, len(w.Variations))
		for _, vw := range w.Variations {
			ingredients := make([]domain.IngredientRef, 0, len(vw.Ingredients))
			for _, iw := range vw.Ingredients {
				ingredients = append(ingredients, domain.IngredientRef{ID: iw.ID, Name: iw.Name})
			}
			variations = append(variations, domain.Variation{
				ID:          vw.ID,
				Name:        vw.Name,
				Price:       vw.Price,
				Cost:        vw.Cost,
				IsAvailable: vw.IsAvailable,
				Ingredients: ingredients,
			})
		}
		items = append(items, domain.MenuItem{
			ID:          w.ID,
			Name:        w.Name,
			Description: w.Description,
			Image:       w.Image,
			Category:    w.Category,
			Variations:  variations,
		})
	}
	return items, nil
}

func (f *Fetcher) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	var resp struct {
		Categories []categoryWire `json:"categories"`
	}
	if err := f.client.Get(ctx, "/categories", &resp); err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(resp.Categories))
	for _, w := range resp.Categories {
		categories = append(categories, domain.Category{ID: w.ID, Name: w.Name})
	}
	return categories, nil
}
