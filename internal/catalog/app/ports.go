package app

import (
	"context"

	"github.com/most4f4/chowhub/internal/catalog/domain"
)

type Fetcher interface {
	FetchMenuItems(ctx context.Context) ([]domain.MenuItem, error)
	FetchCategories(ctx context.Context) ([]domain.Category, error)
}
