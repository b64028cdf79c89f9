// Package store is the persisted-entity contract the sync pipeline writes
// against. Engine specifics stay behind the Store interface; backends exist
// for keyed blob storage and Postgres.
package store

import (
	"context"
	"errors"

	"shelfsync/internal/catalog"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is keyed by (site, origID) for categories and products.
// CreateCategory and CreateProduct are conditional on key absence so
// concurrent crawls cannot double-create a record for the same key.
type Store interface {
	// EnsureSite creates the site if absent and returns the stored record.
	// Attributes of an existing site are never overwritten.
	EnsureSite(ctx context.Context, site catalog.Site) (catalog.Site, error)

	GetCategory(ctx context.Context, site, origID string) (*catalog.Category, error)
	CreateCategory(ctx context.Context, cat catalog.Category) error
	// UpdateCategoryPath rewrites OrigPath only; role, level and parent are
	// fixed at first creation.
	UpdateCategoryPath(ctx context.Context, site, origID, origPath string) error
	RootCategories(ctx context.Context, site string) ([]catalog.Category, error)
	ChildCategories(ctx context.Context, site, parentID string) ([]catalog.Category, error)

	GetProduct(ctx context.Context, site, origID string) (*catalog.Product, error)
	CreateProduct(ctx context.Context, p catalog.Product) error
	// TouchProduct bumps SeenCount without touching price or stock.
	TouchProduct(ctx context.Context, site, origID string) error
	// UpdateProductPricing persists price/stock/variants, the SKU list and
	// the deal flag of an existing product.
	UpdateProductPricing(ctx context.Context, p *catalog.Product) error
	DealProducts(ctx context.Context, site string) ([]catalog.Product, error)
}
