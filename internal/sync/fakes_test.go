package sync

import (
	"context"
	"errors"

	"shelfsync/internal/cache"
	"shelfsync/internal/catalog"
	"shelfsync/internal/config"
	"shelfsync/internal/ctire"
	"shelfsync/internal/store"
)

// fakeClient satisfies Client with per-test function fields.
type fakeClient struct {
	categoriesFn func(ctx context.Context) ([]ctire.CategoryNode, error)
	searchFn     func(ctx context.Context, categoryID string, level, page int) (*ctire.SearchResults, error)
	familyFn     func(ctx context.Context, code string) (*ctire.ProductFamily, error)
	priceFn      func(ctx context.Context, skus []string) (*ctire.PriceAvailability, error)
}

var errFakeUnset = errors.New("fake client call not configured")

func (f *fakeClient) Categories(ctx context.Context) ([]ctire.CategoryNode, error) {
	if f.categoriesFn == nil {
		return nil, errFakeUnset
	}
	return f.categoriesFn(ctx)
}

func (f *fakeClient) SearchProducts(ctx context.Context, categoryID string, level, page int) (*ctire.SearchResults, error) {
	if f.searchFn == nil {
		return nil, errFakeUnset
	}
	return f.searchFn(ctx, categoryID, level, page)
}

func (f *fakeClient) ProductFamily(ctx context.Context, code string) (*ctire.ProductFamily, error) {
	if f.familyFn == nil {
		return nil, errFakeUnset
	}
	return f.familyFn(ctx, code)
}

func (f *fakeClient) PriceAvailability(ctx context.Context, skus []string) (*ctire.PriceAvailability, error) {
	if f.priceFn == nil {
		return nil, errFakeUnset
	}
	return f.priceFn(ctx, skus)
}

func testStore() store.Store {
	return store.NewBlobStore(cache.NewInMemoryCache())
}

func testSiteConfig() config.Site {
	return config.Site{
		Name:     "ct",
		Domain:   "example.ca",
		URL:      "https://www.example.ca",
		Label:    "CT",
		BannerID: "CTR",
		StoreID:  "33",
		APIKey:   "k",
		APIRoot:  "https://api.example.ca",
	}
}

func testRun(client Client, st store.Store, opts Options) *run {
	return &run{
		Syncer: New(client, st, opts),
		site:   catalog.Site{Name: "ct", Domain: "example.ca", URL: "https://www.example.ca"},
	}
}
