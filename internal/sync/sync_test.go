package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfsync/internal/catalog"
	"shelfsync/internal/config"
	"shelfsync/internal/ctire"
	"shelfsync/internal/store"
)

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls []searchCall
	client := &fakeClient{
		categoriesFn: func(_ context.Context) ([]ctire.CategoryNode, error) {
			return testTree(), nil
		},
		searchFn: searchPages(&calls, 1, map[int][]ctire.ProductStub{
			1: {{Code: "P1"}},
		}),
		familyFn: func(_ context.Context, code string) (*ctire.ProductFamily, error) {
			return familyFor(code), nil
		},
		priceFn: func(_ context.Context, skus []string) (*ctire.PriceAvailability, error) {
			return pricesFor(skus...), nil
		},
	}

	st := testStore()
	stats, err := New(client, st, Options{}).Run(ctx, testSiteConfig())
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.CategoriesCreated)
	// The same stub shows up in all three leaves; it is created once and
	// only touched afterwards.
	assert.Equal(t, int64(1), stats.ProductsCreated)
	assert.Equal(t, int64(2), stats.ProductsSkipped)
	// Three leaves (A1, A2, B) each crawled once.
	assert.Len(t, calls, 3)
	crawled := map[string]bool{}
	for _, call := range calls {
		crawled[call.categoryID] = true
	}
	assert.Equal(t, map[string]bool{"A1": true, "A2": true, "B": true}, crawled)

	site, err := st.EnsureSite(ctx, catalog.Site{Name: "ct"})
	require.NoError(t, err)
	assert.Equal(t, "example.ca", site.Domain, "existing site attributes are kept")

	// Second run: same tree, products deduplicated.
	stats2, err := New(client, st, Options{}).Run(ctx, testSiteConfig())
	require.NoError(t, err)
	assert.Zero(t, stats2.CategoriesCreated)
	assert.Zero(t, stats2.ProductsCreated)
	assert.Equal(t, int64(3), stats2.ProductsSkipped)
}

func TestRun_DealModeRefreshesBeforeCrawl(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := testStore()
	_, err := st.EnsureSite(ctx, catalog.Site{Name: "ct", Domain: "example.ca", URL: "https://www.example.ca"})
	require.NoError(t, err)
	require.NoError(t, st.CreateProduct(ctx, catalog.Product{
		Site: "ct", OrigID: "P1", SKUs: "SKU9", IsDeal: true, Status: catalog.StatusOff,
	}))

	client := &fakeClient{
		categoriesFn: func(_ context.Context) ([]ctire.CategoryNode, error) {
			return nil, nil // nothing to crawl, only the deal pass runs
		},
		familyFn: func(_ context.Context, code string) (*ctire.ProductFamily, error) {
			return familyFor(code), nil
		},
		priceFn: func(_ context.Context, skus []string) (*ctire.PriceAvailability, error) {
			return pricesFor(skus...), nil
		},
	}

	cfg := testSiteConfig()
	cfg.Mode = config.ModeDeal
	stats, err := New(client, st, Options{}).Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.DealsRefreshed)

	p, err := st.GetProduct(ctx, "ct", "P1")
	require.NoError(t, err)
	assert.False(t, p.IsDeal)
}

func TestRun_InvalidConfigAbortsWithoutSideEffects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := testSiteConfig()
	cfg.APIKey = ""

	st := testStore()
	_, err := New(&fakeClient{}, st, Options{}).Run(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"apikey"`)

	// No site record was written.
	_, err = st.GetProduct(ctx, "ct", "anything")
	assert.ErrorIs(t, err, store.ErrNotFound)
	roots, err := st.RootCategories(ctx, "ct")
	require.NoError(t, err)
	assert.Empty(t, roots)
}
