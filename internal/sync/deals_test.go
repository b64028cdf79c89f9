package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfsync/internal/catalog"
	"shelfsync/internal/ctire"
)

func TestRefreshDeals_Scalar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := testStore()
	_, err := st.EnsureSite(ctx, catalog.Site{Name: "ct"})
	require.NoError(t, err)
	require.NoError(t, st.CreateProduct(ctx, catalog.Product{
		Site: "ct", Category: "CAT1", OrigID: "P1", Name: "Hammer",
		SKUs: "SKU9", Status: catalog.StatusOff,
		RegularPrice: 1, SalePrice: 1, Stock: 1,
		IsDeal: true,
	}))

	var pricedSKUs []string
	client := &fakeClient{
		familyFn: func(_ context.Context, code string) (*ctire.ProductFamily, error) {
			return familyFor(code), nil
		},
		priceFn: func(_ context.Context, skus []string) (*ctire.PriceAvailability, error) {
			pricedSKUs = skus
			return &ctire.PriceAvailability{SKUs: []ctire.SKUPrice{{
				Code:          "SKU9",
				OriginalPrice: &ctire.Money{Value: f64(25)},
				CurrentPrice:  &ctire.Money{Value: f64(20)},
				Fulfillment: &ctire.Fulfillment{Availability: &ctire.Availability{
					Corporate: &ctire.Corporate{Quantity: 3},
				}},
			}}}, nil
		},
	}

	r := testRun(client, st, Options{})
	require.NoError(t, r.refreshDeals(ctx))

	// Pricing comes from the stored SKU list, not the fresh detail fetch.
	assert.Equal(t, []string{"SKU9"}, pricedSKUs)

	p, err := st.GetProduct(ctx, "ct", "P1")
	require.NoError(t, err)
	assert.False(t, p.IsDeal)
	assert.Equal(t, 25.0, p.RegularPrice)
	assert.Equal(t, 20.0, p.SalePrice)
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, int64(1), r.stats.dealsRefreshed.Load())
}

func TestRefreshDeals_Variant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := testStore()
	_, err := st.EnsureSite(ctx, catalog.Site{Name: "ct"})
	require.NoError(t, err)
	require.NoError(t, st.CreateProduct(ctx, catalog.Product{
		Site: "ct", Category: "CAT1", OrigID: "P100", Name: "Trail Jacket",
		SKUs: "SKU1,SKU2,SKU3,SKU4", Status: catalog.StatusOff,
		IsVariant: true,
		Variants:  []catalog.Variant{{SKU: "SKU1", RegularPrice: 1}},
		IsDeal:    true,
	}))

	client := &fakeClient{
		familyFn: func(_ context.Context, _ string) (*ctire.ProductFamily, error) {
			return testFamily2x2(), nil
		},
		priceFn: func(_ context.Context, skus []string) (*ctire.PriceAvailability, error) {
			return pricesFor(skus...), nil
		},
	}

	r := testRun(client, st, Options{})
	require.NoError(t, r.refreshDeals(ctx))

	p, err := st.GetProduct(ctx, "ct", "P100")
	require.NoError(t, err)
	assert.False(t, p.IsDeal)
	require.Len(t, p.Variants, 4)
	assert.Equal(t, "SKU1", p.Variants[0].SKU)
	assert.Equal(t, 10.0, p.Variants[0].RegularPrice)
	assert.Len(t, p.Variants[0].Attributes, 2)
}

func TestRefreshDeals_IsolatesFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := testStore()
	_, err := st.EnsureSite(ctx, catalog.Site{Name: "ct"})
	require.NoError(t, err)
	for _, id := range []string{"DEAD", "LIVE"} {
		require.NoError(t, st.CreateProduct(ctx, catalog.Product{
			Site: "ct", OrigID: id, SKUs: id + "-S", IsDeal: true, Status: catalog.StatusOff,
		}))
	}

	client := &fakeClient{
		familyFn: func(_ context.Context, code string) (*ctire.ProductFamily, error) {
			if code == "DEAD" {
				return nil, errors.New("gone")
			}
			return familyFor(code), nil
		},
		priceFn: func(_ context.Context, skus []string) (*ctire.PriceAvailability, error) {
			return pricesFor(skus...), nil
		},
	}

	r := testRun(client, st, Options{})
	require.NoError(t, r.refreshDeals(ctx))
	assert.Equal(t, int64(1), r.stats.dealsRefreshed.Load())

	dead, err := st.GetProduct(ctx, "ct", "DEAD")
	require.NoError(t, err)
	assert.True(t, dead.IsDeal, "failed refresh keeps the flag for the next pass")

	live, err := st.GetProduct(ctx, "ct", "LIVE")
	require.NoError(t, err)
	assert.False(t, live.IsDeal)
}
