package sync

import (
	"context"
	"fmt"
	"log/slog"

	"shelfsync/internal/catalog"
)

// refreshDeals re-prices every product flagged as a deal and clears the
// flag. The pass runs over the snapshot of flagged products taken at its
// start; deals created later in the same sync wait for the next run.
// Per-product failures are isolated so one dead record cannot wedge the
// whole pass.
func (r *run) refreshDeals(ctx context.Context) error {
	deals, err := r.store.DealProducts(ctx, r.site.Name)
	if err != nil {
		return fmt.Errorf("list deal products: %w", err)
	}
	slog.InfoContext(ctx, "refreshing deal products", "site", r.site.Name, "count", len(deals))

	for i := range deals {
		if err := r.refreshDeal(ctx, &deals[i]); err != nil {
			slog.ErrorContext(ctx, "skipping deal refresh", "code", deals[i].OrigID, "error", err)
			continue
		}
		r.stats.dealsRefreshed.Add(1)
	}
	return nil
}

// refreshDeal re-fetches detail and pricing for one flagged product. The
// price call uses the product's stored SKU list; detail is consulted only
// to rebuild the attribute maps variants need.
func (r *run) refreshDeal(ctx context.Context, product *catalog.Product) error {
	family, err := r.client.ProductFamily(ctx, product.OrigID)
	if err != nil {
		return fmt.Errorf("fetch detail: %w", err)
	}
	attrsByCode, err := skuAttributes(family.SKUs, optionIndex(family.Options))
	if err != nil {
		return err
	}

	skus := product.SKUList()
	prices, err := r.client.PriceAvailability(ctx, skus)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	if product.IsVariant {
		variants, err := buildVariants(prices.SKUs, attrsByCode)
		if err != nil {
			return err
		}
		product.Variants = variants
	} else {
		if len(prices.SKUs) == 0 {
			return errNoPricedSKUs
		}
		pricing := NormalizePrice(prices.SKUs[0])
		product.RegularPrice = pricing.RegularPrice
		product.SalePrice = pricing.SalePrice
		product.Stock = pricing.Stock
	}

	product.SKUs = catalog.EncodeSKUs(skus)
	product.IsDeal = false
	if err := r.store.UpdateProductPricing(ctx, product); err != nil {
		return fmt.Errorf("persist refreshed pricing: %w", err)
	}
	slog.InfoContext(ctx, "deal refreshed", "code", product.OrigID, "variant", product.IsVariant)
	return nil
}
