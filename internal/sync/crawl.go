package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"shelfsync/internal/catalog"
	"shelfsync/internal/ctire"
	"shelfsync/internal/store"
)

var errMissingPagination = errors.New("search response lacks pagination")

// crawlLeaf walks a leaf category's result pages. Pagination.Total is the
// page count, so the crawl issues exactly Total fetches and never advances
// past an unknown total.
func (r *run) crawlLeaf(ctx context.Context, cat catalog.Category) error {
	page := 1
	for {
		slog.InfoContext(ctx, "crawling category page", "category", cat.Name, "page", page)

		results, err := r.fetchPage(ctx, cat, page)
		if err != nil {
			return fmt.Errorf("category %s: sync failed on page %d: %w", cat.OrigID, page, err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.DetailWorkers)
		for _, stub := range results.Products {
			stub := stub
			g.Go(func() error {
				if err := r.ingestProduct(gctx, cat, stub); err != nil {
					// One bad product never stops its page.
					slog.ErrorContext(gctx, "skipping product", "code", stub.Code, "category", cat.OrigID, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()

		if page >= results.Pagination.Total {
			return nil
		}
		page++
	}
}

// fetchPage retries one listing page a bounded number of times with
// exponential backoff before declaring the category failed. A malformed
// envelope without pagination counts as a failed fetch.
func (r *run) fetchPage(ctx context.Context, cat catalog.Category, page int) (*ctire.SearchResults, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 1; ; attempt++ {
		results, err := r.client.SearchProducts(ctx, cat.OrigID, cat.Level, page)
		if err == nil && results.Pagination == nil {
			err = errMissingPagination
		}
		if err == nil {
			return results, nil
		}
		lastErr = err

		if attempt >= r.opts.PageAttempts {
			return nil, lastErr
		}
		slog.WarnContext(ctx, "page fetch failed, retrying", "category", cat.OrigID, "page", page, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// ingestProduct creates one product with full detail, or only confirms
// existence when the (site, origId) is already stored. Pricing of known
// records is refreshed exclusively by the deal pass, so the known path
// issues no detail or price calls at all.
func (r *run) ingestProduct(ctx context.Context, cat catalog.Category, stub ctire.ProductStub) error {
	_, err := r.store.GetProduct(ctx, r.site.Name, stub.Code)
	if err == nil {
		return r.touchExisting(ctx, stub.Code)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("look up product %s: %w", stub.Code, err)
	}

	family, err := r.client.ProductFamily(ctx, stub.Code)
	if err != nil {
		return fmt.Errorf("fetch detail for %s: %w", stub.Code, err)
	}
	skus := lo.Map(family.SKUs, func(sku ctire.FamilySKU, _ int) string {
		return sku.Code
	})
	prices, err := r.client.PriceAvailability(ctx, skus)
	if err != nil {
		return fmt.Errorf("fetch prices for %s: %w", stub.Code, err)
	}

	product, err := assembleProduct(r.site, &cat, family, prices)
	if err != nil {
		return fmt.Errorf("assemble product %s: %w", stub.Code, err)
	}

	err = r.store.CreateProduct(ctx, *product)
	if errors.Is(err, store.ErrAlreadyExists) {
		// A concurrent crawl won the create race; fall back to a touch.
		return r.touchExisting(ctx, stub.Code)
	}
	if err != nil {
		return fmt.Errorf("create product %s: %w", stub.Code, err)
	}

	r.stats.productsCreated.Add(1)
	slog.InfoContext(ctx, "product created", "code", product.OrigID, "name", product.Name, "variant", product.IsVariant)
	return nil
}

func (r *run) touchExisting(ctx context.Context, code string) error {
	if err := r.store.TouchProduct(ctx, r.site.Name, code); err != nil {
		return fmt.Errorf("touch product %s: %w", code, err)
	}
	r.stats.productsSkipped.Add(1)
	return nil
}
