// Package sync implements the catalog synchronization pipeline: category
// tree reconciliation, paginated product discovery with bounded retry, and
// product/variant/price normalization into the entity store. Repeated runs
// are idempotent; a re-crawl confirms existence without rewriting pricing
// unless a record carries the deal flag.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"shelfsync/internal/catalog"
	"shelfsync/internal/config"
	"shelfsync/internal/ctire"
	"shelfsync/internal/store"
)

// Client is the upstream surface the pipeline consumes.
type Client interface {
	Categories(ctx context.Context) ([]ctire.CategoryNode, error)
	SearchProducts(ctx context.Context, categoryID string, level, page int) (*ctire.SearchResults, error)
	ProductFamily(ctx context.Context, code string) (*ctire.ProductFamily, error)
	PriceAvailability(ctx context.Context, skus []string) (*ctire.PriceAvailability, error)
}

// Options tune a Syncer. Zero values mean the sequential defaults.
type Options struct {
	// DetailWorkers bounds concurrent product-detail fetches within a page.
	// 1 reproduces the sequential reference behavior.
	DetailWorkers int
	// PageAttempts bounds retries of one listing page before the category
	// sync fails.
	PageAttempts int
}

const (
	defaultDetailWorkers = 1
	defaultPageAttempts  = 4
)

type Syncer struct {
	client Client
	store  store.Store
	opts   Options
}

func New(client Client, st store.Store, opts Options) *Syncer {
	if opts.DetailWorkers <= 0 {
		opts.DetailWorkers = defaultDetailWorkers
	}
	if opts.PageAttempts <= 0 {
		opts.PageAttempts = defaultPageAttempts
	}
	return &Syncer{client: client, store: st, opts: opts}
}

// Stats aggregates what one Run did.
type Stats struct {
	CategoriesSeen    int64
	CategoriesCreated int64
	ProductsCreated   int64
	ProductsSkipped   int64
	DealsRefreshed    int64
}

type counters struct {
	categoriesSeen    atomic.Int64
	categoriesCreated atomic.Int64
	productsCreated   atomic.Int64
	productsSkipped   atomic.Int64
	dealsRefreshed    atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		CategoriesSeen:    c.categoriesSeen.Load(),
		CategoriesCreated: c.categoriesCreated.Load(),
		ProductsCreated:   c.productsCreated.Load(),
		ProductsSkipped:   c.productsSkipped.Load(),
		DealsRefreshed:    c.dealsRefreshed.Load(),
	}
}

// run carries the per-invocation state so Syncer stays reusable across
// sites and concurrent Runs.
type run struct {
	*Syncer
	site  catalog.Site
	stats counters
}

// Run synchronizes one configured site end to end: ensure the site record,
// reconcile the category tree, optionally refresh deal-flagged products,
// then crawl every leaf category.
func (s *Syncer) Run(ctx context.Context, cfg config.Site) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}

	site, err := s.store.EnsureSite(ctx, catalog.Site{Name: cfg.Name, Domain: cfg.Domain, URL: cfg.URL})
	if err != nil {
		return Stats{}, fmt.Errorf("ensure site %s: %w", cfg.Name, err)
	}

	r := &run{Syncer: s, site: site}

	roots, err := s.client.Categories(ctx)
	if err != nil {
		return r.stats.snapshot(), fmt.Errorf("fetch categories: %w", err)
	}
	if err := r.syncCategoryTree(ctx, roots); err != nil {
		return r.stats.snapshot(), err
	}

	if cfg.Mode == config.ModeDeal {
		if err := r.refreshDeals(ctx); err != nil {
			return r.stats.snapshot(), err
		}
	}

	rootCats, err := s.store.RootCategories(ctx, site.Name)
	if err != nil {
		return r.stats.snapshot(), fmt.Errorf("list root categories: %w", err)
	}
	for _, cat := range rootCats {
		if err := r.crawlTree(ctx, cat); err != nil {
			return r.stats.snapshot(), err
		}
	}

	stats := r.stats.snapshot()
	slog.InfoContext(ctx, "sync finished", "site", site.Name,
		"categories_seen", stats.CategoriesSeen, "categories_created", stats.CategoriesCreated,
		"products_created", stats.ProductsCreated, "products_skipped", stats.ProductsSkipped,
		"deals_refreshed", stats.DealsRefreshed)
	return stats, nil
}

// crawlTree walks the stored category tree depth first and crawls every
// leaf. Depth matches the upstream tree, so plain recursion is fine here.
func (r *run) crawlTree(ctx context.Context, cat catalog.Category) error {
	if cat.Role == catalog.RoleNode {
		children, err := r.store.ChildCategories(ctx, r.site.Name, cat.OrigID)
		if err != nil {
			return fmt.Errorf("list children of %s: %w", cat.OrigID, err)
		}
		for _, child := range children {
			if err := r.crawlTree(ctx, child); err != nil {
				return err
			}
		}
		return nil
	}
	return r.crawlLeaf(ctx, cat)
}
