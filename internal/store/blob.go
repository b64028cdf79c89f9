package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"shelfsync/internal/cache"
	"shelfsync/internal/catalog"
)

// BlobStore keeps every entity as one JSON blob in a cache backend, keyed
// site/<name>, category/<site>/<origID> and product/<site>/<origID>.
type BlobStore struct {
	cache cache.ListCache
}

var _ Store = (*BlobStore)(nil)

func NewBlobStore(c cache.ListCache) *BlobStore {
	return &BlobStore{cache: c}
}

func siteKey(name string) string             { return "site/" + name }
func categoryKey(site, origID string) string { return "category/" + site + "/" + origID }
func productKey(site, origID string) string  { return "product/" + site + "/" + origID }

func (s *BlobStore) get(ctx context.Context, key string, out any) error {
	rc, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) put(ctx context.Context, key string, v any, opts cache.PutOptions) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.cache.Put(ctx, key, string(data), opts); err != nil {
		if errors.Is(err, cache.ErrAlreadyExists) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *BlobStore) EnsureSite(ctx context.Context, site catalog.Site) (catalog.Site, error) {
	var existing catalog.Site
	err := s.get(ctx, siteKey(site.Name), &existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return catalog.Site{}, err
	}

	err = s.put(ctx, siteKey(site.Name), site, cache.PutOptions{Condition: cache.PutIfNoneMatch})
	if errors.Is(err, ErrAlreadyExists) {
		// Lost the race to another sync; the stored record wins.
		if err := s.get(ctx, siteKey(site.Name), &existing); err != nil {
			return catalog.Site{}, err
		}
		return existing, nil
	}
	if err != nil {
		return catalog.Site{}, err
	}
	return site, nil
}

func (s *BlobStore) GetCategory(ctx context.Context, site, origID string) (*catalog.Category, error) {
	var cat catalog.Category
	if err := s.get(ctx, categoryKey(site, origID), &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *BlobStore) CreateCategory(ctx context.Context, cat catalog.Category) error {
	return s.put(ctx, categoryKey(cat.Site, cat.OrigID), cat, cache.PutOptions{Condition: cache.PutIfNoneMatch})
}

func (s *BlobStore) UpdateCategoryPath(ctx context.Context, site, origID, origPath string) error {
	cat, err := s.GetCategory(ctx, site, origID)
	if err != nil {
		return err
	}
	cat.OrigPath = origPath
	return s.put(ctx, categoryKey(site, origID), cat, cache.PutOptions{})
}

func (s *BlobStore) RootCategories(ctx context.Context, site string) ([]catalog.Category, error) {
	return s.categoriesByParent(ctx, site, "")
}

func (s *BlobStore) ChildCategories(ctx context.Context, site, parentID string) ([]catalog.Category, error) {
	return s.categoriesByParent(ctx, site, parentID)
}

func (s *BlobStore) categoriesByParent(ctx context.Context, site, parentID string) ([]catalog.Category, error) {
	ids, err := s.cache.List(ctx, "category/"+site+"/")
	if err != nil {
		return nil, fmt.Errorf("list categories for %s: %w", site, err)
	}
	var cats []catalog.Category
	for _, id := range ids {
		cat, err := s.GetCategory(ctx, site, id)
		if err != nil {
			return nil, err
		}
		if cat.Parent == parentID {
			cats = append(cats, *cat)
		}
	}
	return cats, nil
}

func (s *BlobStore) GetProduct(ctx context.Context, site, origID string) (*catalog.Product, error) {
	var p catalog.Product
	if err := s.get(ctx, productKey(site, origID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *BlobStore) CreateProduct(ctx context.Context, p catalog.Product) error {
	return s.put(ctx, productKey(p.Site, p.OrigID), p, cache.PutOptions{Condition: cache.PutIfNoneMatch})
}

func (s *BlobStore) TouchProduct(ctx context.Context, site, origID string) error {
	p, err := s.GetProduct(ctx, site, origID)
	if err != nil {
		return err
	}
	p.SeenCount++
	return s.put(ctx, productKey(site, origID), p, cache.PutOptions{})
}

func (s *BlobStore) UpdateProductPricing(ctx context.Context, p *catalog.Product) error {
	if _, err := s.GetProduct(ctx, p.Site, p.OrigID); err != nil {
		return err
	}
	return s.put(ctx, productKey(p.Site, p.OrigID), p, cache.PutOptions{})
}

func (s *BlobStore) DealProducts(ctx context.Context, site string) ([]catalog.Product, error) {
	ids, err := s.cache.List(ctx, "product/"+site+"/")
	if err != nil {
		return nil, fmt.Errorf("list products for %s: %w", site, err)
	}
	var deals []catalog.Product
	for _, id := range ids {
		p, err := s.GetProduct(ctx, site, id)
		if err != nil {
			return nil, err
		}
		if p.IsDeal {
			deals = append(deals, *p)
		}
	}
	return deals, nil
}
