package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"shelfsync/internal/catalog"
)

// PostgresStore keeps entities relational; collection-valued product fields
// (features, specification, attributes, variants) live in jsonb columns.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Bootstrap creates the schema when missing. Safe to run on every start.
func (s *PostgresStore) Bootstrap(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sites (
			name TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			url TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			site TEXT NOT NULL REFERENCES sites(name),
			orig_id TEXT NOT NULL,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			role TEXT NOT NULL,
			level INT NOT NULL,
			parent TEXT NOT NULL DEFAULT '',
			orig_path TEXT NOT NULL,
			PRIMARY KEY (site, orig_id)
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			site TEXT NOT NULL REFERENCES sites(name),
			orig_id TEXT NOT NULL,
			category TEXT NOT NULL,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			features JSONB NOT NULL DEFAULT '[]',
			specification JSONB NOT NULL DEFAULT '{}',
			images JSONB,
			is_variant BOOLEAN NOT NULL DEFAULT FALSE,
			skus TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'off',
			is_deal BOOLEAN NOT NULL DEFAULT FALSE,
			regular_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			sale_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			stock INT NOT NULL DEFAULT 0,
			attributes JSONB,
			variants JSONB,
			seen_count INT NOT NULL DEFAULT 0,
			PRIMARY KEY (site, orig_id)
		)`,
		`CREATE INDEX IF NOT EXISTS products_deal_idx ON products (site) WHERE is_deal`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) EnsureSite(ctx context.Context, site catalog.Site) (catalog.Site, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (name, domain, url) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		site.Name, site.Domain, site.URL)
	if err != nil {
		return catalog.Site{}, fmt.Errorf("ensure site %s: %w", site.Name, err)
	}

	var stored catalog.Site
	err = s.db.QueryRowContext(ctx,
		`SELECT name, domain, url FROM sites WHERE name = $1`, site.Name).
		Scan(&stored.Name, &stored.Domain, &stored.URL)
	if err != nil {
		return catalog.Site{}, fmt.Errorf("fetch site %s: %w", site.Name, err)
	}
	return stored, nil
}

func (s *PostgresStore) GetCategory(ctx context.Context, site, origID string) (*catalog.Category, error) {
	var cat catalog.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT site, orig_id, name, url, role, level, parent, orig_path
		 FROM categories WHERE site = $1 AND orig_id = $2`, site, origID).
		Scan(&cat.Site, &cat.OrigID, &cat.Name, &cat.URL, &cat.Role, &cat.Level, &cat.Parent, &cat.OrigPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category %s/%s: %w", site, origID, err)
	}
	return &cat, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, cat catalog.Category) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (site, orig_id, name, url, role, level, parent, orig_path)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (site, orig_id) DO NOTHING`,
		cat.Site, cat.OrigID, cat.Name, cat.URL, cat.Role, cat.Level, cat.Parent, cat.OrigPath)
	if err != nil {
		return fmt.Errorf("create category %s/%s: %w", cat.Site, cat.OrigID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *PostgresStore) UpdateCategoryPath(ctx context.Context, site, origID, origPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET orig_path = $3 WHERE site = $1 AND orig_id = $2`,
		site, origID, origPath)
	if err != nil {
		return fmt.Errorf("update category path %s/%s: %w", site, origID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RootCategories(ctx context.Context, site string) ([]catalog.Category, error) {
	return s.categoriesByParent(ctx, site, "")
}

func (s *PostgresStore) ChildCategories(ctx context.Context, site, parentID string) ([]catalog.Category, error) {
	return s.categoriesByParent(ctx, site, parentID)
}

func (s *PostgresStore) categoriesByParent(ctx context.Context, site, parentID string) ([]catalog.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT site, orig_id, name, url, role, level, parent, orig_path
		 FROM categories WHERE site = $1 AND parent = $2 ORDER BY orig_id`, site, parentID)
	if err != nil {
		return nil, fmt.Errorf("list categories for %s: %w", site, err)
	}
	defer func() { _ = rows.Close() }()

	var cats []catalog.Category
	for rows.Next() {
		var cat catalog.Category
		if err := rows.Scan(&cat.Site, &cat.OrigID, &cat.Name, &cat.URL, &cat.Role, &cat.Level, &cat.Parent, &cat.OrigPath); err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

func (s *PostgresStore) GetProduct(ctx context.Context, site, origID string) (*catalog.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT site, orig_id, category, name, brand, url, description,
		        features, specification, images, is_variant, skus, status, is_deal,
		        regular_price, sale_price, stock, attributes, variants, seen_count
		 FROM products WHERE site = $1 AND orig_id = $2`, site, origID)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s/%s: %w", site, origID, err)
	}
	return p, nil
}

func scanProduct(row *sql.Row) (*catalog.Product, error) {
	var (
		p                                       catalog.Product
		features, spec, images, attrs, variants []byte
	)
	err := row.Scan(&p.Site, &p.OrigID, &p.Category, &p.Name, &p.Brand, &p.URL, &p.Description,
		&features, &spec, &images, &p.IsVariant, &p.SKUs, &p.Status, &p.IsDeal,
		&p.RegularPrice, &p.SalePrice, &p.Stock, &attrs, &variants, &p.SeenCount)
	if err != nil {
		return nil, err
	}
	for _, col := range []struct {
		data []byte
		dest any
	}{
		{features, &p.Features},
		{spec, &p.Specification},
		{images, &p.Images},
		{attrs, &p.Attributes},
		{variants, &p.Variants},
	} {
		if col.data == nil {
			continue
		}
		if err := json.Unmarshal(col.data, col.dest); err != nil {
			return nil, fmt.Errorf("decode product column: %w", err)
		}
	}
	return &p, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p catalog.Product) error {
	features, spec, images, attrs, variants, err := marshalProductColumns(&p)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (site, orig_id, category, name, brand, url, description,
		        features, specification, images, is_variant, skus, status, is_deal,
		        regular_price, sale_price, stock, attributes, variants, seen_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 ON CONFLICT (site, orig_id) DO NOTHING`,
		p.Site, p.OrigID, p.Category, p.Name, p.Brand, p.URL, p.Description,
		features, spec, images, p.IsVariant, p.SKUs, p.Status, p.IsDeal,
		p.RegularPrice, p.SalePrice, p.Stock, attrs, variants, p.SeenCount)
	if err != nil {
		return fmt.Errorf("create product %s/%s: %w", p.Site, p.OrigID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func marshalProductColumns(p *catalog.Product) (features, spec, images, attrs, variants []byte, err error) {
	if features, err = json.Marshal(p.Features); err != nil {
		return
	}
	if spec, err = json.Marshal(p.Specification); err != nil {
		return
	}
	if p.Images != nil {
		if images, err = json.Marshal(p.Images); err != nil {
			return
		}
	}
	if p.Attributes != nil {
		if attrs, err = json.Marshal(p.Attributes); err != nil {
			return
		}
	}
	if p.Variants != nil {
		if variants, err = json.Marshal(p.Variants); err != nil {
			return
		}
	}
	return
}

func (s *PostgresStore) TouchProduct(ctx context.Context, site, origID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET seen_count = seen_count + 1 WHERE site = $1 AND orig_id = $2`,
		site, origID)
	if err != nil {
		return fmt.Errorf("touch product %s/%s: %w", site, origID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateProductPricing(ctx context.Context, p *catalog.Product) error {
	_, _, _, _, variants, err := marshalProductColumns(p)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET skus = $3, regular_price = $4, sale_price = $5, stock = $6, variants = $7, is_deal = $8
		 WHERE site = $1 AND orig_id = $2`,
		p.Site, p.OrigID, p.SKUs, p.RegularPrice, p.SalePrice, p.Stock, variants, p.IsDeal)
	if err != nil {
		return fmt.Errorf("update product pricing %s/%s: %w", p.Site, p.OrigID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DealProducts(ctx context.Context, site string) ([]catalog.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT orig_id FROM products WHERE site = $1 AND is_deal ORDER BY orig_id`, site)
	if err != nil {
		return nil, fmt.Errorf("list deal products for %s: %w", site, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var deals []catalog.Product
	for _, id := range ids {
		p, err := s.GetProduct(ctx, site, id)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *p)
	}
	return deals, nil
}
