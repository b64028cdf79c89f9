// Package catalog defines the entities the sync pipeline persists: sites,
// their category tree, and normalized products with scalar or per-variant
// pricing.
package catalog

import "strings"

const (
	// RoleNode marks a category that had at least one subcategory when it
	// was first seen. RoleLeaf categories are the unit of product crawling.
	RoleNode = "node"
	RoleLeaf = "leaf"

	// StatusOff is the initial product status; publishing is handled
	// elsewhere and never by this pipeline.
	StatusOff = "off"
)

// Site is one configured retailer. Created once, looked up by name,
// never deleted here.
type Site struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	URL    string `json:"url"`
}

// Category is one node of a site's category tree. OrigID is the retailer's
// own identifier and the natural key within a site. Role, Level and Parent
// are fixed at first creation; only OrigPath is rewritten by later syncs.
type Category struct {
	Site     string `json:"site"`
	OrigID   string `json:"orig_id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Role     string `json:"role"`
	Level    int    `json:"level"`
	Parent   string `json:"parent,omitempty"` // OrigID of the parent, empty for roots
	OrigPath string `json:"orig_path"`
}

// Pricing is the canonical price/stock triple produced by normalization.
type Pricing struct {
	RegularPrice float64 `json:"regular_price"`
	SalePrice    float64 `json:"sale_price"`
	Stock        int     `json:"stock"`
}

// Variant is one purchasable SKU of a multi-option product, with the
// attribute values that distinguish it from its siblings.
type Variant struct {
	SKU          string            `json:"sku"`
	RegularPrice float64           `json:"regular_price"`
	SalePrice    float64           `json:"sale_price"`
	Stock        int               `json:"stock"`
	Attributes   map[string]string `json:"attributes"`
}

// Product is a normalized catalog record. Exactly one of the scalar price
// fields or the Variants collection is meaningful, selected by IsVariant.
type Product struct {
	Site          string            `json:"site"`
	Category      string            `json:"category"` // OrigID of the owning category
	OrigID        string            `json:"orig_id"`
	Name          string            `json:"name"`
	Brand         string            `json:"brand"`
	URL           string            `json:"url"`
	Description   string            `json:"description"`
	Features      []string          `json:"features"`
	Specification map[string]string `json:"specification"`
	Images        []string          `json:"images,omitempty"`
	IsVariant     bool              `json:"is_variant"`
	SKUs          string            `json:"skus"` // delimited, see EncodeSKUs
	Status        string            `json:"status"`
	IsDeal        bool              `json:"is_deal"`

	RegularPrice float64 `json:"regular_price,omitempty"`
	SalePrice    float64 `json:"sale_price,omitempty"`
	Stock        int     `json:"stock,omitempty"`

	Attributes map[string][]string `json:"attributes,omitempty"`
	Variants   []Variant           `json:"variants,omitempty"`

	// SeenCount is bumped every time a crawl sees the product again.
	SeenCount int `json:"seen_count"`
}

const skuDelimiter = ","

func EncodeSKUs(skus []string) string {
	return strings.Join(skus, skuDelimiter)
}

// SKUList decodes the stored SKU set, preserving order.
func (p *Product) SKUList() []string {
	if p.SKUs == "" {
		return nil
	}
	return strings.Split(p.SKUs, skuDelimiter)
}
