package ctire

// Upstream payloads as explicit structs. Optional fields the API omits or
// nulls are pointer-typed so absence stays distinguishable from zero.

// CategoryNode is one node of the upstream category tree.
type CategoryNode struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	URL           string         `json:"url"` // relative to the site base URL
	Subcategories []CategoryNode `json:"subcategories"`
}

type categoriesEnvelope struct {
	Categories []CategoryNode `json:"categories"`
}

// SearchResults is one page of a category's product listing.
type SearchResults struct {
	Pagination  *Pagination   `json:"pagination"`
	ResultCount int           `json:"resultCount"`
	Products    []ProductStub `json:"products"`
}

// Pagination.Total is the total page count for the query, not an item count.
type Pagination struct {
	Total int `json:"total"`
}

// ProductStub is the listing entry; Code is the product's origId.
type ProductStub struct {
	Code  string `json:"code"`
	Title string `json:"title,omitempty"`
}

// ProductFamily is the detail response for one product code.
type ProductFamily struct {
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Brand           *Brand          `json:"brand"`
	CanonicalURL    string          `json:"canonicalUrl"`
	LongDescription string          `json:"longDescription"`
	FeatureBullets  []FeatureBullet `json:"featureBullets"`
	Specifications  []Specification `json:"specifications"`
	Images          []Image         `json:"images"`
	Options         []Option        `json:"options"`
	SKUs            []FamilySKU     `json:"skus"`
}

type Brand struct {
	Label string `json:"label"`
}

type FeatureBullet struct {
	Description string `json:"description"`
}

type Specification struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Image struct {
	URL string `json:"url"`
}

// Option is one attribute group (e.g. Color) with its selectable values.
type Option struct {
	Display string        `json:"display"`
	Values  []OptionValue `json:"values"`
}

type OptionValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// FamilySKU ties a SKU code to the option values composing it.
type FamilySKU struct {
	Code      string   `json:"code"`
	OptionIDs []string `json:"optionIds"`
}

// PriceAvailability is the batch pricing response for a SKU set.
type PriceAvailability struct {
	SKUs []SKUPrice `json:"skus"`
}

// SKUPrice carries the heterogeneous upstream price/stock shape. The
// availability block sometimes arrives with a capitalized Corporate path
// and sometimes with a bare lowercase quantity.
type SKUPrice struct {
	Code          string       `json:"code"`
	OriginalPrice *Money       `json:"originalPrice"`
	CurrentPrice  *Money       `json:"currentPrice"`
	Fulfillment   *Fulfillment `json:"fulfillment"`
}

type Money struct {
	Value *float64 `json:"value"`
}

type Fulfillment struct {
	Availability *Availability `json:"availability"`
}

type Availability struct {
	Corporate *Corporate `json:"Corporate"`
	Quantity  *int       `json:"quantity"`
}

type Corporate struct {
	Quantity int `json:"Quantity"`
}

type priceRequest struct {
	SKUs []priceRequestSKU `json:"skus"`
}

type priceRequestSKU struct {
	Code              string `json:"code"`
	LowStockThreshold string `json:"lowStockThreshold"`
}
