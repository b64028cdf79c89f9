package sync

import (
	"shelfsync/internal/catalog"
	"shelfsync/internal/ctire"
)

// NormalizePrice maps one upstream SKU price record to canonical pricing.
// Each field defaults to zero independently when its source path is absent
// or null. Stock is read from the Corporate availability path only: records
// that carry a lowercase availability.quantity without the Corporate block
// resolve to zero stock. Keep that quirk here so a future change touches
// one function.
func NormalizePrice(sku ctire.SKUPrice) catalog.Pricing {
	var p catalog.Pricing
	if sku.OriginalPrice != nil && sku.OriginalPrice.Value != nil {
		p.RegularPrice = *sku.OriginalPrice.Value
	}
	if sku.CurrentPrice != nil && sku.CurrentPrice.Value != nil {
		p.SalePrice = *sku.CurrentPrice.Value
	}
	if sku.Fulfillment != nil && sku.Fulfillment.Availability != nil && sku.Fulfillment.Availability.Corporate != nil {
		p.Stock = sku.Fulfillment.Availability.Corporate.Quantity
	}
	return p
}
