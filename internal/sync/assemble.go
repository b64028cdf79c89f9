package sync

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"shelfsync/internal/catalog"
	"shelfsync/internal/ctire"
)

var errNoPricedSKUs = errors.New("price response contained no skus")

// optionRef resolves one option-value id to its attribute name and value.
type optionRef struct {
	name  string
	value string
}

func optionIndex(options []ctire.Option) map[string]optionRef {
	index := make(map[string]optionRef)
	for _, option := range options {
		for _, value := range option.Values {
			index[value.ID] = optionRef{name: option.Display, value: value.Value}
		}
	}
	return index
}

func attributeValues(options []ctire.Option) map[string][]string {
	attrs := make(map[string][]string, len(options))
	for _, option := range options {
		attrs[option.Display] = lo.Map(option.Values, func(v ctire.OptionValue, _ int) string {
			return v.Value
		})
	}
	return attrs
}

// skuAttributes resolves each SKU's option ids through the index. A SKU
// referencing an unknown id is a hard error; variant construction depends
// on every resolution.
func skuAttributes(skus []ctire.FamilySKU, index map[string]optionRef) (map[string]map[string]string, error) {
	byCode := make(map[string]map[string]string, len(skus))
	for _, sku := range skus {
		attrs := make(map[string]string, len(sku.OptionIDs))
		for _, optionID := range sku.OptionIDs {
			ref, ok := index[optionID]
			if !ok {
				return nil, fmt.Errorf("sku %s references unknown option id %s", sku.Code, optionID)
			}
			attrs[ref.name] = ref.value
		}
		byCode[sku.Code] = attrs
	}
	return byCode, nil
}

// buildVariants pairs every priced SKU with its attribute map.
func buildVariants(priced []ctire.SKUPrice, attrsByCode map[string]map[string]string) ([]catalog.Variant, error) {
	variants := make([]catalog.Variant, 0, len(priced))
	for _, sku := range priced {
		attrs, ok := attrsByCode[sku.Code]
		if !ok {
			return nil, fmt.Errorf("priced sku %s has no attribute map", sku.Code)
		}
		pricing := NormalizePrice(sku)
		variants = append(variants, catalog.Variant{
			SKU:          sku.Code,
			RegularPrice: pricing.RegularPrice,
			SalePrice:    pricing.SalePrice,
			Stock:        pricing.Stock,
			Attributes:   attrs,
		})
	}
	return variants, nil
}

// assembleProduct turns one product family response plus its pricing
// response into a canonical product record ready for creation. Any field
// missing in a way that prevents deterministic mapping is an error for the
// caller to isolate.
func assembleProduct(site catalog.Site, category *catalog.Category, family *ctire.ProductFamily, prices *ctire.PriceAvailability) (*catalog.Product, error) {
	features := lo.Map(family.FeatureBullets, func(b ctire.FeatureBullet, _ int) string {
		return b.Description
	})

	specification := make(map[string]string, len(family.Specifications))
	for _, spec := range family.Specifications {
		specification[spec.Label] = spec.Value
	}

	// Absent upstream images stay absent, not empty.
	var images []string
	if family.Images != nil {
		images = lo.Map(family.Images, func(img ctire.Image, _ int) string {
			return img.URL
		})
	}

	isVariant := len(family.Options) > 0

	index := optionIndex(family.Options)
	attrsByCode, err := skuAttributes(family.SKUs, index)
	if err != nil {
		return nil, err
	}
	skus := lo.Map(family.SKUs, func(sku ctire.FamilySKU, _ int) string {
		return sku.Code
	})

	product := &catalog.Product{
		Site:          site.Name,
		Category:      category.OrigID,
		OrigID:        family.Code,
		Name:          family.Name,
		URL:           site.URL + family.CanonicalURL,
		Description:   family.LongDescription,
		Features:      features,
		Specification: specification,
		Images:        images,
		IsVariant:     isVariant,
		SKUs:          catalog.EncodeSKUs(skus),
		Status:        catalog.StatusOff,
		IsDeal:        false,
	}
	if family.Brand != nil {
		product.Brand = family.Brand.Label
	}

	if isVariant {
		product.Attributes = attributeValues(family.Options)
		variants, err := buildVariants(prices.SKUs, attrsByCode)
		if err != nil {
			return nil, err
		}
		product.Variants = variants
		return product, nil
	}

	if len(prices.SKUs) == 0 {
		return nil, errNoPricedSKUs
	}
	pricing := NormalizePrice(prices.SKUs[0])
	product.RegularPrice = pricing.RegularPrice
	product.SalePrice = pricing.SalePrice
	product.Stock = pricing.Stock
	return product, nil
}
