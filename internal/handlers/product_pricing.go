package handlers

import (
	"math"

	"backend/internal/models"
)

func isProductOnSale(price, originalPrice float64) bool {
	return originalPrice > 0 && originalPrice > price
}

// salePercentage is the rounded percentage saved against the original price,
// zero when the product is not on sale.
func salePercentage(price, originalPrice float64) int {
	if !isProductOnSale(price, originalPrice) {
		return 0
	}
	return int(math.Round((originalPrice - price) / originalPrice * 100))
}

// applyDerivedProductFields fills the fields that are computed from the
// stored document rather than persisted: stock rollups from the size list
// and the sale flags.
func applyDerivedProductFields(p *models.Product) {
	if len(p.Sizes) > 0 {
		total := 0
		for i := range p.Sizes {
			total += p.Sizes[i].Quantity
		}
		p.TotalQuantity = total
		p.InStock = total > 0
	}

	p.IsOnSale = isProductOnSale(p.Price, p.OriginalPrice)
	p.SalePercentage = salePercentage(p.Price, p.OriginalPrice)
}
