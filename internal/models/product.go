package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductImage struct {
	URL       string `bson:"url" json:"url"`
	Alt       string `bson:"alt" json:"alt"`
	IsPrimary bool   `bson:"isPrimary" json:"isPrimary"`
}

type ProductColor struct {
	Name   string   `bson:"name" json:"name"`
	Hex    string   `bson:"hex" json:"hex"`
	Images []string `bson:"images,omitempty" json:"images,omitempty"`
}

// ProductSize tracks stock per size option.
type ProductSize struct {
	Size     string `bson:"size" json:"size"`
	InStock  bool   `bson:"inStock" json:"inStock"`
	Quantity int    `bson:"quantity" json:"quantity"`
}

type ProductRating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

// Product is the catalog document. The cart engine reads it but never
// mutates it outside of checkout stock decrements.
type Product struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Slug             string             `bson:"slug" json:"slug"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	ShortDescription string             `bson:"shortDescription,omitempty" json:"shortDescription,omitempty"`
	Price            float64            `bson:"price" json:"price"`
	OriginalPrice    float64            `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	Currency         string             `bson:"currency" json:"currency"`
	Category         string             `bson:"category" json:"category"`
	Subcategory      string             `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	Gender           string             `bson:"gender" json:"gender"`
	Season           string             `bson:"season,omitempty" json:"season,omitempty"`
	Brand            string             `bson:"brand,omitempty" json:"brand,omitempty"`
	SKU              string             `bson:"sku,omitempty" json:"sku,omitempty"`
	Images           []ProductImage     `bson:"images" json:"images"`
	Colors           []ProductColor     `bson:"colors" json:"colors"`
	Sizes            []ProductSize      `bson:"sizes" json:"sizes"`
	Material         string             `bson:"material,omitempty" json:"material,omitempty"`
	Features         []string           `bson:"features,omitempty" json:"features,omitempty"`
	Tags             []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	InStock          bool               `bson:"inStock" json:"inStock"`
	TotalQuantity    int                `bson:"totalQuantity" json:"totalQuantity"`
	Rating           ProductRating      `bson:"rating" json:"rating"`
	IsActive         bool               `bson:"isActive" json:"isActive"`
	IsFeatured       bool               `bson:"isFeatured" json:"isFeatured"`
	IsNewArrival     bool               `bson:"isNewArrival" json:"isNewArrival"`
	IsBestseller     bool               `bson:"isBestseller" json:"isBestseller"`
	IsOnSale         bool               `bson:"-" json:"isOnSale"`
	SalePercentage   int                `bson:"-" json:"salePercentage"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SizeOption returns the stock entry for a size, or nil if the product does
// not come in that size.
func (p *Product) SizeOption(size string) *ProductSize {
	for i := range p.Sizes {
		if p.Sizes[i].Size == size {
			return &p.Sizes[i]
		}
	}
	return nil
}

// PrimaryImage returns the primary image URL, falling back to the first
// image when none is flagged.
func (p *Product) PrimaryImage() string {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return p.Images[i].URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}
