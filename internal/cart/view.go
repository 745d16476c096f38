package cart

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// LineProduct is the catalog snapshot joined onto a line for display. It is
// built per read and never written back into the cart document.
type LineProduct struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Slug    string  `json:"slug"`
	Price   float64 `json:"price"`
	Image   string  `json:"image,omitempty"`
	InStock bool    `json:"inStock"`
}

type LineView struct {
	models.CartItem
	Product *LineProduct `json:"product,omitempty"`
}

// View is the priced, product-joined cart returned by every cart endpoint.
type View struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Items        []LineView      `json:"items"`
	TotalItems   int             `json:"totalItems"`
	Subtotal     float64         `json:"subtotal"`
	Discount     models.Discount `json:"discount"`
	Tax          float64         `json:"tax"`
	TaxRate      float64         `json:"taxRate"`
	Shipping     models.Shipping `json:"shipping"`
	ShippingCost float64         `json:"shippingCost"`
	Total        float64         `json:"total"`
	Currency     string          `json:"currency"`
	ExpiresAt    time.Time       `json:"expiresAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewView joins the cart with the referenced products. Lines whose product
// has disappeared from the catalog keep their snapshot price but carry no
// product object.
func NewView(cart *models.Cart, products map[primitive.ObjectID]models.Product) View {
	items := make([]LineView, 0, len(cart.Items))
	for i := range cart.Items {
		line := LineView{CartItem: cart.Items[i]}
		if product, ok := products[cart.Items[i].ProductID]; ok {
			line.Product = &LineProduct{
				ID:      product.ID.Hex(),
				Name:    product.Name,
				Slug:    product.Slug,
				Price:   product.Price,
				Image:   product.PrimaryImage(),
				InStock: product.InStock,
			}
		}
		items = append(items, line)
	}

	return View{
		ID:           cart.ID.Hex(),
		UserID:       cart.UserID.Hex(),
		Items:        items,
		TotalItems:   cart.TotalItems(),
		Subtotal:     cart.Subtotal,
		Discount:     cart.Discount,
		Tax:          cart.Tax,
		TaxRate:      cart.TaxRate,
		Shipping:     cart.Shipping,
		ShippingCost: cart.ShippingCost(),
		Total:        cart.Total,
		Currency:     cart.Currency,
		ExpiresAt:    cart.ExpiresAt,
		UpdatedAt:    cart.UpdatedAt,
	}
}
