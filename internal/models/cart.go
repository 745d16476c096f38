package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidQuantity signals an add with a zero or negative quantity.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrItemNotFound signals an update against a line id the cart does not hold.
	ErrItemNotFound = errors.New("item not found in cart")
)

// CartColor is the color selection captured on a cart line.
type CartColor struct {
	Name string `bson:"name" json:"name"`
	Hex  string `bson:"hex,omitempty" json:"hex,omitempty"`
}

// CartItem is a single product+size+color selection. Price is the unit price
// snapshot taken when the line was first added; TotalPrice is always
// Quantity * Price.
type CartItem struct {
	ID         string             `bson:"id" json:"id"`
	ProductID  primitive.ObjectID `bson:"product" json:"productId"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	Size       string             `bson:"size" json:"size"`
	Color      *CartColor         `bson:"color,omitempty" json:"color,omitempty"`
	Price      float64            `bson:"price" json:"price"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
	AddedAt    time.Time          `bson:"addedAt" json:"addedAt"`
}

// Discount is the single discount slot on a cart. When Percentage is greater
// than zero it takes priority over Amount, even if both are set.
type Discount struct {
	Code       string  `bson:"code,omitempty" json:"code,omitempty"`
	Amount     float64 `bson:"amount" json:"amount"`
	Percentage float64 `bson:"percentage" json:"percentage"`
}

// Shipping holds the cart's shipping policy plus the derived isFree flag.
type Shipping struct {
	Cost          float64 `bson:"cost" json:"cost"`
	FreeThreshold float64 `bson:"freeShippingThreshold" json:"freeShippingThreshold"`
	IsFree        bool    `bson:"isFree" json:"isFree"`
}

// Cart is the persisted cart document. Subtotal, Tax, Shipping.IsFree and
// Total are derived values owned by Recalculate; nothing else writes them.
// Version backs the optimistic concurrency check in the repository.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user" json:"userId"`
	Items     []CartItem         `bson:"items" json:"items"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
	Tax       float64            `bson:"tax" json:"tax"`
	TaxRate   float64            `bson:"taxRate" json:"taxRate"`
	Shipping  Shipping           `bson:"shipping" json:"shipping"`
	Discount  Discount           `bson:"discount" json:"discount"`
	Total     float64            `bson:"total" json:"total"`
	Currency  string             `bson:"currency" json:"currency"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	Version   int64              `bson:"version" json:"-"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewCart builds an empty active cart for a user with the given pricing
// policy. The caller persists it.
func NewCart(userID primitive.ObjectID, taxRate, shippingCost, freeThreshold float64, ttl time.Duration) *Cart {
	now := time.Now()
	return &Cart{
		UserID:  userID,
		Items:   []CartItem{},
		TaxRate: taxRate,
		Shipping: Shipping{
			Cost:          shippingCost,
			FreeThreshold: freeThreshold,
		},
		Currency:  "ZAR",
		IsActive:  true,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem merges the quantity into an existing line with the same product,
// size and color, or appends a new line with the given unit price snapshot.
func (cart *Cart) AddItem(productID primitive.ObjectID, quantity int, size string, color *CartColor, unitPrice float64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	for i := range cart.Items {
		if cart.Items[i].matches(productID, size, color) {
			cart.Items[i].Quantity += quantity
			cart.Items[i].TotalPrice = float64(cart.Items[i].Quantity) * cart.Items[i].Price
			return nil
		}
	}

	cart.Items = append(cart.Items, CartItem{
		ID:         primitive.NewObjectID().Hex(),
		ProductID:  productID,
		Quantity:   quantity,
		Size:       size,
		Color:      color,
		Price:      unitPrice,
		TotalPrice: float64(quantity) * unitPrice,
		AddedAt:    time.Now(),
	})
	return nil
}

// UpdateItem sets a line's quantity. A quantity of zero or less removes the
// line instead of erroring.
func (cart *Cart) UpdateItem(itemID string, quantity int) error {
	for i := range cart.Items {
		if cart.Items[i].ID != itemID {
			continue
		}
		if quantity <= 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return nil
		}
		cart.Items[i].Quantity = quantity
		cart.Items[i].TotalPrice = float64(quantity) * cart.Items[i].Price
		return nil
	}
	return ErrItemNotFound
}

// RemoveItem deletes the matching line. Removing an id that is already gone
// is a no-op.
func (cart *Cart) RemoveItem(itemID string) {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return
		}
	}
}

// Clear empties the items and drops any applied discount.
func (cart *Cart) Clear() {
	cart.Items = []CartItem{}
	cart.Discount = Discount{}
}

// ApplyDiscount overwrites the single discount slot. Discounts do not stack.
func (cart *Cart) ApplyDiscount(code string, amount, percentage float64) {
	cart.Discount = Discount{
		Code:       code,
		Amount:     amount,
		Percentage: percentage,
	}
}

// RemoveDiscount clears the discount slot.
func (cart *Cart) RemoveDiscount() {
	cart.Discount = Discount{}
}

// Item returns the line with the given id, or nil.
func (cart *Cart) Item(itemID string) *CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

// TotalItems is the unit count across all lines.
func (cart *Cart) TotalItems() int {
	total := 0
	for i := range cart.Items {
		total += cart.Items[i].Quantity
	}
	return total
}

// Recalculate derives subtotal, discount, tax, shipping and total from the
// current item set. Every mutation path must call it before the cart is
// persisted; the calculation order is fixed.
func (cart *Cart) Recalculate(now time.Time, ttl time.Duration) {
	subtotal := 0.0
	for i := range cart.Items {
		subtotal += cart.Items[i].TotalPrice
	}
	cart.Subtotal = subtotal

	discountAmount := 0.0
	if cart.Discount.Percentage > 0 {
		discountAmount = subtotal * cart.Discount.Percentage / 100
	} else if cart.Discount.Amount > 0 {
		discountAmount = cart.Discount.Amount
	}

	discounted := subtotal - discountAmount
	if discounted < 0 {
		discounted = 0
	}

	cart.Tax = discounted * cart.TaxRate

	// An empty cart never ships anything, so its shipping cost is zero no
	// matter where the free threshold sits.
	shippingCost := 0.0
	cart.Shipping.IsFree = false
	if len(cart.Items) > 0 {
		cart.Shipping.IsFree = discounted >= cart.Shipping.FreeThreshold
		if !cart.Shipping.IsFree {
			shippingCost = cart.Shipping.Cost
		}
	}

	cart.Total = discounted + cart.Tax + shippingCost

	if len(cart.Items) > 0 {
		cart.ExpiresAt = now.Add(ttl)
	}
	cart.UpdatedAt = now
}

// ShippingCost is the amount the latest Recalculate charged for shipping.
func (cart *Cart) ShippingCost() float64 {
	if len(cart.Items) == 0 || cart.Shipping.IsFree {
		return 0
	}
	return cart.Shipping.Cost
}

func (item *CartItem) matches(productID primitive.ObjectID, size string, color *CartColor) bool {
	if item.ProductID != productID || item.Size != size {
		return false
	}
	if item.Color == nil && color == nil {
		return true
	}
	if item.Color == nil || color == nil {
		return false
	}
	return item.Color.Name == color.Name
}
