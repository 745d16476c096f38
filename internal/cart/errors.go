package cart

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sentinel errors returned by the cart engine. Handlers map these to HTTP
// statuses; nothing below this package leaks storage detail.
var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrLineNotFound       = errors.New("item not found in cart")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrItemUnavailable    = errors.New("product is not available")
	ErrInsufficientStock  = errors.New("insufficient stock for requested quantity")
	ErrInvalidDiscount    = errors.New("invalid discount code")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrConflict           = errors.New("cart was modified concurrently")
)

// StockError carries the stock shortfall behind ErrItemUnavailable or
// ErrInsufficientStock, depending on which operation hit it.
type StockError struct {
	Kind      error
	ProductID primitive.ObjectID
	Size      string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v: product %s size %q has %d, requested %d",
		e.Kind, e.ProductID.Hex(), e.Size, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error {
	return e.Kind
}

// Code returns the stable machine-readable kind for an engine error, or ""
// when the error does not belong to the cart taxonomy.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrCartNotFound):
		return "CartNotFound"
	case errors.Is(err, ErrLineNotFound):
		return "LineNotFound"
	case errors.Is(err, ErrInvalidQuantity):
		return "InvalidQuantity"
	case errors.Is(err, ErrItemUnavailable):
		return "ItemUnavailable"
	case errors.Is(err, ErrInsufficientStock):
		return "InsufficientStock"
	case errors.Is(err, ErrInvalidDiscount):
		return "InvalidDiscountCode"
	case errors.Is(err, ErrCatalogUnavailable):
		return "CatalogUnavailable"
	case errors.Is(err, ErrConflict):
		return "ConcurrencyConflict"
	}
	return ""
}
