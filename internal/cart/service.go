package cart

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// Store is the persistence surface the service needs. *Repository satisfies
// it; tests substitute an in-memory implementation.
type Store interface {
	GetActive(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Update(ctx context.Context, cart *models.Cart) error
	Products(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error)
}

// Service runs one cart operation per call: resolve the cart, validate the
// request against the catalog, mutate, reprice, persist. The whole sequence
// is all-or-nothing; a conflicting concurrent write triggers exactly one
// replay of the operation before the conflict surfaces.
type Service struct {
	store     Store
	catalog   Catalog
	discounts DiscountResolver
	ttl       time.Duration
}

func NewService(store Store, catalog Catalog, discounts DiscountResolver, ttl time.Duration) *Service {
	return &Service{
		store:     store,
		catalog:   catalog,
		discounts: discounts,
		ttl:       ttl,
	}
}

// View returns the user's priced cart, creating an empty one when absent.
func (s *Service) View(ctx context.Context, userID primitive.ObjectID) (View, error) {
	cart, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.viewOf(ctx, cart)
}

// AddItem puts quantity units of a product size into the cart, merging into
// an existing line when product, size and color all match.
func (s *Service) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int, size string, color *models.CartColor) (View, error) {
	if quantity <= 0 {
		return View{}, ErrInvalidQuantity
	}

	return s.apply(ctx, s.store.GetOrCreate, userID, func(ctx context.Context, cart *models.Cart) error {
		product, err := s.catalog.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return ErrItemUnavailable
		}
		if err := checkSizeStock(product, size, quantity, ErrItemUnavailable); err != nil {
			return err
		}
		if err := cart.AddItem(product.ID, quantity, size, color, product.Price); err != nil {
			return mapMutationError(err)
		}
		return nil
	})
}

// UpdateItem sets a line's quantity after re-validating stock; a quantity of
// zero or less removes the line.
func (s *Service) UpdateItem(ctx context.Context, userID primitive.ObjectID, itemID string, quantity int) (View, error) {
	return s.apply(ctx, s.store.GetActive, userID, func(ctx context.Context, cart *models.Cart) error {
		line := cart.Item(itemID)
		if line == nil {
			return ErrLineNotFound
		}
		if quantity > 0 {
			product, err := s.catalog.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, ErrItemUnavailable) {
					return &StockError{Kind: ErrInsufficientStock, ProductID: line.ProductID, Size: line.Size, Requested: quantity}
				}
				return err
			}
			if err := checkSizeStock(product, line.Size, quantity, ErrInsufficientStock); err != nil {
				return err
			}
		}
		if err := cart.UpdateItem(itemID, quantity); err != nil {
			return mapMutationError(err)
		}
		return nil
	})
}

// RemoveItem deletes a line. Removing an already absent line succeeds.
func (s *Service) RemoveItem(ctx context.Context, userID primitive.ObjectID, itemID string) (View, error) {
	return s.apply(ctx, s.store.GetActive, userID, func(ctx context.Context, cart *models.Cart) error {
		cart.RemoveItem(itemID)
		return nil
	})
}

// Clear empties the cart and drops any discount in one operation.
func (s *Service) Clear(ctx context.Context, userID primitive.ObjectID) (View, error) {
	return s.apply(ctx, s.store.GetActive, userID, func(ctx context.Context, cart *models.Cart) error {
		cart.Clear()
		return nil
	})
}

// ApplyDiscount resolves the code and overwrites the cart's discount slot.
func (s *Service) ApplyDiscount(ctx context.Context, userID primitive.ObjectID, code string) (View, error) {
	discount, ok := s.discounts.Resolve(code)
	if !ok {
		return View{}, ErrInvalidDiscount
	}
	return s.apply(ctx, s.store.GetActive, userID, func(ctx context.Context, cart *models.Cart) error {
		cart.ApplyDiscount(discount.Code, discount.Amount, discount.Percentage)
		return nil
	})
}

// RemoveDiscount clears the cart's discount slot.
func (s *Service) RemoveDiscount(ctx context.Context, userID primitive.ObjectID) (View, error) {
	return s.apply(ctx, s.store.GetActive, userID, func(ctx context.Context, cart *models.Cart) error {
		cart.RemoveDiscount()
		return nil
	})
}

// apply runs load → op → Recalculate → Update. On a version conflict the
// whole sequence is replayed once against the fresh document; a second
// conflict surfaces to the caller.
func (s *Service) apply(
	ctx context.Context,
	load func(context.Context, primitive.ObjectID) (*models.Cart, error),
	userID primitive.ObjectID,
	op func(context.Context, *models.Cart) error,
) (View, error) {
	var conflict error
	for attempt := 0; attempt < 2; attempt++ {
		cart, err := load(ctx, userID)
		if err != nil {
			return View{}, err
		}
		if err := op(ctx, cart); err != nil {
			return View{}, err
		}

		cart.Recalculate(time.Now(), s.ttl)

		if err := s.store.Update(ctx, cart); err != nil {
			if errors.Is(err, ErrConflict) {
				conflict = err
				continue
			}
			return View{}, err
		}
		return s.viewOf(ctx, cart)
	}
	return View{}, conflict
}

func (s *Service) viewOf(ctx context.Context, cart *models.Cart) (View, error) {
	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	seen := make(map[primitive.ObjectID]bool, len(cart.Items))
	for i := range cart.Items {
		if !seen[cart.Items[i].ProductID] {
			seen[cart.Items[i].ProductID] = true
			ids = append(ids, cart.Items[i].ProductID)
		}
	}

	products, err := s.store.Products(ctx, ids)
	if err != nil {
		return View{}, err
	}
	return NewView(cart, products), nil
}

func checkSizeStock(product *models.Product, size string, quantity int, kind error) error {
	option := product.SizeOption(size)
	if option == nil || !option.InStock {
		return &StockError{Kind: kind, ProductID: product.ID, Size: size, Requested: quantity}
	}
	if option.Quantity < quantity {
		return &StockError{Kind: kind, ProductID: product.ID, Size: size, Available: option.Quantity, Requested: quantity}
	}
	return nil
}

func mapMutationError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidQuantity):
		return ErrInvalidQuantity
	case errors.Is(err, models.ErrItemNotFound):
		return ErrLineNotFound
	}
	return err
}
