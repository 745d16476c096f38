package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

const testTTL = 7 * 24 * time.Hour

// fakeStore is an in-memory Store with the same versioned-write semantics
// as the Mongo repository: a write only lands when the caller read the
// version it is replacing.
type fakeStore struct {
	mu             sync.Mutex
	carts          map[primitive.ObjectID]*models.Cart
	products       map[primitive.ObjectID]models.Product
	forceConflicts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		carts:    make(map[primitive.ObjectID]*models.Cart),
		products: make(map[primitive.ObjectID]models.Product),
	}
}

func (f *fakeStore) GetActive(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cart, ok := f.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (f *fakeStore) GetOrCreate(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cart, ok := f.carts[userID]; ok {
		return copyCart(cart), nil
	}

	cart := models.NewCart(userID, 0.15, 99, 500, testTTL)
	cart.ID = primitive.NewObjectID()
	f.carts[userID] = cart
	return copyCart(cart), nil
}

func (f *fakeStore) Update(_ context.Context, cart *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.forceConflicts > 0 {
		f.forceConflicts--
		return ErrConflict
	}

	stored, ok := f.carts[cart.UserID]
	if !ok || stored.Version != cart.Version {
		return ErrConflict
	}

	next := copyCart(cart)
	next.Version = cart.Version + 1
	f.carts[cart.UserID] = next
	cart.Version = next.Version
	return nil
}

func (f *fakeStore) Products(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[primitive.ObjectID]models.Product, len(ids))
	for _, id := range ids {
		if product, ok := f.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

func copyCart(cart *models.Cart) *models.Cart {
	dup := *cart
	dup.Items = append([]models.CartItem(nil), cart.Items...)
	return &dup
}

type fakeCatalog struct {
	products map[primitive.ObjectID]models.Product
	down     bool
}

func (f *fakeCatalog) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	if f.down {
		return nil, fmt.Errorf("%w: connection reset", ErrCatalogUnavailable)
	}
	product, ok := f.products[id]
	if !ok {
		return nil, ErrItemUnavailable
	}
	return &product, nil
}

func testProduct(price float64, sizes ...models.ProductSize) models.Product {
	return models.Product{
		ID:       primitive.NewObjectID(),
		Name:     "Urban Edge Classic Tee",
		Price:    price,
		Sizes:    sizes,
		IsActive: true,
	}
}

func newTestService(products ...models.Product) (*Service, *fakeStore, *fakeCatalog) {
	store := newFakeStore()
	catalog := &fakeCatalog{products: make(map[primitive.ObjectID]models.Product)}
	for _, product := range products {
		store.products[product.ID] = product
		catalog.products[product.ID] = product
	}
	return NewService(store, catalog, DefaultDiscounts(), testTTL), store, catalog
}

func TestViewCreatesEmptyCart(t *testing.T) {
	svc, store, _ := newTestService()
	userID := primitive.NewObjectID()

	view, err := svc.View(context.Background(), userID)
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if len(view.Items) != 0 || view.Total != 0 {
		t.Fatalf("expected empty priced cart, got %+v", view)
	}
	if _, ok := store.carts[userID]; !ok {
		t.Fatal("expected cart to be persisted on first view")
	}
}

func TestAddItemPricesAndPersists(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 10})
	svc, store, _ := newTestService(product)
	userID := primitive.NewObjectID()

	view, err := svc.AddItem(context.Background(), userID, product.ID, 1, "M", nil)
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	if view.Subtotal != 300 || view.Tax != 45 || view.Total != 444 {
		t.Fatalf("unexpected pricing: subtotal=%v tax=%v total=%v", view.Subtotal, view.Tax, view.Total)
	}
	if view.ShippingCost != 99 {
		t.Fatalf("expected shipping 99, got %v", view.ShippingCost)
	}
	if view.Items[0].Product == nil || view.Items[0].Product.Name != product.Name {
		t.Fatalf("expected product join on line, got %+v", view.Items[0].Product)
	}

	stored := store.carts[userID]
	if stored.Total != 444 {
		t.Fatalf("expected repriced cart persisted, got total %v", stored.Total)
	}
}

func TestAddItemMergesAcrossCalls(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 10})
	svc, _, _ := newTestService(product)
	userID := primitive.NewObjectID()

	if _, err := svc.AddItem(context.Background(), userID, product.ID, 1, "M", nil); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	view, err := svc.AddItem(context.Background(), userID, product.ID, 1, "M", nil)
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	if len(view.Items) != 1 || view.Items[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", view.Items)
	}
	if view.Total != 690 {
		t.Fatalf("expected total 690 with free shipping, got %v", view.Total)
	}
}

func TestAddItemValidation(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 2})
	inactive := testProduct(100, models.ProductSize{Size: "M", InStock: true, Quantity: 5})
	inactive.IsActive = false

	svc, _, _ := newTestService(product, inactive)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	tests := []struct {
		name      string
		productID primitive.ObjectID
		quantity  int
		size      string
		want      error
	}{
		{"zero quantity", product.ID, 0, "M", ErrInvalidQuantity},
		{"negative quantity", product.ID, -2, "M", ErrInvalidQuantity},
		{"unknown product", primitive.NewObjectID(), 1, "M", ErrItemUnavailable},
		{"inactive product", inactive.ID, 1, "M", ErrItemUnavailable},
		{"unknown size", product.ID, 1, "XL", ErrItemUnavailable},
		{"insufficient stock", product.ID, 3, "M", ErrItemUnavailable},
	}

	for _, tt := range tests {
		_, err := svc.AddItem(ctx, userID, tt.productID, tt.quantity, tt.size, nil)
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestAddItemStockErrorCarriesDetail(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 2})
	svc, _, _ := newTestService(product)

	_, err := svc.AddItem(context.Background(), primitive.NewObjectID(), product.ID, 5, "M", nil)

	var stockErr *StockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected StockError, got %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 5 || stockErr.Size != "M" {
		t.Fatalf("unexpected stock detail: %+v", stockErr)
	}
}

func TestUpdateItemChecksStock(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 3})
	svc, _, _ := newTestService(product)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	view, err := svc.AddItem(ctx, userID, product.ID, 1, "M", nil)
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	if _, err := svc.UpdateItem(ctx, userID, view.Items[0].ID, 5); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	updated, err := svc.UpdateItem(ctx, userID, view.Items[0].ID, 3)
	if err != nil {
		t.Fatalf("UpdateItem returned error: %v", err)
	}
	if updated.Items[0].Quantity != 3 || updated.Items[0].TotalPrice != 900 {
		t.Fatalf("expected quantity 3 line total 900, got %+v", updated.Items[0])
	}
}

func TestUpdateItemUnknownLine(t *testing.T) {
	svc, _, _ := newTestService()
	userID := primitive.NewObjectID()

	if _, err := svc.View(context.Background(), userID); err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if _, err := svc.UpdateItem(context.Background(), userID, "missing", 2); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
}

func TestUpdateItemNoCart(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.UpdateItem(context.Background(), primitive.NewObjectID(), "any", 2); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestUpdateItemZeroRemovesLine(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 10})
	svc, _, _ := newTestService(product)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	view, err := svc.AddItem(ctx, userID, product.ID, 2, "M", nil)
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	cleared, err := svc.UpdateItem(ctx, userID, view.Items[0].ID, 0)
	if err != nil {
		t.Fatalf("UpdateItem returned error: %v", err)
	}
	if len(cleared.Items) != 0 || cleared.Total != 0 {
		t.Fatalf("expected emptied cart, got %+v", cleared)
	}
}

func TestRemoveItemIdempotentThroughService(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 10})
	svc, _, _ := newTestService(product)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	view, err := svc.AddItem(ctx, userID, product.ID, 1, "M", nil)
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	first, err := svc.RemoveItem(ctx, userID, view.Items[0].ID)
	if err != nil {
		t.Fatalf("RemoveItem returned error: %v", err)
	}
	second, err := svc.RemoveItem(ctx, userID, view.Items[0].ID)
	if err != nil {
		t.Fatalf("second RemoveItem returned error: %v", err)
	}
	if len(first.Items) != 0 || len(second.Items) != 0 {
		t.Fatal("expected cart to stay empty on repeated remove")
	}
}

func TestClearResetsDiscountAndTotals(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 10})
	svc, _, _ := newTestService(product)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, userID, product.ID, 2, "M", nil); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if _, err := svc.ApplyDiscount(ctx, userID, "SAVE20"); err != nil {
		t.Fatalf("ApplyDiscount returned error: %v", err)
	}

	view, err := svc.Clear(ctx, userID)
	if err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if len(view.Items) != 0 || view.Discount.Code != "" || view.Total != 0 {
		t.Fatalf("expected cleared cart, got %+v", view)
	}
}

func TestApplyDiscount(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 10})
	svc, _, _ := newTestService(product)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, userID, product.ID, 2, "M", nil); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	view, err := svc.ApplyDiscount(ctx, userID, "save20")
	if err != nil {
		t.Fatalf("ApplyDiscount returned error: %v", err)
	}
	if view.Discount.Code != "SAVE20" || view.Discount.Percentage != 20 {
		t.Fatalf("expected normalized SAVE20, got %+v", view.Discount)
	}
	if view.Total != 651 {
		t.Fatalf("expected total 651 after discount, got %v", view.Total)
	}

	if _, err := svc.ApplyDiscount(ctx, userID, "NOPE"); !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}

	removed, err := svc.RemoveDiscount(ctx, userID)
	if err != nil {
		t.Fatalf("RemoveDiscount returned error: %v", err)
	}
	if removed.Discount.Code != "" || removed.Total != 690 {
		t.Fatalf("expected discount removed and total 690, got %+v", removed)
	}
}

func TestCatalogFailureAbortsMutation(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 10})
	svc, store, catalog := newTestService(product)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, userID, product.ID, 1, "M", nil); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	before := store.carts[userID].Version

	catalog.down = true
	if _, err := svc.AddItem(ctx, userID, product.ID, 1, "M", nil); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}

	if store.carts[userID].Version != before {
		t.Fatal("failed mutation must not write the cart")
	}
	if store.carts[userID].Items[0].Quantity != 1 {
		t.Fatal("failed mutation must not change items")
	}
}

func TestConflictRetriesOnce(t *testing.T) {
	product := testProduct(300, models.ProductSize{Size: "M", InStock: true, Quantity: 10})
	svc, store, _ := newTestService(product)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := svc.View(ctx, userID); err != nil {
		t.Fatalf("View returned error: %v", err)
	}

	store.forceConflicts = 1
	if _, err := svc.AddItem(ctx, userID, product.ID, 1, "M", nil); err != nil {
		t.Fatalf("expected retry to absorb one conflict, got %v", err)
	}

	store.forceConflicts = 2
	if _, err := svc.AddItem(ctx, userID, product.ID, 1, "M", nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict after exhausted retry, got %v", err)
	}
}

// Two racing adds of distinct lines must both survive: the loser of the
// version race replays against the winner's document instead of
// overwriting it.
func TestConcurrentAddsBothSurvive(t *testing.T) {
	first := testProduct(100, models.ProductSize{Size: "M", InStock: true, Quantity: 10})
	second := testProduct(200, models.ProductSize{Size: "L", InStock: true, Quantity: 10})
	svc, store, _ := newTestService(first, second)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := svc.View(ctx, userID); err != nil {
		t.Fatalf("View returned error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, spec := range []struct {
		id   primitive.ObjectID
		size string
	}{
		{first.ID, "M"},
		{second.ID, "L"},
	} {
		wg.Add(1)
		go func(id primitive.ObjectID, size string) {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, userID, id, 1, size, nil); err != nil {
				errs <- err
			}
		}(spec.id, spec.size)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent AddItem returned error: %v", err)
	}

	final, err := store.GetActive(ctx, userID)
	if err != nil {
		t.Fatalf("GetActive returned error: %v", err)
	}
	if len(final.Items) != 2 {
		t.Fatalf("lost update: expected 2 lines, got %d", len(final.Items))
	}
	if final.Subtotal != 300 {
		t.Fatalf("expected subtotal 300 after both adds, got %v", final.Subtotal)
	}
}
