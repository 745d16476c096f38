package cart

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// Defaults is the pricing policy stamped onto newly created carts.
type Defaults struct {
	TaxRate       float64
	ShippingCost  float64
	FreeThreshold float64
	TTL           time.Duration
}

// Repository owns the carts collection. All writes go through the version
// check so concurrent mutations of the same cart cannot silently overwrite
// each other.
type Repository struct {
	db       *mongo.Database
	defaults Defaults
}

func NewRepository(db *mongo.Database, defaults Defaults) *Repository {
	return &Repository{db: db, defaults: defaults}
}

func (r *Repository) carts() *mongo.Collection {
	return r.db.Collection("carts")
}

// GetActive returns the single active cart for a user.
func (r *Repository) GetActive(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cart models.Cart
	err := r.carts().FindOne(ctx, bson.M{"user": userID, "isActive": true}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreate returns the user's active cart, creating an empty one with the
// default pricing policy when none exists. The upsert is a single atomic
// find-or-create: two first-time callers racing on the same user cannot end
// up with two active carts, the unique partial index rejects the loser and
// the re-fetch picks up the winner's document.
func (r *Repository) GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	filter := bson.M{"user": userID, "isActive": true}
	update := bson.M{
		"$setOnInsert": bson.M{
			"items":    []models.CartItem{},
			"subtotal": 0.0,
			"tax":      0.0,
			"taxRate":  r.defaults.TaxRate,
			"shipping": models.Shipping{
				Cost:          r.defaults.ShippingCost,
				FreeThreshold: r.defaults.FreeThreshold,
			},
			"discount":  models.Discount{},
			"total":     0.0,
			"currency":  "ZAR",
			"version":   int64(0),
			"expiresAt": now.Add(r.defaults.TTL),
			"createdAt": now,
			"updatedAt": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var cart models.Cart
	err := r.carts().FindOneAndUpdate(ctx, filter, update, opts).Decode(&cart)
	if mongo.IsDuplicateKeyError(err) {
		return r.GetActive(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Update replaces the cart document, guarded by the version it was read at.
// A concurrent writer that got there first leaves nothing to match and the
// caller gets ErrConflict instead of overwriting their work.
func (r *Repository) Update(ctx context.Context, cart *models.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	next := *cart
	next.Version = cart.Version + 1

	res, err := r.carts().ReplaceOne(ctx, bson.M{"_id": cart.ID, "version": cart.Version}, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}

	cart.Version = next.Version
	return nil
}

// Deactivate retires the cart from active lookup, typically at checkout.
// The document stays behind until the expiry sweep reaps it.
func (r *Repository) Deactivate(ctx context.Context, cart *models.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.carts().UpdateOne(ctx,
		bson.M{"_id": cart.ID, "version": cart.Version},
		bson.M{
			"$set": bson.M{"isActive": false, "updatedAt": time.Now()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}

	cart.IsActive = false
	cart.Version++
	return nil
}

// PurgeExpired deletes carts that are both inactive and past their expiry.
// Active carts are never touched here, so the sweep cannot race a mutation.
func (r *Repository) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := r.carts().DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": time.Now()},
		"isActive":  false,
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Products batch-loads the catalog documents referenced by cart lines for
// the read-time display join. Missing products are simply absent from the
// result; the cart document is never backfilled with catalog state.
func (r *Repository) Products(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	products := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var product models.Product
		if err := cursor.Decode(&product); err != nil {
			return nil, err
		}
		products[product.ID] = product
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return products, nil
}
