package cart

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

// Catalog is the read-only view of the product store the cart engine
// depends on. Lookups that fail for any reason other than the product not
// existing must return an error wrapping ErrCatalogUnavailable.
type Catalog interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}

type mongoCatalog struct {
	db *mongo.Database
}

// NewCatalog returns a Catalog backed by the products collection.
func NewCatalog(db *mongo.Database) Catalog {
	return &mongoCatalog{db: db}
}

func (c *mongoCatalog) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var product models.Product
	err := c.db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, ErrItemUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return &product, nil
}
