package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

/*
GET /api/products
- filters: category, gender, search, minPrice, maxPrice
- pagination optional, applied only when page + limit are both present
*/
func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		filter := bson.M{"isActive": true}

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = category
		}

		// A gendered query still matches unisex products.
		if gender := strings.TrimSpace(c.Query("gender")); gender != "" && gender != "unisex" {
			filter["gender"] = bson.M{"$in": []string{gender, "unisex"}}
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["name"] = bson.M{"$regex": search, "$options": "i"}
		}

		if priceFilter := parsePriceFilter(c.Query("minPrice"), c.Query("maxPrice")); len(priceFilter) > 0 {
			filter["price"] = priceFilter
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		pageStr := c.Query("page")
		limitStr := c.Query("limit")

		if pageStr != "" && limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
				return
			}

			findOptions.
				SetSkip((page - 1) * limit).
				SetLimit(limit)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("products").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		log.Printf("[%s] returning %d products", route, len(products))
		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

// GetProduct looks a product up by id, falling back to slug.
func GetProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, route)

		key := strings.TrimSpace(c.Param("id"))

		filter := bson.M{"isActive": true}
		if id, err := primitive.ObjectIDFromHex(key); err == nil {
			filter["_id"] = id
		} else {
			filter["slug"] = key
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		if err := db.Collection("products").FindOne(ctx, filter).Decode(&product); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		applyDerivedProductFields(&product)
		c.JSON(http.StatusOK, gin.H{"product": product})
	}
}

// GetFeaturedProducts returns the featured selection, newest first.
func GetFeaturedProducts(db *mongo.Database) gin.HandlerFunc {
	return flaggedProducts(db, "GET /api/products/featured", bson.M{"isFeatured": true})
}

// GetNewArrivals returns products flagged as new arrivals, newest first.
func GetNewArrivals(db *mongo.Database) gin.HandlerFunc {
	return flaggedProducts(db, "GET /api/products/new-arrivals", bson.M{"isNewArrival": true})
}

func flaggedProducts(db *mongo.Database, route string, extra bson.M) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		limit := int64(10)
		if value := strings.TrimSpace(c.Query("limit")); value != "" {
			if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 && parsed <= 50 {
				limit = parsed
			}
		}

		filter := bson.M{"isActive": true}
		for key, value := range extra {
			filter[key] = value
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetLimit(limit)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("products").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

// GetProductFilters returns the distinct categories, brands and seasons of
// the active catalog for the storefront filter bar.
func GetProductFilters(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/categories"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		active := bson.M{"isActive": true}
		collection := db.Collection("products")

		categories, err := collection.Distinct(ctx, "category", active)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		brands, err := collection.Distinct(ctx, "brand", active)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		seasons, err := collection.Distinct(ctx, "season", active)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"categories": categories,
			"brands":     brands,
			"seasons":    seasons,
		})
	}
}

func parsePriceFilter(minStr, maxStr string) bson.M {
	priceFilter := bson.M{}
	if value := strings.TrimSpace(minStr); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 {
			priceFilter["$gte"] = parsed
		}
	}
	if value := strings.TrimSpace(maxStr); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			priceFilter["$lte"] = parsed
		}
	}
	return priceFilter
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]models.Product, error) {
	products := make([]models.Product, 0)

	for cursor.Next(ctx) {
		var product models.Product
		if err := cursor.Decode(&product); err != nil {
			return nil, err
		}

		applyDerivedProductFields(&product)
		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return products, nil
}
