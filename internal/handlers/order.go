package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/cart"
	"backend/internal/models"
)

type shippingAddressRequest struct {
	FirstName  string `json:"firstName" binding:"required"`
	LastName   string `json:"lastName" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	Province   string `json:"province" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country"`
}

type createOrderRequest struct {
	ShippingAddress shippingAddressRequest `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
}

var validPaymentMethods = map[string]bool{
	"card":             true,
	"payfast":          true,
	"eft":              true,
	"cash_on_delivery": true,
}

// CreateOrder checks the caller's active cart out: it re-validates per-size
// stock, decrements it, snapshots the cart lines and totals into an order,
// and deactivates the cart, all inside one transaction. The retired cart is
// later reaped by the expiry sweep.
func CreateOrder(db *mongo.Database, repo *cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if !validPaymentMethods[req.PaymentMethod] {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment method")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		activeCart, err := repo.GetActive(ctx, userID)
		if err != nil {
			if errors.Is(err, cart.ErrCartNotFound) {
				respondWithError(c, http.StatusBadRequest, route, "cart is empty")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if len(activeCart.Items) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "cart is empty")
			return
		}

		orderNumber, err := newOrderNumber()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "order number generation failed")
			return
		}

		country := strings.TrimSpace(req.ShippingAddress.Country)
		if country == "" {
			country = "South Africa"
		}

		order := models.Order{
			UserID:      userID,
			OrderNumber: orderNumber,
			ShippingAddress: models.OrderAddress{
				FirstName:  strings.TrimSpace(req.ShippingAddress.FirstName),
				LastName:   strings.TrimSpace(req.ShippingAddress.LastName),
				Email:      strings.ToLower(strings.TrimSpace(req.ShippingAddress.Email)),
				Phone:      strings.TrimSpace(req.ShippingAddress.Phone),
				Street:     strings.TrimSpace(req.ShippingAddress.Street),
				City:       strings.TrimSpace(req.ShippingAddress.City),
				Province:   strings.TrimSpace(req.ShippingAddress.Province),
				PostalCode: strings.TrimSpace(req.ShippingAddress.PostalCode),
				Country:    country,
			},
			PaymentMethod: req.PaymentMethod,
			Status:        "pending",
			Subtotal:      activeCart.Subtotal,
			Discount:      activeCart.Discount,
			Tax:           activeCart.Tax,
			ShippingCost:  activeCart.ShippingCost(),
			Total:         activeCart.Total,
			Currency:      activeCart.Currency,
			CreatedAt:     time.Now(),
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		var orderID primitive.ObjectID
		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			items := make([]models.OrderItem, 0, len(activeCart.Items))

			for _, line := range activeCart.Items {
				var product models.Product
				err := db.Collection("products").FindOne(sessCtx, bson.M{
					"_id":      line.ProductID,
					"isActive": true,
				}).Decode(&product)
				if err == mongo.ErrNoDocuments {
					return nil, &cart.StockError{Kind: cart.ErrItemUnavailable, ProductID: line.ProductID, Size: line.Size, Requested: line.Quantity}
				}
				if err != nil {
					return nil, err
				}

				// Guarded decrement: only matches while the size still holds
				// enough stock, so two checkouts cannot both take the last units.
				filter := bson.M{
					"_id": line.ProductID,
					"sizes": bson.M{"$elemMatch": bson.M{
						"size":     line.Size,
						"quantity": bson.M{"$gte": line.Quantity},
					}},
				}
				update := bson.M{"$inc": bson.M{
					"sizes.$.quantity": -line.Quantity,
					"totalQuantity":    -line.Quantity,
				}}

				res, err := db.Collection("products").UpdateOne(sessCtx, filter, update)
				if err != nil {
					return nil, err
				}
				if res.MatchedCount == 0 {
					available := 0
					if option := product.SizeOption(line.Size); option != nil {
						available = option.Quantity
					}
					return nil, &cart.StockError{
						Kind:      cart.ErrInsufficientStock,
						ProductID: line.ProductID,
						Size:      line.Size,
						Available: available,
						Requested: line.Quantity,
					}
				}

				items = append(items, models.OrderItem{
					ProductID:  line.ProductID,
					Name:       product.Name,
					Image:      product.PrimaryImage(),
					Price:      line.Price,
					Quantity:   line.Quantity,
					Size:       line.Size,
					Color:      line.Color,
					TotalPrice: line.TotalPrice,
				})
			}

			order.Items = items

			res, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			if id, ok := res.InsertedID.(primitive.ObjectID); ok {
				orderID = id
			}

			return nil, repo.Deactivate(sessCtx, activeCart)
		})
		if err != nil {
			var stockErr *cart.StockError
			if errors.As(err, &stockErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":     "insufficient stock",
					"productId": stockErr.ProductID.Hex(),
					"size":      stockErr.Size,
					"available": stockErr.Available,
					"requested": stockErr.Requested,
				})
				return
			}
			if errors.Is(err, cart.ErrConflict) {
				respondWithError(c, http.StatusConflict, route, "cart changed during checkout, please retry")
				return
			}
			log.Printf("[%s] checkout transaction failed: %v", route, err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		order.ID = orderID

		log.Printf("[%s] order %s created for user %s", route, order.OrderNumber, userID.Hex())
		c.JSON(http.StatusCreated, gin.H{
			"orderId":     orderID.Hex(),
			"orderNumber": order.OrderNumber,
			"order":       order,
		})
	}
}

// GetMyOrders lists the caller's orders, newest first.
func GetMyOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("orders").Find(ctx, bson.M{"user": userID}, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

// GetMyOrder returns one of the caller's orders by id or order number.
func GetMyOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		key := strings.TrimSpace(c.Param("id"))
		filter := bson.M{"user": userID}
		if id, err := primitive.ObjectIDFromHex(key); err == nil {
			filter["_id"] = id
		} else {
			filter["orderNumber"] = key
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		if err := db.Collection("orders").FindOne(ctx, filter).Decode(&order); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "order not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

func newOrderNumber() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%s",
		time.Now().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(buf[:])),
	), nil
}
