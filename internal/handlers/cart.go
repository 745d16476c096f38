package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/cart"
	"backend/internal/models"
)

type cartColorRequest struct {
	Name string `json:"name" binding:"required"`
	Hex  string `json:"hex"`
}

type addToCartRequest struct {
	ProductID string            `json:"productId" binding:"required"`
	Quantity  int               `json:"quantity" binding:"required"`
	Size      string            `json:"size" binding:"required"`
	Color     *cartColorRequest `json:"color"`
}

// Quantity is a pointer so an explicit zero (remove the line) still passes
// the required check.
type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type discountRequest struct {
	Code string `json:"code" binding:"required"`
}

// GetCart returns the caller's priced cart, creating one when absent.
func GetCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		view, err := svc.View(c.Request.Context(), userID)
		if err != nil {
			respondWithCartError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"cart": view})
	}
}

// AddToCart adds quantity units of a product size to the caller's cart.
func AddToCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart/add"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		var color *models.CartColor
		if req.Color != nil {
			color = &models.CartColor{Name: req.Color.Name, Hex: req.Color.Hex}
		}

		view, err := svc.AddItem(c.Request.Context(), userID, productID, req.Quantity, req.Size, color)
		if err != nil {
			respondWithCartError(c, route, err)
			return
		}

		log.Printf("[%s] item added for user %s", route, userID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "item added to cart", "cart": view})
	}
}

// UpdateCartItem sets a line's quantity; zero removes the line.
func UpdateCartItem(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/cart/update/:itemId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		view, err := svc.UpdateItem(c.Request.Context(), userID, c.Param("itemId"), *req.Quantity)
		if err != nil {
			respondWithCartError(c, route, err)
			return
		}

		message := "cart updated"
		if *req.Quantity <= 0 {
			message = "item removed from cart"
		}
		c.JSON(http.StatusOK, gin.H{"message": message, "cart": view})
	}
}

// RemoveFromCart deletes a line from the caller's cart.
func RemoveFromCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/remove/:itemId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		view, err := svc.RemoveItem(c.Request.Context(), userID, c.Param("itemId"))
		if err != nil {
			respondWithCartError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "item removed from cart", "cart": view})
	}
}

// ClearCart empties the caller's cart and drops any discount.
func ClearCart(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/clear"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		view, err := svc.Clear(c.Request.Context(), userID)
		if err != nil {
			respondWithCartError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cart cleared", "cart": view})
	}
}

// ApplyCartDiscount applies a discount code to the caller's cart.
func ApplyCartDiscount(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart/discount"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req discountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		view, err := svc.ApplyDiscount(c.Request.Context(), userID, req.Code)
		if err != nil {
			respondWithCartError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "discount applied", "cart": view})
	}
}

// RemoveCartDiscount clears the discount on the caller's cart.
func RemoveCartDiscount(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/discount"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		view, err := svc.RemoveDiscount(c.Request.Context(), userID)
		if err != nil {
			respondWithCartError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "discount removed", "cart": view})
	}
}

// statusForCartError maps engine errors onto HTTP statuses. Anything outside
// the cart taxonomy is a 500 with no internal detail.
func statusForCartError(err error) (int, string) {
	code := cart.Code(err)
	switch code {
	case "InvalidQuantity", "ItemUnavailable", "InsufficientStock", "InvalidDiscountCode":
		return http.StatusBadRequest, code
	case "CartNotFound", "LineNotFound":
		return http.StatusNotFound, code
	case "CatalogUnavailable":
		return http.StatusServiceUnavailable, code
	case "ConcurrencyConflict":
		return http.StatusConflict, code
	}
	return http.StatusInternalServerError, ""
}

func respondWithCartError(c *gin.Context, route string, err error) {
	status, code := statusForCartError(err)
	if code == "" {
		log.Printf("[%s] internal error: %v", route, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": publicCartMessage(err), "code": code}
	var stockErr *cart.StockError
	if errors.As(err, &stockErr) {
		body["productId"] = stockErr.ProductID.Hex()
		body["size"] = stockErr.Size
		body["available"] = stockErr.Available
		body["requested"] = stockErr.Requested
	}

	log.Printf("[%s] returning error %d: %s", route, status, code)
	c.AbortWithStatusJSON(status, body)
}

// publicCartMessage strips stock detail down to the sentinel text so the
// human message stays stable across storage changes.
func publicCartMessage(err error) string {
	for _, sentinel := range []error{
		cart.ErrCartNotFound,
		cart.ErrLineNotFound,
		cart.ErrInvalidQuantity,
		cart.ErrItemUnavailable,
		cart.ErrInsufficientStock,
		cart.ErrInvalidDiscount,
		cart.ErrCatalogUnavailable,
		cart.ErrConflict,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get("userId")
	if !ok {
		log.Println("[CART] [ERROR] userId missing in context")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return primitive.NilObjectID, false
	}
	userID, ok := value.(primitive.ObjectID)
	if !ok {
		log.Println("[CART] [ERROR] userId has unexpected type")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return primitive.NilObjectID, false
	}
	return userID, true
}
