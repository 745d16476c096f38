package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/cart"
)

func TestStatusForCartError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{cart.ErrInvalidQuantity, http.StatusBadRequest, "InvalidQuantity"},
		{cart.ErrItemUnavailable, http.StatusBadRequest, "ItemUnavailable"},
		{cart.ErrInsufficientStock, http.StatusBadRequest, "InsufficientStock"},
		{cart.ErrInvalidDiscount, http.StatusBadRequest, "InvalidDiscountCode"},
		{cart.ErrCartNotFound, http.StatusNotFound, "CartNotFound"},
		{cart.ErrLineNotFound, http.StatusNotFound, "LineNotFound"},
		{cart.ErrCatalogUnavailable, http.StatusServiceUnavailable, "CatalogUnavailable"},
		{cart.ErrConflict, http.StatusConflict, "ConcurrencyConflict"},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		status, code := statusForCartError(tt.err)
		if status != tt.wantStatus || code != tt.wantCode {
			t.Fatalf("statusForCartError(%v): expected %d %q, got %d %q",
				tt.err, tt.wantStatus, tt.wantCode, status, code)
		}
	}
}

func TestStatusForCartErrorUnwrapsStockError(t *testing.T) {
	err := &cart.StockError{
		Kind:      cart.ErrInsufficientStock,
		ProductID: primitive.NewObjectID(),
		Size:      "M",
		Available: 2,
		Requested: 5,
	}

	status, code := statusForCartError(err)
	if status != http.StatusBadRequest || code != "InsufficientStock" {
		t.Fatalf("expected 400 InsufficientStock, got %d %q", status, code)
	}
}

func TestStatusForCartErrorUnwrapsWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("%w: connection reset", cart.ErrCatalogUnavailable)

	status, code := statusForCartError(err)
	if status != http.StatusServiceUnavailable || code != "CatalogUnavailable" {
		t.Fatalf("expected 503 CatalogUnavailable, got %d %q", status, code)
	}
}

func TestPublicCartMessage(t *testing.T) {
	stockErr := &cart.StockError{
		Kind:      cart.ErrItemUnavailable,
		ProductID: primitive.NewObjectID(),
		Size:      "XL",
		Requested: 1,
	}
	if got := publicCartMessage(stockErr); got != cart.ErrItemUnavailable.Error() {
		t.Fatalf("expected sentinel text, got %q", got)
	}

	if got := publicCartMessage(errors.New("mongo: socket closed")); got != "internal server error" {
		t.Fatalf("expected generic message for unknown error, got %q", got)
	}
}
