package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token failed: %v", err)
	}
	return token
}

func TestUserIDFromTokenRoundTrip(t *testing.T) {
	userID := primitive.NewObjectID()
	token := signedToken(t, testSecret, jwt.MapClaims{
		"userId": userID.Hex(),
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	got, err := userIDFromToken("Bearer "+token, testSecret)
	if err != nil {
		t.Fatalf("userIDFromToken returned error: %v", err)
	}
	if got != userID {
		t.Fatalf("expected %s, got %s", userID.Hex(), got.Hex())
	}
}

func TestUserIDFromTokenRejectsBadInput(t *testing.T) {
	valid := signedToken(t, testSecret, jwt.MapClaims{
		"userId": primitive.NewObjectID().Hex(),
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	expired := signedToken(t, testSecret, jwt.MapClaims{
		"userId": primitive.NewObjectID().Hex(),
		"exp":    time.Now().Add(-time.Hour).Unix(),
	})
	wrongSecret := signedToken(t, "other-secret", jwt.MapClaims{
		"userId": primitive.NewObjectID().Hex(),
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	noUserID := signedToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	badUserID := signedToken(t, testSecret, jwt.MapClaims{
		"userId": "not-an-object-id",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"missing scheme", valid},
		{"wrong scheme", "Basic " + valid},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
		{"missing userId claim", "Bearer " + noUserID},
		{"malformed userId claim", "Bearer " + badUserID},
	}

	for _, tt := range tests {
		if _, err := userIDFromToken(tt.header, testSecret); err == nil {
			t.Fatalf("%s: expected error, got none", tt.name)
		}
	}
}
