package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is a cart line frozen at checkout time.
type OrderItem struct {
	ProductID  primitive.ObjectID `bson:"product" json:"productId"`
	Name       string             `bson:"name" json:"name"`
	Image      string             `bson:"image,omitempty" json:"image,omitempty"`
	Price      float64            `bson:"price" json:"price"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	Size       string             `bson:"size" json:"size"`
	Color      *CartColor         `bson:"color,omitempty" json:"color,omitempty"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
}

// OrderAddress is the delivery address captured on the order.
type OrderAddress struct {
	FirstName  string `bson:"firstName" json:"firstName"`
	LastName   string `bson:"lastName" json:"lastName"`
	Email      string `bson:"email" json:"email"`
	Phone      string `bson:"phone" json:"phone"`
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	Province   string `bson:"province" json:"province"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

// Order is the persisted order document. Pricing fields are copied from the
// cart at checkout; the cart itself is deactivated afterwards.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"user" json:"userId"`
	OrderNumber     string             `bson:"orderNumber" json:"orderNumber"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress OrderAddress       `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	Status          string             `bson:"status" json:"status"`
	Subtotal        float64            `bson:"subtotal" json:"subtotal"`
	Discount        Discount           `bson:"discount" json:"discount"`
	Tax             float64            `bson:"tax" json:"tax"`
	ShippingCost    float64            `bson:"shippingCost" json:"shippingCost"`
	Total           float64            `bson:"total" json:"total"`
	Currency        string             `bson:"currency" json:"currency"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
