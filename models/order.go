// order.go

package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusConfirmed  OrderStatus = "Confirmed"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusProcessing: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case StatusProcessing, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("invalid order status %q", s)
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order in status from may move to status to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ShippingInfo struct {
	Address string `bson:"address" json:"address" binding:"required"`
	City    string `bson:"city" json:"city" binding:"required"`
	State   string `bson:"state" json:"state" binding:"required"`
	Country string `bson:"country" json:"country" binding:"required"`
	PinCode string `bson:"pinCode" json:"pinCode" binding:"required"`
	PhoneNo string `bson:"phoneNo" json:"phoneNo" binding:"required"`
}

// OrderItem is a snapshot of the product taken when the order was placed.
type OrderItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Name     string             `bson:"name" json:"name"`
	Price    float64            `bson:"price" json:"price"`
	Image    string             `bson:"image" json:"image"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

type PaymentInfo struct {
	ID     string `bson:"id" json:"id" binding:"required"`
	Status string `bson:"status" json:"status"`
}

type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User          primitive.ObjectID `bson:"user" json:"user"`
	ShippingInfo  ShippingInfo       `bson:"shippingInfo" json:"shippingInfo"`
	OrderItems    []OrderItem        `bson:"orderItems" json:"orderItems"`
	PaymentInfo   PaymentInfo        `bson:"paymentInfo" json:"paymentInfo"`
	ItemsPrice    float64            `bson:"itemsPrice" json:"itemsPrice"`
	TaxPrice      float64            `bson:"taxPrice" json:"taxPrice"`
	ShippingPrice float64            `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice    float64            `bson:"totalPrice" json:"totalPrice"`
	OrderStatus   OrderStatus        `bson:"orderStatus" json:"orderStatus"`
	PaidAt        time.Time          `bson:"paidAt" json:"paidAt"`
	DeliveredAt   *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
