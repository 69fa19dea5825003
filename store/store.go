// Package store is the document-store boundary for products, orders and users.
package store

import (
	"context"
	"errors"
	"time"

	"bookstore-backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("not enough stock")
	ErrDuplicateEmail    = errors.New("user already exists")
	ErrStatusConflict    = errors.New("order status was changed by another request")
	ErrInvalidID         = errors.New("invalid id")
	ErrPaymentReused     = errors.New("payment has already been used for another order")
)

// ResultPerPage is the product listing page size.
const ResultPerPage = 8

type ProductFilter struct {
	Keyword    string
	Category   string
	PriceGTE   *float64
	PriceLTE   *float64
	RatingsGTE *float64
}

// ProductUpdate lists the fields an admin edit changes. Nil fields are left
// as stored, so counters moved by checkouts and reviews are never rewritten
// from a stale read.
type ProductUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Price       *float64
	Stock       *int
	Images      *[]models.Image
}

func (u ProductUpdate) apply(p *models.Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Images != nil {
		p.Images = *u.Images
	}
}

type Products interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	// ListProducts returns one page of matching products; page 0 returns all of them.
	ListProducts(ctx context.Context, f ProductFilter, page int) ([]models.Product, error)
	CountProducts(ctx context.Context, f ProductFilter) (int64, error)
	// UpdateProduct sets only the fields present in u and returns the result.
	UpdateProduct(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error

	// DecrementStock removes qty units only if at least qty are available.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error

	// UpsertReview replaces the review written by the same user or appends a new one.
	UpsertReview(ctx context.Context, productID primitive.ObjectID, r models.Review) (*models.Product, error)
	DeleteReview(ctx context.Context, productID, reviewID primitive.ObjectID) (*models.Product, error)
}

type Orders interface {
	// CreateOrder fails with ErrPaymentReused when another order already
	// carries the same non-empty payment id.
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	DeleteOrder(ctx context.Context, id primitive.ObjectID) error
	// TransitionOrderStatus moves the order from one status to another only if
	// it is still in status from. Moving to Delivered stamps deliveredAt.
	TransitionOrderStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) error
}

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	// SetResetToken stores a hashed reset token; an empty hash clears it.
	SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expires *time.Time) error
	GetUserByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error)
}

type Store interface {
	Products
	Orders
	Users
	Close(ctx context.Context) error
}

func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

func upsertReview(reviews []models.Review, r models.Review) []models.Review {
	for i := range reviews {
		if reviews[i].User == r.User {
			r.ID = reviews[i].ID
			reviews[i] = r
			return reviews
		}
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	return append(reviews, r)
}

func removeReview(reviews []models.Review, reviewID primitive.ObjectID) ([]models.Review, bool) {
	for i := range reviews {
		if reviews[i].ID == reviewID {
			return append(reviews[:i:i], reviews[i+1:]...), true
		}
	}
	return reviews, false
}
