package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookstore-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// runContract exercises behaviour every Store implementation must share.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("DecrementStockIsConditional", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := &models.Product{Name: "Dune", Price: 300, Category: "Fiction", Stock: 3}
		require.NoError(t, s.CreateProduct(ctx, p))

		require.NoError(t, s.DecrementStock(ctx, p.ID, 2))
		err := s.DecrementStock(ctx, p.ID, 2)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.ErrorContains(t, err, "Dune")

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Stock)

		assert.ErrorIs(t, s.DecrementStock(ctx, primitive.NewObjectID(), 1), ErrNotFound)
		require.NoError(t, s.IncrementStock(ctx, p.ID, 4))
		got, _ = s.GetProduct(ctx, p.ID)
		assert.Equal(t, 5, got.Stock)
	})

	t.Run("ConcurrentDecrementsNeverOversell", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := &models.Product{Name: "Emma", Price: 100, Category: "Literature", Stock: 10}
		require.NoError(t, s.CreateProduct(ctx, p))

		var ok int64
		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.DecrementStock(ctx, p.ID, 1) == nil {
					atomic.AddInt64(&ok, 1)
				}
			}()
		}
		wg.Wait()

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), ok)
		assert.Equal(t, 0, got.Stock)
	})

	t.Run("ListProductsFiltersAndPaginates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
		for i := 0; i < 10; i++ {
			p := &models.Product{
				Name:      "Book " + string(rune('A'+i)),
				Price:     float64(100 * (i + 1)),
				Category:  "Fiction",
				Ratings:   float64(i % 5),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			require.NoError(t, s.CreateProduct(ctx, p))
		}
		require.NoError(t, s.CreateProduct(ctx, &models.Product{Name: "Atlas of History", Price: 50, Category: "History", CreatedAt: base}))

		all, err := s.CountProducts(ctx, ProductFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(11), all)

		page1, err := s.ListProducts(ctx, ProductFilter{Category: "Fiction"}, 1)
		require.NoError(t, err)
		assert.Len(t, page1, ResultPerPage)
		page2, err := s.ListProducts(ctx, ProductFilter{Category: "Fiction"}, 2)
		require.NoError(t, err)
		assert.Len(t, page2, 2)
		assert.Equal(t, "Book I", page2[0].Name)

		keyword, err := s.ListProducts(ctx, ProductFilter{Keyword: "atlas"}, 0)
		require.NoError(t, err)
		require.Len(t, keyword, 1)
		assert.Equal(t, "History", keyword[0].Category)

		lo, hi, minRating := 200.0, 500.0, 3.0
		ranged, err := s.ListProducts(ctx, ProductFilter{PriceGTE: &lo, PriceLTE: &hi, RatingsGTE: &minRating}, 0)
		require.NoError(t, err)
		require.Len(t, ranged, 2)
		assert.Equal(t, 400.0, ranged[0].Price)
		assert.Equal(t, 500.0, ranged[1].Price)
	})

	t.Run("Reviews", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := &models.Product{Name: "Ulysses", Category: "Literature"}
		require.NoError(t, s.CreateProduct(ctx, p))

		alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
		_, err := s.UpsertReview(ctx, p.ID, models.Review{User: alice, Name: "alice", Rating: 2})
		require.NoError(t, err)
		got, err := s.UpsertReview(ctx, p.ID, models.Review{User: bob, Name: "bob", Rating: 4})
		require.NoError(t, err)
		assert.Equal(t, 2, got.NumOfReviews)
		assert.InDelta(t, 3.0, got.Ratings, 1e-9)

		got, err = s.UpsertReview(ctx, p.ID, models.Review{User: alice, Name: "alice", Rating: 5})
		require.NoError(t, err)
		assert.Equal(t, 2, got.NumOfReviews)
		assert.InDelta(t, 4.5, got.Ratings, 1e-9)

		got, err = s.DeleteReview(ctx, p.ID, got.Reviews[1].ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.NumOfReviews)
		assert.InDelta(t, 5.0, got.Ratings, 1e-9)

		_, err = s.DeleteReview(ctx, p.ID, primitive.NewObjectID())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("TransitionIsCompareAndSet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		o := &models.Order{User: primitive.NewObjectID(), OrderStatus: models.StatusShipped, TotalPrice: 790}
		require.NoError(t, s.CreateOrder(ctx, o))

		at := time.Now().Truncate(time.Millisecond)
		require.NoError(t, s.TransitionOrderStatus(ctx, o.ID, models.StatusShipped, models.StatusDelivered, at))
		err := s.TransitionOrderStatus(ctx, o.ID, models.StatusShipped, models.StatusDelivered, at)
		assert.ErrorIs(t, err, ErrStatusConflict)

		got, err := s.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusDelivered, got.OrderStatus)
		require.NotNil(t, got.DeliveredAt)
		assert.True(t, got.DeliveredAt.Equal(at))

		err = s.TransitionOrderStatus(ctx, primitive.NewObjectID(), models.StatusProcessing, models.StatusConfirmed, at)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PaymentIDPaysForOneOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		paid := models.PaymentInfo{ID: "pi_3Nx", Status: "succeeded"}
		require.NoError(t, s.CreateOrder(ctx, &models.Order{User: primitive.NewObjectID(), PaymentInfo: paid}))

		err := s.CreateOrder(ctx, &models.Order{User: primitive.NewObjectID(), PaymentInfo: paid})
		assert.ErrorIs(t, err, ErrPaymentReused)

		// orders without a payment id do not collide with each other
		require.NoError(t, s.CreateOrder(ctx, &models.Order{User: primitive.NewObjectID()}))
		require.NoError(t, s.CreateOrder(ctx, &models.Order{User: primitive.NewObjectID()}))

		all, err := s.ListOrders(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("UpdateProductKeepsConcurrentStockChanges", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := &models.Product{Name: "Dune", Price: 300, Category: "Fiction", Stock: 5}
		require.NoError(t, s.CreateProduct(ctx, p))

		require.NoError(t, s.DecrementStock(ctx, p.ID, 3))
		_, err := s.UpsertReview(ctx, p.ID, models.Review{User: primitive.NewObjectID(), Name: "ann", Rating: 4})
		require.NoError(t, err)

		name, price := "Dune Messiah", 350.0
		got, err := s.UpdateProduct(ctx, p.ID, ProductUpdate{Name: &name, Price: &price})
		require.NoError(t, err)
		assert.Equal(t, "Dune Messiah", got.Name)
		assert.Equal(t, 350.0, got.Price)
		assert.Equal(t, 2, got.Stock)
		assert.Equal(t, 1, got.NumOfReviews)
		assert.Equal(t, "Fiction", got.Category)

		stock := 9
		got, err = s.UpdateProduct(ctx, p.ID, ProductUpdate{Stock: &stock})
		require.NoError(t, err)
		assert.Equal(t, 9, got.Stock)
		assert.Equal(t, "Dune Messiah", got.Name)

		_, err = s.UpdateProduct(ctx, primitive.NewObjectID(), ProductUpdate{Name: &name})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("OrdersByUser", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		me, other := primitive.NewObjectID(), primitive.NewObjectID()
		require.NoError(t, s.CreateOrder(ctx, &models.Order{User: me, TotalPrice: 1}))
		require.NoError(t, s.CreateOrder(ctx, &models.Order{User: me, TotalPrice: 2}))
		require.NoError(t, s.CreateOrder(ctx, &models.Order{User: other, TotalPrice: 3}))

		mine, err := s.ListOrdersByUser(ctx, me)
		require.NoError(t, err)
		assert.Len(t, mine, 2)
		all, err := s.ListOrders(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		require.NoError(t, s.DeleteOrder(ctx, all[0].ID))
		assert.ErrorIs(t, s.DeleteOrder(ctx, all[0].ID), ErrNotFound)
	})

	t.Run("UsersUniqueEmailAndResetToken", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := &models.User{Name: "ann", Email: "ann@example.com", Role: models.RoleUser}
		require.NoError(t, s.CreateUser(ctx, u))
		err := s.CreateUser(ctx, &models.User{Name: "ann2", Email: "ann@example.com"})
		assert.True(t, errors.Is(err, ErrDuplicateEmail))

		now := time.Now()
		expires := now.Add(15 * time.Minute)
		require.NoError(t, s.SetResetToken(ctx, u.ID, "abc", &expires))

		got, err := s.GetUserByResetToken(ctx, "abc", now)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		_, err = s.GetUserByResetToken(ctx, "abc", now.Add(time.Hour))
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.SetResetToken(ctx, u.ID, "", nil))
		_, err = s.GetUserByResetToken(ctx, "abc", now)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.DeleteUser(ctx, u.ID))
		assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), ErrNotFound)
	})
}
