package cart

import (
	"testing"

	"bookstore-backend/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func item(id primitive.ObjectID, price float64, stock, qty int) Item {
	return Item{Product: id, Name: "book", Price: price, Stock: stock, Quantity: qty}
}

func TestCartAddReplacesExistingEntry(t *testing.T) {
	id := primitive.NewObjectID()
	var c Cart

	c.Add(item(id, 100, 5, 1))
	c.Add(item(id, 120, 5, 3))

	assert.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 120.0, c.Items[0].Price)
}

func TestCartUpdateQuantityClampsToStock(t *testing.T) {
	id := primitive.NewObjectID()
	var c Cart
	c.Add(item(id, 100, 4, 1))

	assert.True(t, c.UpdateQuantity(id, 10))
	assert.Equal(t, 4, c.Items[0].Quantity)

	assert.True(t, c.UpdateQuantity(id, 0))
	assert.Equal(t, 1, c.Items[0].Quantity)

	assert.False(t, c.UpdateQuantity(primitive.NewObjectID(), 2))
}

func TestCartRemoveAndClear(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	var c Cart
	c.Add(item(a, 100, 5, 1))
	c.Add(item(b, 50, 5, 2))

	c.Remove(a)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, b, c.Items[0].Product)

	c.Clear()
	assert.Empty(t, c.Items)
}

func TestCartQuote(t *testing.T) {
	var c Cart
	c.Add(item(primitive.NewObjectID(), 250, 10, 2))

	q := c.Quote()
	assert.Equal(t, 500.0, q.ItemsPrice)
	assert.Equal(t, 790.0, q.TotalPrice)
}

func TestFavoritesIgnoreQuantity(t *testing.T) {
	id := primitive.NewObjectID()
	var f Favorites

	f.Add(item(id, 100, 5, 3))
	f.Add(item(id, 90, 5, 1))

	assert.Len(t, f.Items, 1)
	assert.Equal(t, 0, f.Items[0].Quantity)
	assert.Equal(t, 90.0, f.Items[0].Price)

	f.Remove(id)
	assert.Empty(t, f.Items)

	f.Add(item(id, 100, 5, 0))
	f.Reset()
	assert.Empty(t, f.Items)
}

func TestSnapshotFromProduct(t *testing.T) {
	p := models.Product{
		ID:     primitive.NewObjectID(),
		Name:   "Dune",
		Price:  499,
		Stock:  7,
		Images: []models.Image{{URL: "https://img/1.jpg", PublicID: "products/1"}, {URL: "https://img/2.jpg"}},
	}

	it := SnapshotFromProduct(p, 2)
	assert.Equal(t, p.ID, it.Product)
	assert.Equal(t, "https://img/1.jpg", it.Image)
	assert.Equal(t, 7, it.Stock)
	assert.Equal(t, 2, it.Quantity)
}
