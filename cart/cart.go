// Package cart mirrors the storefront's client-side cart and favorites lists.
// Neither list is persisted on the server; they are rebuilt from product
// lookups whenever the client syncs.
package cart

import (
	"bookstore-backend/models"
	"bookstore-backend/pricing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Item struct {
	Product  primitive.ObjectID `json:"product"`
	Name     string             `json:"name"`
	Price    float64            `json:"price"`
	Image    string             `json:"image"`
	Stock    int                `json:"stock"`
	Quantity int                `json:"quantity,omitempty"`
}

// SnapshotFromProduct builds a cart entry from the live product document.
func SnapshotFromProduct(p models.Product, quantity int) Item {
	return Item{
		Product:  p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.FirstImageURL(),
		Stock:    p.Stock,
		Quantity: quantity,
	}
}

type Cart struct {
	Items []Item `json:"cartItems"`
}

// Add replaces the entry for the same product, or appends a new one.
func (c *Cart) Add(item Item) {
	c.Items = upsert(c.Items, item)
}

func (c *Cart) Remove(productID primitive.ObjectID) {
	c.Items = remove(c.Items, productID)
}

// UpdateQuantity sets the quantity of an entry, bounded by [1, stock].
// It reports false if the product is not in the cart.
func (c *Cart) UpdateQuantity(productID primitive.ObjectID, quantity int) bool {
	for i := range c.Items {
		if c.Items[i].Product != productID {
			continue
		}
		c.Items[i].Quantity = clamp(quantity, c.Items[i].Stock)
		return true
	}
	return false
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{Price: it.Price, Quantity: it.Quantity})
	}
	return lines
}

func (c *Cart) Quote() pricing.Breakdown {
	return pricing.Quote(c.Lines())
}

type Favorites struct {
	Items []Item `json:"favoriteItems"`
}

func (f *Favorites) Add(item Item) {
	item.Quantity = 0
	f.Items = upsert(f.Items, item)
}

func (f *Favorites) Remove(productID primitive.ObjectID) {
	f.Items = remove(f.Items, productID)
}

func (f *Favorites) Reset() {
	f.Items = nil
}

func upsert(items []Item, item Item) []Item {
	for i := range items {
		if items[i].Product == item.Product {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func remove(items []Item, productID primitive.ObjectID) []Item {
	out := items[:0]
	for _, it := range items {
		if it.Product != productID {
			out = append(out, it)
		}
	}
	return out
}

func clamp(quantity, stock int) int {
	if quantity > stock {
		quantity = stock
	}
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}
