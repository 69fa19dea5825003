package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bookstore-backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store used for tests and DB_DRIVER=memory.
type Memory struct {
	mu sync.RWMutex

	products map[primitive.ObjectID]models.Product
	orders   map[primitive.ObjectID]models.Order
	users    map[primitive.ObjectID]models.User
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[primitive.ObjectID]models.Product),
		orders:   make(map[primitive.ObjectID]models.Order),
		users:    make(map[primitive.ObjectID]models.User),
	}
}

func (m *Memory) Close(context.Context) error { return nil }

// ----- Products -----

func (m *Memory) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.products[p.ID] = copyProduct(*p)
	return nil
}

func (m *Memory) GetProduct(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, productNotFound(id)
	}
	p = copyProduct(p)
	return &p, nil
}

func (m *Memory) ListProducts(_ context.Context, f ProductFilter, page int) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := m.filterProducts(f)
	if page <= 0 {
		return res, nil
	}
	start := (page - 1) * ResultPerPage
	if start >= len(res) {
		return []models.Product{}, nil
	}
	end := start + ResultPerPage
	if end > len(res) {
		end = len(res)
	}
	return res[start:end], nil
}

func (m *Memory) CountProducts(_ context.Context, f ProductFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.filterProducts(f))), nil
}

func (m *Memory) filterProducts(f ProductFilter) []models.Product {
	keyword := strings.ToLower(f.Keyword)
	res := []models.Product{}
	for _, p := range m.products {
		if keyword != "" && !strings.Contains(strings.ToLower(p.Name), keyword) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.PriceGTE != nil && p.Price < *f.PriceGTE {
			continue
		}
		if f.PriceLTE != nil && p.Price > *f.PriceLTE {
			continue
		}
		if f.RatingsGTE != nil && p.Ratings < *f.RatingsGTE {
			continue
		}
		res = append(res, copyProduct(p))
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID.Hex() < res[j].ID.Hex()
	})
	return res
}

func (m *Memory) UpdateProduct(_ context.Context, id primitive.ObjectID, u ProductUpdate) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, productNotFound(id)
	}
	u.apply(&p)
	p = copyProduct(p)
	m.products[id] = p

	out := copyProduct(p)
	return &out, nil
}

func (m *Memory) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return productNotFound(id)
	}
	delete(m.products, id)
	return nil
}

func (m *Memory) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return productNotFound(id)
	}
	if p.Stock < qty {
		return fmt.Errorf("%w for product: %s", ErrInsufficientStock, p.Name)
	}
	p.Stock -= qty
	m.products[id] = p
	return nil
}

func (m *Memory) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return productNotFound(id)
	}
	p.Stock += qty
	m.products[id] = p
	return nil
}

func (m *Memory) UpsertReview(_ context.Context, productID primitive.ObjectID, r models.Review) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, productNotFound(productID)
	}
	p = copyProduct(p)
	p.Reviews = upsertReview(p.Reviews, r)
	p.RecomputeRatings()
	m.products[productID] = p

	out := copyProduct(p)
	return &out, nil
}

func (m *Memory) DeleteReview(_ context.Context, productID, reviewID primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, productNotFound(productID)
	}
	p = copyProduct(p)
	reviews, found := removeReview(p.Reviews, reviewID)
	if !found {
		return nil, fmt.Errorf("review %w with id: %s", ErrNotFound, reviewID.Hex())
	}
	p.Reviews = reviews
	p.RecomputeRatings()
	m.products[productID] = p

	out := copyProduct(p)
	return &out, nil
}

// ----- Orders -----

func (m *Memory) CreateOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pid := o.PaymentInfo.ID; pid != "" {
		for _, existing := range m.orders {
			if existing.PaymentInfo.ID == pid {
				return fmt.Errorf("%w: %s", ErrPaymentReused, pid)
			}
		}
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	m.orders[o.ID] = copyOrder(*o)
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, orderNotFound(id)
	}
	o = copyOrder(o)
	return &o, nil
}

func (m *Memory) ListOrdersByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedOrders(func(o models.Order) bool { return o.User == userID }), nil
}

func (m *Memory) ListOrders(context.Context) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedOrders(func(models.Order) bool { return true }), nil
}

func (m *Memory) sortedOrders(keep func(models.Order) bool) []models.Order {
	res := []models.Order{}
	for _, o := range m.orders {
		if keep(o) {
			res = append(res, copyOrder(o))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID.Hex() < res[j].ID.Hex()
	})
	return res
}

func (m *Memory) DeleteOrder(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return orderNotFound(id)
	}
	delete(m.orders, id)
	return nil
}

func (m *Memory) TransitionOrderStatus(_ context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return orderNotFound(id)
	}
	if o.OrderStatus != from {
		return ErrStatusConflict
	}
	o.OrderStatus = to
	if to == models.StatusDelivered {
		o.DeliveredAt = &at
	}
	m.orders[id] = o
	return nil
}

// ----- Users -----

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTaken(u.Email, primitive.NilObjectID) {
		return ErrDuplicateEmail
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, userNotFound(id)
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %w with email: %s", ErrNotFound, email)
}

func (m *Memory) ListUsers(context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID.Hex() < res[j].ID.Hex() })
	return res, nil
}

func (m *Memory) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return userNotFound(u.ID)
	}
	if m.emailTaken(u.Email, u.ID) {
		return ErrDuplicateEmail
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return userNotFound(id)
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) SetResetToken(_ context.Context, id primitive.ObjectID, hash string, expires *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return userNotFound(id)
	}
	u.ResetPasswordToken = hash
	u.ResetPasswordTime = expires
	if hash == "" {
		u.ResetPasswordTime = nil
	}
	m.users[id] = u
	return nil
}

func (m *Memory) GetUserByResetToken(_ context.Context, hash string, now time.Time) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if hash != "" && u.ResetPasswordToken == hash && u.ResetPasswordTime != nil && u.ResetPasswordTime.After(now) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("reset token %w", ErrNotFound)
}

func (m *Memory) emailTaken(email string, except primitive.ObjectID) bool {
	for id, u := range m.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func copyProduct(p models.Product) models.Product {
	if p.Images != nil {
		p.Images = append(make([]models.Image, 0, len(p.Images)), p.Images...)
	}
	if p.Reviews != nil {
		p.Reviews = append(make([]models.Review, 0, len(p.Reviews)), p.Reviews...)
	}
	return p
}

func copyOrder(o models.Order) models.Order {
	o.OrderItems = append([]models.OrderItem(nil), o.OrderItems...)
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	return o
}

func productNotFound(id primitive.ObjectID) error {
	return fmt.Errorf("product %w with id: %s", ErrNotFound, id.Hex())
}

func orderNotFound(id primitive.ObjectID) error {
	return fmt.Errorf("order %w with id: %s", ErrNotFound, id.Hex())
}

func userNotFound(id primitive.ObjectID) error {
	return fmt.Errorf("user %w with id: %s", ErrNotFound, id.Hex())
}
