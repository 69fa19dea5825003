package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"bookstore-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Mongo struct {
	client   *mongo.Client
	products *mongo.Collection
	orders   *mongo.Collection
	users    *mongo.Collection
}

// ConnectMongo dials the server, verifies it with a ping and ensures indexes.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	m := &Mongo{
		client:   client,
		products: db.Collection("products"),
		orders:   db.Collection("orders"),
		users:    db.Collection("users"),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users.email index: %w", err)
	}
	if _, err := m.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create orders.user index: %w", err)
	}
	// One payment pays for one order. Orders without a payment id are exempt.
	if _, err := m.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "paymentInfo.id", Value: 1}},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
			"paymentInfo.id": bson.M{"$gt": ""},
		}),
	}); err != nil {
		return fmt.Errorf("create orders.paymentInfo.id index: %w", err)
	}
	if _, err := m.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create products.category index: %w", err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ----- Products -----

func (m *Mongo) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if _, err := m.products.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (m *Mongo) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	err := m.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, productNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

func productQuery(f ProductFilter) bson.M {
	q := bson.M{}
	if f.Keyword != "" {
		q["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Keyword), "$options": "i"}
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	price := bson.M{}
	if f.PriceGTE != nil {
		price["$gte"] = *f.PriceGTE
	}
	if f.PriceLTE != nil {
		price["$lte"] = *f.PriceLTE
	}
	if len(price) > 0 {
		q["price"] = price
	}
	if f.RatingsGTE != nil {
		q["ratings"] = bson.M{"$gte": *f.RatingsGTE}
	}
	return q
}

func (m *Mongo) ListProducts(ctx context.Context, f ProductFilter, page int) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if page > 0 {
		opts.SetSkip(int64((page - 1) * ResultPerPage)).SetLimit(ResultPerPage)
	}
	cur, err := m.products.Find(ctx, productQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (m *Mongo) CountProducts(ctx context.Context, f ProductFilter) (int64, error) {
	n, err := m.products.CountDocuments(ctx, productQuery(f))
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (u ProductUpdate) fields() bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Stock != nil {
		set["Stock"] = *u.Stock
	}
	if u.Images != nil {
		set["images"] = *u.Images
	}
	return set
}

func (m *Mongo) UpdateProduct(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (*models.Product, error) {
	set := u.fields()
	if len(set) == 0 {
		return m.GetProduct(ctx, id)
	}
	var p models.Product
	err := m.products.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, productNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return &p, nil
}

func (m *Mongo) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return productNotFound(id)
	}
	return nil
}

func (m *Mongo) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := m.products.UpdateOne(ctx,
		bson.M{"_id": id, "Stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"Stock": -qty}},
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// Nothing matched: either the product is gone or it has too few units.
	p, err := m.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w for product: %s", ErrInsufficientStock, p.Name)
}

func (m *Mongo) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := m.products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"Stock": qty}})
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return productNotFound(id)
	}
	return nil
}

func (m *Mongo) UpsertReview(ctx context.Context, productID primitive.ObjectID, r models.Review) (*models.Product, error) {
	p, err := m.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	p.Reviews = upsertReview(p.Reviews, r)
	p.RecomputeRatings()
	if err := m.saveReviews(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Mongo) DeleteReview(ctx context.Context, productID, reviewID primitive.ObjectID) (*models.Product, error) {
	p, err := m.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	reviews, found := removeReview(p.Reviews, reviewID)
	if !found {
		return nil, fmt.Errorf("review %w with id: %s", ErrNotFound, reviewID.Hex())
	}
	p.Reviews = reviews
	p.RecomputeRatings()
	if err := m.saveReviews(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Mongo) saveReviews(ctx context.Context, p *models.Product) error {
	_, err := m.products.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"reviews":      p.Reviews,
		"ratings":      p.Ratings,
		"numOfReviews": p.NumOfReviews,
	}})
	if err != nil {
		return fmt.Errorf("save reviews: %w", err)
	}
	return nil
}

// ----- Orders -----

func (m *Mongo) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if _, err := m.orders.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrPaymentReused, o.PaymentInfo.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *Mongo) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	err := m.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, orderNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

func (m *Mongo) findOrders(ctx context.Context, filter bson.M) ([]models.Order, error) {
	cur, err := m.orders.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (m *Mongo) ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return m.findOrders(ctx, bson.M{"user": userID})
}

func (m *Mongo) ListOrders(ctx context.Context) ([]models.Order, error) {
	return m.findOrders(ctx, bson.M{})
}

func (m *Mongo) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.orders.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return orderNotFound(id)
	}
	return nil
}

func (m *Mongo) TransitionOrderStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) error {
	set := bson.M{"orderStatus": to}
	if to == models.StatusDelivered {
		set["deliveredAt"] = at
	}
	res, err := m.orders.UpdateOne(ctx, bson.M{"_id": id, "orderStatus": from}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if _, err := m.GetOrder(ctx, id); err != nil {
		return err
	}
	return ErrStatusConflict
}

// ----- Users -----

func (m *Mongo) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if _, err := m.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *Mongo) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *Mongo) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := m.findUser(ctx, bson.M{"_id": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, userNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := m.findUser(ctx, bson.M{"email": email})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %w with email: %s", ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (m *Mongo) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := m.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (m *Mongo) UpdateUser(ctx context.Context, u *models.User) error {
	res, err := m.users.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("replace user: %w", err)
	}
	if res.MatchedCount == 0 {
		return userNotFound(u.ID)
	}
	return nil
}

func (m *Mongo) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return userNotFound(id)
	}
	return nil
}

func (m *Mongo) SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expires *time.Time) error {
	update := bson.M{"$set": bson.M{"resetPasswordToken": hash, "resetPasswordTime": expires}}
	if hash == "" {
		update = bson.M{"$unset": bson.M{"resetPasswordToken": "", "resetPasswordTime": ""}}
	}
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return userNotFound(id)
	}
	return nil
}

func (m *Mongo) GetUserByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	u, err := m.findUser(ctx, bson.M{
		"resetPasswordToken": hash,
		"resetPasswordTime":  bson.M{"$gt": now},
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("reset token %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return u, nil
}
