// Package mongo implements store.Store on MongoDB. Record ids are ObjectIDs
// rendered as hex strings; references between records are stored as those
// strings.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
)

const (
	categoriesCollection = "categories"
	productsCollection   = "products"
	usersCollection      = "users"
	orderItemsCollection = "orderitems"
	ordersCollection     = "orders"

	defaultDatabase = "eshop-database"
)

// Open connects to uri, uses database (or the one named in uri when empty)
// and ensures the unique index on user e-mails.
func Open(ctx context.Context, uri, database string) (*store.Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if database == "" {
		database, err = parseDatabase(uri)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
	}

	db := client.Database(database)
	_, err = db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure users index: %w", err)
	}

	return store.New(
		&CategoryRepository{coll: db.Collection(categoriesCollection)},
		&ProductRepository{coll: db.Collection(productsCollection)},
		&UserRepository{coll: db.Collection(usersCollection)},
		&OrderItemRepository{coll: db.Collection(orderItemsCollection)},
		&OrderRepository{coll: db.Collection(ordersCollection)},
		client.Disconnect,
	), nil
}

func parseDatabase(uri string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("parse mongo uri: %w", err)
	}
	if cs.Database == "" {
		return defaultDatabase, nil
	}
	return cs.Database, nil
}

func objectID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.InvalidID(kind, id)
	}
	return oid, nil
}

func notFoundOr(err error, kind, id, op string) error {
	if err == mongo.ErrNoDocuments {
		return store.NotFound(kind, id)
	}
	return store.Upstream(op, err)
}

func expectMatched(res *mongo.UpdateResult, kind, id string) error {
	if res.MatchedCount == 0 {
		return store.NotFound(kind, id)
	}
	return nil
}

func expectDeleted(res *mongo.DeleteResult, kind, id string) error {
	if res.DeletedCount == 0 {
		return store.NotFound(kind, id)
	}
	return nil
}

type categoryDoc struct {
	ID    primitive.ObjectID `bson:"_id"`
	Name  string             `bson:"name"`
	Icon  string             `bson:"icon"`
	Color string             `bson:"color"`
}

func (d categoryDoc) toDomain() domain.Category {
	return domain.Category{ID: d.ID.Hex(), Name: d.Name, Icon: d.Icon, Color: d.Color}
}

type CategoryRepository struct {
	coll *mongo.Collection
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, store.Upstream("list categories", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []categoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, store.Upstream("decode categories", err)
	}
	categories := make([]domain.Category, 0, len(docs))
	for _, d := range docs {
		categories = append(categories, d.toDomain())
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	oid, err := objectID("category", id)
	if err != nil {
		return nil, err
	}
	var doc categoryDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "category", id, "get category")
	}
	c := doc.toDomain()
	return &c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	doc := categoryDoc{ID: primitive.NewObjectID(), Name: category.Name, Icon: category.Icon, Color: category.Color}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return store.Upstream("create category", err)
	}
	category.ID = doc.ID.Hex()
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	oid, err := objectID("category", category.ID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":  category.Name,
		"icon":  category.Icon,
		"color": category.Color,
	}})
	if err != nil {
		return store.Upstream("update category", err)
	}
	return expectMatched(res, "category", category.ID)
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID("category", id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return store.Upstream("delete category", err)
	}
	return expectDeleted(res, "category", id)
}

type productDoc struct {
	ID              primitive.ObjectID `bson:"_id"`
	Name            string             `bson:"name"`
	Description     string             `bson:"description"`
	RichDescription string             `bson:"richDescription"`
	Image           string             `bson:"image"`
	Images          []string           `bson:"images"`
	Brand           string             `bson:"brand"`
	Price           float64            `bson:"price"`
	Category        string             `bson:"category"`
	CountInStock    int                `bson:"countInStock"`
	Rating          float64            `bson:"rating"`
	NumReviews      int                `bson:"numReviews"`
	IsFeatured      bool               `bson:"isFeatured"`
	DateCreated     time.Time          `bson:"dateCreated"`
}

func newProductDoc(p *domain.Product) productDoc {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productDoc{
		Name:            p.Name,
		Description:     p.Description,
		RichDescription: p.RichDescription,
		Image:           p.Image,
		Images:          images,
		Brand:           p.Brand,
		Price:           p.Price,
		Category:        p.CategoryID,
		CountInStock:    p.CountInStock,
		Rating:          p.Rating,
		NumReviews:      p.NumReviews,
		IsFeatured:      p.IsFeatured,
		DateCreated:     p.DateCreated,
	}
}

func (d productDoc) toDomain() domain.Product {
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return domain.Product{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Description:     d.Description,
		RichDescription: d.RichDescription,
		Image:           d.Image,
		Images:          images,
		Brand:           d.Brand,
		Price:           d.Price,
		CategoryID:      d.Category,
		CountInStock:    d.CountInStock,
		Rating:          d.Rating,
		NumReviews:      d.NumReviews,
		IsFeatured:      d.IsFeatured,
		DateCreated:     d.DateCreated,
	}
}

type ProductRepository struct {
	coll *mongo.Collection
}

func (r *ProductRepository) List(ctx context.Context, filter store.ProductFilter) ([]domain.Product, error) {
	query := bson.M{}
	if len(filter.CategoryIDs) > 0 {
		query["category"] = bson.M{"$in": filter.CategoryIDs}
	}
	if filter.FeaturedOnly {
		query["isFeatured"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "dateCreated", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, store.Upstream("list products", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, store.Upstream("decode products", err)
	}
	products := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toDomain())
	}
	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := objectID("product", id)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "product", id, "get product")
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	doc := newProductDoc(product)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return store.Upstream("create product", err)
	}
	product.ID = doc.ID.Hex()
	product.Images = doc.Images
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	oid, err := objectID("product", product.ID)
	if err != nil {
		return err
	}

	var doc productDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":            product.Name,
		"description":     product.Description,
		"richDescription": product.RichDescription,
		"image":           product.Image,
		"brand":           product.Brand,
		"price":           product.Price,
		"category":        product.CategoryID,
		"countInStock":    product.CountInStock,
		"rating":          product.Rating,
		"numReviews":      product.NumReviews,
		"isFeatured":      product.IsFeatured,
	}}, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return notFoundOr(err, "product", product.ID, "update product")
	}
	*product = doc.toDomain()
	return nil
}

func (r *ProductRepository) SetImages(ctx context.Context, id string, images []string) (*domain.Product, error) {
	oid, err := objectID("product", id)
	if err != nil {
		return nil, err
	}
	if images == nil {
		images = []string{}
	}

	var doc productDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"images": images}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, notFoundOr(err, "product", id, "set product images")
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID("product", id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return store.Upstream("delete product", err)
	}
	return expectDeleted(res, "product", id)
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, store.Upstream("count products", err)
	}
	return n, nil
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash"`
	Phone        string             `bson:"phone"`
	IsAdmin      bool               `bson:"isAdmin"`
	Street       string             `bson:"street"`
	Apartment    string             `bson:"apartment"`
	Zip          string             `bson:"zip"`
	City         string             `bson:"city"`
	Country      string             `bson:"country"`
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Phone:        d.Phone,
		IsAdmin:      d.IsAdmin,
		Street:       d.Street,
		Apartment:    d.Apartment,
		Zip:          d.Zip,
		City:         d.City,
		Country:      d.Country,
	}
}

type UserRepository struct {
	coll *mongo.Collection
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, store.Upstream("list users", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, store.Upstream("decode users", err)
	}
	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID("user", id)
	if err != nil {
		return nil, err
	}
	var doc userDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "user", id, "get user")
	}
	u := doc.toDomain()
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var doc userDoc
	opts := options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})
	if err := r.coll.FindOne(ctx, bson.M{"email": email}, opts).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "user", email, "get user by email")
	}
	u := doc.toDomain()
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Phone:        user.Phone,
		IsAdmin:      user.IsAdmin,
		Street:       user.Street,
		Apartment:    user.Apartment,
		Zip:          user.Zip,
		City:         user.City,
		Country:      user.Country,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email %q already registered: %w", user.Email, domain.ErrValidation)
		}
		return store.Upstream("create user", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID("user", id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return store.Upstream("delete user", err)
	}
	return expectDeleted(res, "user", id)
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, store.Upstream("count users", err)
	}
	return n, nil
}

type orderItemDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Quantity int                `bson:"quantity"`
	Product  string             `bson:"product"`
}

type OrderItemRepository struct {
	coll *mongo.Collection
}

func (r *OrderItemRepository) Create(ctx context.Context, item *domain.OrderItem) error {
	doc := orderItemDoc{ID: primitive.NewObjectID(), Quantity: item.Quantity, Product: item.ProductID}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return store.Upstream("create order item", err)
	}
	item.ID = doc.ID.Hex()
	return nil
}

func (r *OrderItemRepository) GetByID(ctx context.Context, id string) (*domain.OrderItem, error) {
	oid, err := objectID("order item", id)
	if err != nil {
		return nil, err
	}
	var doc orderItemDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "order item", id, "get order item")
	}
	return &domain.OrderItem{ID: doc.ID.Hex(), Quantity: doc.Quantity, ProductID: doc.Product}, nil
}

func (r *OrderItemRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID("order item", id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return store.Upstream("delete order item", err)
	}
	return expectDeleted(res, "order item", id)
}

type orderDoc struct {
	ID               primitive.ObjectID `bson:"_id"`
	OrderItems       []string           `bson:"orderItems"`
	ShippingAddress1 string             `bson:"shippingAddress1"`
	ShippingAddress2 string             `bson:"shippingAddress2"`
	City             string             `bson:"city"`
	Zip              string             `bson:"zip"`
	Country          string             `bson:"country"`
	Phone            string             `bson:"phone"`
	Status           string             `bson:"status"`
	TotalPrice       float64            `bson:"totalPrice"`
	User             string             `bson:"user"`
	DateOrdered      time.Time          `bson:"dateOrdered"`
}

func (d orderDoc) toDomain() domain.Order {
	items := d.OrderItems
	if items == nil {
		items = []string{}
	}
	return domain.Order{
		ID:               d.ID.Hex(),
		OrderItems:       items,
		ShippingAddress1: d.ShippingAddress1,
		ShippingAddress2: d.ShippingAddress2,
		City:             d.City,
		Zip:              d.Zip,
		Country:          d.Country,
		Phone:            d.Phone,
		Status:           d.Status,
		TotalPrice:       d.TotalPrice,
		UserID:           d.User,
		DateOrdered:      d.DateOrdered,
	}
}

type OrderRepository struct {
	coll *mongo.Collection
}

func (r *OrderRepository) List(ctx context.Context, filter store.OrderFilter) ([]domain.Order, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user"] = filter.UserID
	}
	cursor, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "dateOrdered", Value: -1}}))
	if err != nil {
		return nil, store.Upstream("list orders", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, store.Upstream("decode orders", err)
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, d.toDomain())
	}
	return orders, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := objectID("order", id)
	if err != nil {
		return nil, err
	}
	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "order", id, "get order")
	}
	o := doc.toDomain()
	return &o, nil
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	items := order.OrderItems
	if items == nil {
		items = []string{}
	}
	doc := orderDoc{
		ID:               primitive.NewObjectID(),
		OrderItems:       items,
		ShippingAddress1: order.ShippingAddress1,
		ShippingAddress2: order.ShippingAddress2,
		City:             order.City,
		Zip:              order.Zip,
		Country:          order.Country,
		Phone:            order.Phone,
		Status:           order.Status,
		TotalPrice:       order.TotalPrice,
		User:             order.UserID,
		DateOrdered:      order.DateOrdered,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return store.Upstream("create order", err)
	}
	order.ID = doc.ID.Hex()
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	oid, err := objectID("order", id)
	if err != nil {
		return nil, err
	}
	var doc orderDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, notFoundOr(err, "order", id, "update order status")
	}
	o := doc.toDomain()
	return &o, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID("order", id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return store.Upstream("delete order", err)
	}
	return expectDeleted(res, "order", id)
}

func (r *OrderRepository) TotalSales(ctx context.Context) (float64, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalsales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
	})
	if err != nil {
		return 0, store.Upstream("sum total sales", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var result []struct {
		TotalSales float64 `bson:"totalsales"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, store.Upstream("decode total sales", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].TotalSales, nil
}

func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, store.Upstream("count orders", err)
	}
	return n, nil
}
