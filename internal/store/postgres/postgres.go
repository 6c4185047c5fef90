// Package postgres implements store.Store on PostgreSQL. The schema lives in
// migrations/ at the repository root.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
	"github.com/joao-fontenele/storefront-api/internal/telemetry"
)

const uniqueViolation = "23505"

// Open connects through the instrumented driver and checks the connection.
func Open(ctx context.Context, dsn string) (*store.Store, error) {
	db, err := telemetry.OpenDB("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

// New wraps an open handle. Closing the returned store closes db.
func New(db *sql.DB) *store.Store {
	return store.New(
		&CategoryRepository{db: db},
		&ProductRepository{db: db},
		&UserRepository{db: db},
		&OrderItemRepository{db: db},
		&OrderRepository{db: db},
		func(context.Context) error { return db.Close() },
	)
}

func parseID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.InvalidID(kind, id)
	}
	return nil
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.NotFound(kind, id)
	}
	return nil
}

type CategoryRepository struct {
	db *sql.DB
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, icon, color
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, store.Upstream("list categories", err)
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, store.Upstream("scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Upstream("list categories", err)
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	if err := parseID("category", id); err != nil {
		return nil, err
	}

	c := &domain.Category{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, icon, color
		FROM categories
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Icon, &c.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("category", id)
	}
	if err != nil {
		return nil, store.Upstream("get category", err)
	}
	return c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	category.ID = uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, icon, color)
		VALUES ($1, $2, $3, $4)
	`, category.ID, category.Name, category.Icon, category.Color)
	return store.Upstream("create category", err)
}

func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if err := parseID("category", category.ID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = $1, icon = $2, color = $3
		WHERE id = $4
	`, category.Name, category.Icon, category.Color, category.ID)
	if err != nil {
		return store.Upstream("update category", err)
	}
	return store.Upstream("update category", expectOne(res, "category", category.ID))
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	if err := parseID("category", id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return store.Upstream("delete category", err)
	}
	return store.Upstream("delete category", expectOne(res, "category", id))
}

const productColumns = `id, name, description, rich_description, image, images, brand, price,
	category_id, count_in_stock, rating, num_reviews, is_featured, date_created`

type ProductRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var images pq.StringArray
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.RichDescription, &p.Image, &images, &p.Brand,
		&p.Price, &p.CategoryID, &p.CountInStock, &p.Rating, &p.NumReviews, &p.IsFeatured, &p.DateCreated)
	p.Images = []string(images)
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, err
}

func (r *ProductRepository) List(ctx context.Context, filter store.ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE TRUE`
	var args []any
	if len(filter.CategoryIDs) > 0 {
		args = append(args, pq.Array(filter.CategoryIDs))
		query += fmt.Sprintf(" AND category_id = ANY($%d)", len(args))
	}
	if filter.FeaturedOnly {
		query += " AND is_featured"
	}
	query += " ORDER BY date_created"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Upstream("list products", err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, store.Upstream("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Upstream("list products", err)
	}
	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if err := parseID("product", id); err != nil {
		return nil, err
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("product", id)
	}
	if err != nil {
		return nil, store.Upstream("get product", err)
	}
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New().String()
	if product.Images == nil {
		product.Images = []string{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, product.ID, product.Name, product.Description, product.RichDescription, product.Image,
		pq.Array(product.Images), product.Brand, product.Price, product.CategoryID, product.CountInStock,
		product.Rating, product.NumReviews, product.IsFeatured, product.DateCreated)
	return store.Upstream("create product", err)
}

// Update overwrites every field except images and date_created and reloads
// those two into product.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := parseID("product", product.ID); err != nil {
		return err
	}

	var images pq.StringArray
	err := r.db.QueryRowContext(ctx, `
		UPDATE products SET
			name = $1, description = $2, rich_description = $3, image = $4, brand = $5,
			price = $6, category_id = $7, count_in_stock = $8, rating = $9, num_reviews = $10,
			is_featured = $11
		WHERE id = $12
		RETURNING images, date_created
	`, product.Name, product.Description, product.RichDescription, product.Image, product.Brand,
		product.Price, product.CategoryID, product.CountInStock, product.Rating, product.NumReviews,
		product.IsFeatured, product.ID).Scan(&images, &product.DateCreated)
	if errors.Is(err, sql.ErrNoRows) {
		return store.NotFound("product", product.ID)
	}
	if err != nil {
		return store.Upstream("update product", err)
	}
	product.Images = []string(images)
	return nil
}

func (r *ProductRepository) SetImages(ctx context.Context, id string, images []string) (*domain.Product, error) {
	if err := parseID("product", id); err != nil {
		return nil, err
	}
	if images == nil {
		images = []string{}
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products SET images = $1
		WHERE id = $2
		RETURNING `+productColumns, pq.Array(images), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("product", id)
	}
	if err != nil {
		return nil, store.Upstream("set product images", err)
	}
	return &p, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if err := parseID("product", id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return store.Upstream("delete product", err)
	}
	return store.Upstream("delete product", expectOne(res, "product", id))
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, store.Upstream("count products", err)
	}
	return n, nil
}

const userColumns = `id, name, email, password_hash, phone, is_admin, street, apartment, zip, city, country`

type UserRepository struct {
	db *sql.DB
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.IsAdmin,
		&u.Street, &u.Apartment, &u.Zip, &u.City, &u.Country)
	return u, err
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, store.Upstream("list users", err)
	}
	defer func() { _ = rows.Close() }()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, store.Upstream("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Upstream("list users", err)
	}
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := parseID("user", id); err != nil {
		return nil, err
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("user", id)
	}
	if err != nil {
		return nil, store.Upstream("get user", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("user", email)
	}
	if err != nil {
		return nil, store.Upstream("get user by email", err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	user.ID = uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Phone, user.IsAdmin,
		user.Street, user.Apartment, user.Zip, user.City, user.Country)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("email %q already registered: %w", user.Email, domain.ErrValidation)
	}
	return store.Upstream("create user", err)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := parseID("user", id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return store.Upstream("delete user", err)
	}
	return store.Upstream("delete user", expectOne(res, "user", id))
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, store.Upstream("count users", err)
	}
	return n, nil
}

type OrderItemRepository struct {
	db *sql.DB
}

func (r *OrderItemRepository) Create(ctx context.Context, item *domain.OrderItem) error {
	item.ID = uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_items (id, quantity, product_id)
		VALUES ($1, $2, $3)
	`, item.ID, item.Quantity, item.ProductID)
	return store.Upstream("create order item", err)
}

func (r *OrderItemRepository) GetByID(ctx context.Context, id string) (*domain.OrderItem, error) {
	if err := parseID("order item", id); err != nil {
		return nil, err
	}

	item := &domain.OrderItem{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, quantity, product_id
		FROM order_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Quantity, &item.ProductID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("order item", id)
	}
	if err != nil {
		return nil, store.Upstream("get order item", err)
	}
	return item, nil
}

func (r *OrderItemRepository) Delete(ctx context.Context, id string) error {
	if err := parseID("order item", id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	if err != nil {
		return store.Upstream("delete order item", err)
	}
	return store.Upstream("delete order item", expectOne(res, "order item", id))
}

const orderColumns = `id, order_items, shipping_address1, shipping_address2, city, zip, country,
	phone, status, total_price, user_id, date_ordered`

type OrderRepository struct {
	db *sql.DB
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var items pq.StringArray
	err := row.Scan(&o.ID, &items, &o.ShippingAddress1, &o.ShippingAddress2, &o.City, &o.Zip,
		&o.Country, &o.Phone, &o.Status, &o.TotalPrice, &o.UserID, &o.DateOrdered)
	o.OrderItems = []string(items)
	if o.OrderItems == nil {
		o.OrderItems = []string{}
	}
	return o, err
}

func (r *OrderRepository) List(ctx context.Context, filter store.OrderFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += " WHERE user_id = $1"
	}
	query += " ORDER BY date_ordered DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Upstream("list orders", err)
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, store.Upstream("scan order", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Upstream("list orders", err)
	}
	return orders, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := parseID("order", id); err != nil {
		return nil, err
	}

	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("order", id)
	}
	if err != nil {
		return nil, store.Upstream("get order", err)
	}
	return &o, nil
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()
	if order.OrderItems == nil {
		order.OrderItems = []string{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, order.ID, pq.Array(order.OrderItems), order.ShippingAddress1, order.ShippingAddress2,
		order.City, order.Zip, order.Country, order.Phone, order.Status, order.TotalPrice,
		order.UserID, order.DateOrdered)
	return store.Upstream("create order", err)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	if err := parseID("order", id); err != nil {
		return nil, err
	}

	o, err := scanOrder(r.db.QueryRowContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2
		RETURNING `+orderColumns, status, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("order", id)
	}
	if err != nil {
		return nil, store.Upstream("update order status", err)
	}
	return &o, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if err := parseID("order", id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return store.Upstream("delete order", err)
	}
	return store.Upstream("delete order", expectOne(res, "order", id))
}

func (r *OrderRepository) TotalSales(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_price), 0) FROM orders`).Scan(&total)
	if err != nil {
		return 0, store.Upstream("sum total sales", err)
	}
	return total, nil
}

func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, store.Upstream("count orders", err)
	}
	return n, nil
}
