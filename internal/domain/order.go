package domain

import "time"

const OrderStatusPending = "Pending"

type OrderItem struct {
	ID        string `json:"id"`
	Quantity  int    `json:"quantity"`
	ProductID string `json:"product"`
}

type Order struct {
	ID               string    `json:"id"`
	OrderItems       []string  `json:"orderItems"`
	ShippingAddress1 string    `json:"shippingAddress1"`
	ShippingAddress2 string    `json:"shippingAddress2"`
	City             string    `json:"city"`
	Zip              string    `json:"zip"`
	Country          string    `json:"country"`
	Phone            string    `json:"phone"`
	Status           string    `json:"status"`
	TotalPrice       float64   `json:"totalPrice"`
	UserID           string    `json:"user"`
	DateOrdered      time.Time `json:"dateOrdered"`
}

type OrderItemDetail struct {
	OrderItem
	Product *ProductDetail `json:"product"`
}

// OrderDetail is an order with items, products, categories and the ordering
// user resolved.
type OrderDetail struct {
	Order
	OrderItems []OrderItemDetail `json:"orderItems"`
	User       *UserRef          `json:"user"`
}

// OrderSummary is an order with only the user resolved, used by listings.
type OrderSummary struct {
	Order
	User *UserRef `json:"user"`
}
