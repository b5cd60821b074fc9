package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPickedUp  OrderStatus = "PICKED_UP"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// CanTransitionTo reports whether a merchant may move an order from s to next.
// Cancellation is allowed until pickup; terminal states accept nothing.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusConfirmed || next == OrderStatusCancelled
	case OrderStatusConfirmed:
		return next == OrderStatusPickedUp || next == OrderStatusCancelled
	default:
		return false
	}
}

type Order struct {
	ID            string        `json:"id"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PickupTime    time.Time     `json:"pickupTime"`
	Items         []OrderItem   `json:"items"`
	CustomerName  string        `json:"customerName,omitempty"`
	Total         float64       `json:"total"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// OrderItem is one line of an order. The food item is a snapshot taken at
// checkout time, so later edits to the listing do not change past orders.
type OrderItem struct {
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
	FoodItem FoodItem `json:"foodItem"`
}

// OrderPage is the shape returned by the order listing endpoint.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}

type FoodItem struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"originalPrice"`
	Quantity      int       `json:"quantity"`
	ExpiryDate    time.Time `json:"expiryDate"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	MerchantID    string    `json:"merchantId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type MerchantProfile struct {
	ID           string  `json:"id"`
	BusinessName string  `json:"businessName"`
	Description  string  `json:"description,omitempty"`
	Address      string  `json:"address"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	LogoURL      string  `json:"logoUrl,omitempty"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is the persisted authentication state. A non-empty token means
// the console considers itself logged in.
type Session struct {
	Token    string           `json:"token"`
	User     *User            `json:"user,omitempty"`
	Merchant *MerchantProfile `json:"merchant,omitempty"`
}

type MerchantStats struct {
	TotalOrders    int     `json:"totalOrders"`
	Revenue        float64 `json:"revenue"`
	ItemsSaved     int     `json:"itemsSaved"`
	TotalFoodItems int     `json:"totalFoodItems"`
	TotalSales     int     `json:"totalSales"`
}
