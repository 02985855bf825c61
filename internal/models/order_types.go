package models

import "time"

// Order statuses. Any status may be set from any other; there is no
// transition graph.
const (
	OrderPending    = "PENDING"
	OrderProcessing = "PROCESSING"
	OrderShipped    = "SHIPPED"
	OrderDelivered  = "DELIVERED"
	OrderCancelled  = "CANCELLED"
)

var orderStatuses = map[string]bool{
	OrderPending:    true,
	OrderProcessing: true,
	OrderShipped:    true,
	OrderDelivered:  true,
	OrderCancelled:  true,
}

// ValidOrderStatus reports whether s is one of the five order statuses.
func ValidOrderStatus(s string) bool {
	return orderStatuses[s]
}

// Order is the model for the 'orders' table. Total and the item rows are
// frozen at creation; only the status mutates afterwards.
type Order struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Total     float64   `json:"total" db:"total"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Items []OrderItem `json:"items" db:"-"`
	User  *OrderUser  `json:"user,omitempty" db:"-"`
}

// OrderUser is the buyer summary attached to admin order listings.
type OrderUser struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// OrderItem is the model for the 'order_items' table. Price is the per-unit
// price copied from the product at purchase time and never recomputed.
// ProductID goes nil when the product is later deleted from the catalog.
type OrderItem struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"orderId" db:"order_id"`
	ProductID *int64    `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     float64   `json:"price" db:"price"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Product *Product `json:"product,omitempty" db:"-"`
}
