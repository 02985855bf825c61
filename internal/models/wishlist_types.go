package models

import "time"

// WishlistItem is the model for the 'wishlist_items' table.
// Membership only; one row per (user, product) pair.
type WishlistItem struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Product *Product `json:"product,omitempty" db:"-"`
}
