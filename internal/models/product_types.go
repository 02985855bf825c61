package models

import "time"

// Product is the model for the 'products' table.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Stock       int       `json:"stock" db:"stock"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ProductPatch carries a partial update. Nil fields were absent from the
// request body and must leave the stored column untouched.
type ProductPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	ImageURL    *string  `json:"imageUrl" binding:"omitempty,url"`
}

// ProductSortFields whitelists the sortable columns for the catalog listing.
// Anything else falls back to created_at.
var ProductSortFields = map[string]string{
	"price":     "price",
	"name":      "name",
	"createdAt": "created_at",
	"stock":     "stock",
}
