package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shoplane/storefront-api/internal/apperr"
	"github.com/shoplane/storefront-api/internal/middleware"
	"github.com/shoplane/storefront-api/internal/models"
	"github.com/shoplane/storefront-api/internal/respond"
)

// GetWishlist is the handler for GET /wishlist.
func (h *Handlers) GetWishlist(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	rows, err := h.DB.Query(`
		SELECT wi.id, wi.user_id, wi.product_id, wi.created_at,
			p.id, p.name, p.description, p.price, p.stock, p.image_url, p.created_at, p.updated_at
		FROM wishlist_items wi
		JOIN products p ON wi.product_id = p.id
		WHERE wi.user_id = ?
		ORDER BY wi.created_at DESC`, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer rows.Close()

	items := []models.WishlistItem{}
	for rows.Next() {
		var item models.WishlistItem
		var p models.Product
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			respond.Error(c, err)
			return
		}
		item.Product = &p
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusOK, "", gin.H{
		"wishlistItems": items,
		"count":         len(items),
	})
}

// AddToWishlist is the handler for POST /wishlist/:productId. A second add
// of the same product fails; exactly one row per (user, product) pair.
func (h *Handlers) AddToWishlist(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	productID := c.Param("productId")

	var exists int64
	err := h.DB.QueryRow("SELECT id FROM products WHERE id = ?", productID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			respond.Error(c, apperr.New(apperr.NotFound, "Product not found"))
			return
		}
		respond.Error(c, err)
		return
	}

	err = h.DB.QueryRow(
		"SELECT id FROM wishlist_items WHERE user_id = ? AND product_id = ?", userID, productID,
	).Scan(&exists)
	if err == nil {
		respond.Error(c, apperr.New(apperr.Conflict, "Product already in wishlist"))
		return
	}
	if err != sql.ErrNoRows {
		respond.Error(c, err)
		return
	}

	result, err := h.DB.Exec(
		"INSERT INTO wishlist_items (user_id, product_id, created_at) VALUES (?, ?, NOW())",
		userID, productID,
	)
	if err != nil {
		respond.Error(c, err)
		return
	}
	itemID, err := result.LastInsertId()
	if err != nil {
		respond.Error(c, err)
		return
	}

	var item models.WishlistItem
	var p models.Product
	err = h.DB.QueryRow(`
		SELECT wi.id, wi.user_id, wi.product_id, wi.created_at,
			p.id, p.name, p.description, p.price, p.stock, p.image_url, p.created_at, p.updated_at
		FROM wishlist_items wi
		JOIN products p ON wi.product_id = p.id
		WHERE wi.id = ?`, itemID,
	).Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt,
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		respond.Error(c, err)
		return
	}
	item.Product = &p

	respond.JSON(c, http.StatusCreated, "Product added to wishlist", gin.H{"wishlistItem": item})
}

// RemoveFromWishlist is the handler for DELETE /wishlist/:productId.
func (h *Handlers) RemoveFromWishlist(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	productID := c.Param("productId")

	result, err := h.DB.Exec(
		"DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?", userID, productID,
	)
	if err != nil {
		respond.Error(c, err)
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		respond.Error(c, apperr.New(apperr.NotFound, "Product not found in wishlist"))
		return
	}

	respond.JSON(c, http.StatusOK, "Product removed from wishlist", nil)
}

// ClearWishlist is the handler for DELETE /wishlist.
func (h *Handlers) ClearWishlist(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	if _, err := h.DB.Exec("DELETE FROM wishlist_items WHERE user_id = ?", userID); err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusOK, "Wishlist cleared successfully", nil)
}
