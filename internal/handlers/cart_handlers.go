package handlers

import (
	"database/sql"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shoplane/storefront-api/internal/apperr"
	"github.com/shoplane/storefront-api/internal/middleware"
	"github.com/shoplane/storefront-api/internal/models"
	"github.com/shoplane/storefront-api/internal/respond"
)

// round2 rounds a money amount to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GetCart is the handler for GET /cart. Returns the lines with their
// products, the running total, and the line count.
func (h *Handlers) GetCart(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	rows, err := h.DB.Query(`
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
			p.id, p.name, p.description, p.price, p.stock, p.image_url, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.user_id = ?
		ORDER BY ci.created_at DESC`, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer rows.Close()

	items := []models.CartItem{}
	var total float64
	for rows.Next() {
		var item models.CartItem
		var p models.Product
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			respond.Error(c, err)
			return
		}
		item.Product = &p
		total += p.Price * float64(item.Quantity)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusOK, "", gin.H{
		"cartItems": items,
		"total":     round2(total),
		"itemCount": len(items),
	})
}

// AddToCartInput is the JSON body for POST /cart.
type AddToCartInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gte=1"`
}

// AddToCart is the handler for POST /cart. Create-or-increment: a second
// add of the same product raises the quantity of the existing line. The
// stock check is advisory — the cart reserves nothing; order placement
// re-validates under lock.
func (h *Handlers) AddToCart(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var input AddToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BindingError(c, err)
		return
	}

	var stock int
	err := h.DB.QueryRow("SELECT stock FROM products WHERE id = ?", input.ProductID).Scan(&stock)
	if err != nil {
		if err == sql.ErrNoRows {
			respond.Error(c, apperr.New(apperr.NotFound, "Product not found"))
			return
		}
		respond.Error(c, err)
		return
	}

	var existingID int64
	var existingQty int
	err = h.DB.QueryRow(
		"SELECT id, quantity FROM cart_items WHERE user_id = ? AND product_id = ?",
		userID, input.ProductID,
	).Scan(&existingID, &existingQty)
	if err != nil && err != sql.ErrNoRows {
		respond.Error(c, err)
		return
	}

	newQty := existingQty + input.Quantity
	if stock < newQty {
		respond.Error(c, apperr.New(apperr.InsufficientStock, "Insufficient stock available"))
		return
	}

	var itemID int64
	if existingID != 0 {
		if _, err := h.DB.Exec(
			"UPDATE cart_items SET quantity = ?, updated_at = NOW() WHERE id = ?", newQty, existingID,
		); err != nil {
			respond.Error(c, err)
			return
		}
		itemID = existingID
	} else {
		result, err := h.DB.Exec(
			"INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at) VALUES (?, ?, ?, NOW(), NOW())",
			userID, input.ProductID, input.Quantity,
		)
		if err != nil {
			respond.Error(c, err)
			return
		}
		itemID, err = result.LastInsertId()
		if err != nil {
			respond.Error(c, err)
			return
		}
	}

	item, err := h.fetchCartItem(itemID, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, "Product added to cart", gin.H{"cartItem": item})
}

// UpdateCartItemInput is the JSON body for PUT /cart/:id.
type UpdateCartItemInput struct {
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

// UpdateCartItem is the handler for PUT /cart/:id. Overwrites the line
// quantity after an advisory stock check.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	itemID := c.Param("id")

	var input UpdateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BindingError(c, err)
		return
	}

	var lineID int64
	var stock int
	err := h.DB.QueryRow(`
		SELECT ci.id, p.stock
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.id = ? AND ci.user_id = ?`, itemID, userID,
	).Scan(&lineID, &stock)
	if err != nil {
		if err == sql.ErrNoRows {
			respond.Error(c, apperr.New(apperr.NotFound, "Cart item not found"))
			return
		}
		respond.Error(c, err)
		return
	}

	if stock < input.Quantity {
		respond.Error(c, apperr.New(apperr.InsufficientStock, "Insufficient stock available"))
		return
	}

	if _, err := h.DB.Exec(
		"UPDATE cart_items SET quantity = ?, updated_at = NOW() WHERE id = ? AND user_id = ?",
		input.Quantity, lineID, userID,
	); err != nil {
		respond.Error(c, err)
		return
	}

	item, err := h.fetchCartItem(lineID, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Cart item updated", gin.H{"cartItem": item})
}

// RemoveFromCart is the handler for DELETE /cart/:id.
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	itemID := c.Param("id")

	result, err := h.DB.Exec("DELETE FROM cart_items WHERE id = ? AND user_id = ?", itemID, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		respond.Error(c, apperr.New(apperr.NotFound, "Cart item not found"))
		return
	}

	respond.JSON(c, http.StatusOK, "Product removed from cart", nil)
}

// ClearCart is the handler for DELETE /cart.
func (h *Handlers) ClearCart(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	if _, err := h.DB.Exec("DELETE FROM cart_items WHERE user_id = ?", userID); err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusOK, "Cart cleared successfully", nil)
}

func (h *Handlers) fetchCartItem(itemID, userID int64) (models.CartItem, error) {
	var item models.CartItem
	var p models.Product
	err := h.DB.QueryRow(`
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
			p.id, p.name, p.description, p.price, p.stock, p.image_url, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.id = ? AND ci.user_id = ?`, itemID, userID,
	).Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return item, err
	}
	item.Product = &p
	return item, nil
}
