package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shoplane/storefront-api/internal/apperr"
	"github.com/shoplane/storefront-api/internal/middleware"
	"github.com/shoplane/storefront-api/internal/models"
	"github.com/shoplane/storefront-api/internal/respond"
)

// cartLine is one cart row joined with its product, read under lock
// during order placement.
type cartLine struct {
	ProductID int64
	Quantity  int
	Name      string
	Price     float64
	Stock     int
}

// PlaceOrder is the handler for POST /orders. It converts the caller's cart
// into an order as one atomic unit: the stock check, the order insert, the
// stock decrement, and the cart delete all commit together or not at all.
//
// The SELECT ... FOR UPDATE locks the product rows, so the stock check holds
// until commit — two checkouts racing for the last unit serialize, and the
// loser fails the in-transaction re-check instead of overselling. A retried
// placement after success finds the cart empty and fails closed.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	tx, err := h.DB.BeginTx(c, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT ci.product_id, ci.quantity, p.name, p.price, p.stock
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.user_id = ?
		ORDER BY ci.product_id
		FOR UPDATE`, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var lines []cartLine
	for rows.Next() {
		var line cartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.Name, &line.Price, &line.Stock); err != nil {
			rows.Close()
			respond.Error(c, err)
			return
		}
		lines = append(lines, line)
	}
	if err := rows.Close(); err != nil {
		respond.Error(c, err)
		return
	}

	if len(lines) == 0 {
		respond.Error(c, apperr.New(apperr.EmptyCart, "Cart is empty"))
		return
	}

	var total float64
	for _, line := range lines {
		if line.Stock < line.Quantity {
			respond.Error(c, apperr.Newf(apperr.InsufficientStock,
				"Insufficient stock for %s. Available: %d", line.Name, line.Stock))
			return
		}
		total += line.Price * float64(line.Quantity)
	}
	total = round2(total)

	result, err := tx.Exec(
		"INSERT INTO orders (user_id, total, status, created_at, updated_at) VALUES (?, ?, ?, NOW(), NOW())",
		userID, total, models.OrderPending,
	)
	if err != nil {
		respond.Error(c, err)
		return
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		respond.Error(c, err)
		return
	}

	for _, line := range lines {
		if _, err := tx.Exec(
			"INSERT INTO order_items (order_id, product_id, quantity, price, created_at) VALUES (?, ?, ?, ?, NOW())",
			orderID, line.ProductID, line.Quantity, line.Price,
		); err != nil {
			respond.Error(c, err)
			return
		}
		if _, err := tx.Exec(
			"UPDATE products SET stock = stock - ? WHERE id = ?", line.Quantity, line.ProductID,
		); err != nil {
			respond.Error(c, err)
			return
		}
	}

	if _, err := tx.Exec("DELETE FROM cart_items WHERE user_id = ?", userID); err != nil {
		respond.Error(c, err)
		return
	}

	if err := tx.Commit(); err != nil {
		respond.Error(c, err)
		return
	}

	// Stock changed; cached product reads are stale now
	h.Cache.InvalidateProducts(c)

	order, err := h.fetchOrder(orderID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, "Order placed successfully", gin.H{"order": order})
}

// GetMyOrders is the handler for GET /orders. Newest first, items included.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	rows, err := h.DB.Query(
		"SELECT id, user_id, total, status, created_at, updated_at FROM orders WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			respond.Error(c, err)
			return
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		respond.Error(c, err)
		return
	}

	for i := range orders {
		items, err := h.fetchOrderItems(orders[i].ID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		orders[i].Items = items
	}

	respond.JSON(c, http.StatusOK, "", gin.H{"orders": orders})
}

// GetOrderByID is the handler for GET /orders/:id. Owner-scoped: another
// user's order reads as not found.
func (h *Handlers) GetOrderByID(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	orderID := c.Param("id")

	var o models.Order
	err := h.DB.QueryRow(
		"SELECT id, user_id, total, status, created_at, updated_at FROM orders WHERE id = ? AND user_id = ?",
		orderID, userID,
	).Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			respond.Error(c, apperr.New(apperr.NotFound, "Order not found"))
			return
		}
		respond.Error(c, err)
		return
	}

	o.Items, err = h.fetchOrderItems(o.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusOK, "", gin.H{"order": o})
}

// GetAllOrders is the handler for GET /orders/all (admin only). Paginated,
// optional status filter, buyer summary attached.
func (h *Handlers) GetAllOrders(c *gin.Context) {
	page, limit, offset := parsePagination(c)
	status := c.Query("status")

	where := ""
	var args []interface{}
	if status != "" {
		where = " WHERE o.status = ?"
		args = append(args, status)
	}

	var total int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM orders o"+where, args...).Scan(&total); err != nil {
		respond.Error(c, err)
		return
	}

	query := `
		SELECT o.id, o.user_id, o.total, o.status, o.created_at, o.updated_at,
			u.id, u.name, u.email
		FROM orders o
		JOIN users u ON o.user_id = u.id` + where + `
		ORDER BY o.created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		var u models.OrderUser
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt, &u.ID, &u.Name, &u.Email); err != nil {
			respond.Error(c, err)
			return
		}
		o.User = &u
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		respond.Error(c, err)
		return
	}

	for i := range orders {
		items, err := h.fetchOrderItems(orders[i].ID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		orders[i].Items = items
	}

	respond.JSON(c, http.StatusOK, "", gin.H{
		"orders":     orders,
		"pagination": paginationMeta(page, limit, total),
	})
}

// UpdateOrderStatusInput is the JSON body for PATCH /orders/:id/status.
type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus is the handler for PATCH /orders/:id/status (admin
// only). Unconditional overwrite; any status is reachable from any other.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond.Error(c, apperr.New(apperr.NotFound, "Order not found"))
		return
	}

	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BindingError(c, err)
		return
	}

	if !models.ValidOrderStatus(input.Status) {
		respond.Error(c, apperr.New(apperr.InvalidStatus, "Invalid order status"))
		return
	}

	if _, err := h.DB.Exec(
		"UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?", input.Status, orderID,
	); err != nil {
		respond.Error(c, err)
		return
	}

	// RowsAffected is 0 both for a missing order and a same-status
	// overwrite, so existence comes from the re-fetch.
	order, err := h.fetchOrder(orderID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Order status updated", gin.H{"order": order})
}

// fetchOrder loads one order with its items and product snapshots.
func (h *Handlers) fetchOrder(orderID int64) (models.Order, error) {
	var o models.Order
	err := h.DB.QueryRow(
		"SELECT id, user_id, total, status, created_at, updated_at FROM orders WHERE id = ?", orderID,
	).Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return o, apperr.New(apperr.NotFound, "Order not found")
		}
		return o, err
	}

	o.Items, err = h.fetchOrderItems(o.ID)
	return o, err
}

// fetchOrderItems loads an order's items. The product join is LEFT: a
// product deleted after purchase leaves the frozen line intact with a nil
// product.
func (h *Handlers) fetchOrderItems(orderID int64) ([]models.OrderItem, error) {
	rows, err := h.DB.Query(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.created_at,
			p.id, p.name, p.description, p.price, p.stock, p.image_url, p.created_at, p.updated_at
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		var pID sql.NullInt64
		var pName, pDescription, pImageURL sql.NullString
		var pPrice sql.NullFloat64
		var pStock sql.NullInt64
		var pCreatedAt, pUpdatedAt sql.NullTime

		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.CreatedAt,
			&pID, &pName, &pDescription, &pPrice, &pStock, &pImageURL, &pCreatedAt, &pUpdatedAt,
		); err != nil {
			return nil, err
		}

		if pID.Valid {
			item.Product = &models.Product{
				ID:          pID.Int64,
				Name:        pName.String,
				Description: pDescription.String,
				Price:       pPrice.Float64,
				Stock:       int(pStock.Int64),
				ImageURL:    pImageURL.String,
				CreatedAt:   pCreatedAt.Time,
				UpdatedAt:   pUpdatedAt.Time,
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
