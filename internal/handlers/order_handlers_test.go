package handlers

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/shoplane/storefront-api/internal/cache"
	"github.com/shoplane/storefront-api/internal/config"
	"github.com/shoplane/storefront-api/internal/models"
)

func orderRouter(h *Handlers, userID int64, role string) *gin.Engine {
	router := gin.New()
	authed := router.Group("/", asUser(userID, role))
	authed.POST("/orders", h.PlaceOrder)
	authed.GET("/orders", h.GetMyOrders)
	authed.GET("/orders/all", h.GetAllOrders)
	authed.GET("/orders/:id", h.GetOrderByID)
	authed.PATCH("/orders/:id/status", h.UpdateOrderStatus)
	return router
}

// cartLinesQuery requires the trailing FOR UPDATE: the checkout read must
// lock the product rows, or the stock re-check races concurrent placements.
const cartLinesQuery = `SELECT ci\.product_id, ci\.quantity, p\.name, p\.price, p\.stock.*FOR UPDATE$`

var (
	orderRowCols = []string{"id", "user_id", "total", "status", "created_at", "updated_at"}
	itemRowCols  = []string{
		"id", "order_id", "product_id", "quantity", "price", "created_at",
		"p_id", "p_name", "p_description", "p_price", "p_stock", "p_image_url", "p_created_at", "p_updated_at",
	}
)

// expectFetchOrder queues the post-commit order reload.
func expectFetchOrder(mock sqlmock.Sqlmock, orderID, userID int64, total float64, status string, items *sqlmock.Rows) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, total, status, created_at, updated_at FROM orders WHERE id = ?")).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows(orderRowCols).AddRow(orderID, userID, total, status, now, now))
	mock.ExpectQuery(`FROM order_items`).
		WithArgs(orderID).
		WillReturnRows(items)
}

// TestPlaceOrder_Success runs the reference scenario: 2 units of a 1000.00
// product with stock 5 plus 1 unit of a 500.00 product with stock 1. The
// order totals 2500.00, stock drops to 3 and 0, and the cart is emptied —
// all inside one committed transaction.
func TestPlaceOrder_Success(t *testing.T) {
	h, mock := newTestApp(t)
	userID := int64(42)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(cartLinesQuery).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "name", "price", "stock"}).
			AddRow(1, 2, "Walnut Desk Organizer", 1000.0, 5).
			AddRow(2, 1, "Brass Bookend", 500.0, 1))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (user_id, total, status, created_at, updated_at)")).
		WithArgs(userID, 2500.0, models.OrderPending).
		WillReturnResult(sqlmock.NewResult(7, 1))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items (order_id, product_id, quantity, price, created_at)")).
		WithArgs(int64(7), int64(1), 2, 1000.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ? WHERE id = ?")).
		WithArgs(2, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items (order_id, product_id, quantity, price, created_at)")).
		WithArgs(int64(7), int64(2), 1, 500.0).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ? WHERE id = ?")).
		WithArgs(1, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = ?")).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 2))

	mock.ExpectCommit()

	items := sqlmock.NewRows(itemRowCols).
		AddRow(1, 7, 1, 2, 1000.0, now, 1, "Walnut Desk Organizer", "desc", 1000.0, 3, "http://x/a.jpg", now, now).
		AddRow(2, 7, 2, 1, 500.0, now, 2, "Brass Bookend", "desc", 500.0, 0, "http://x/b.jpg", now, now)
	expectFetchOrder(mock, 7, userID, 2500.0, models.OrderPending, items)

	w := doRequest(t, orderRouter(h, userID, models.RoleUser), http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])

	order := dataField(t, body, "order").(map[string]interface{})
	require.Equal(t, 2500.0, order["total"])
	require.Equal(t, "PENDING", order["status"])
	require.Len(t, order["items"].([]interface{}), 2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	h, mock := newTestApp(t)
	userID := int64(42)

	mock.ExpectBegin()
	mock.ExpectQuery(cartLinesQuery).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "name", "price", "stock"}))
	mock.ExpectRollback()

	w := doRequest(t, orderRouter(h, userID, models.RoleUser), http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Cart is empty", body["message"])

	// No order, no stock mutation, no cart delete
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPlaceOrder_InsufficientStock: one line over stock fails the whole
// placement. The error names the product and its availability, and no
// statement beyond the locked read executes.
func TestPlaceOrder_InsufficientStock(t *testing.T) {
	h, mock := newTestApp(t)
	userID := int64(42)

	mock.ExpectBegin()
	mock.ExpectQuery(cartLinesQuery).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "name", "price", "stock"}).
			AddRow(1, 2, "Walnut Desk Organizer", 1000.0, 5).
			AddRow(2, 1, "Brass Bookend", 500.0, 0))
	mock.ExpectRollback()

	w := doRequest(t, orderRouter(h, userID, models.RoleUser), http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "Insufficient stock for Brass Bookend. Available: 0", body["message"])

	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPlaceOrder_RollbackOnFailure: a mid-transaction failure (the stock
// decrement erroring) rolls everything back and surfaces a generic 500.
func TestPlaceOrder_RollbackOnFailure(t *testing.T) {
	h, mock := newTestApp(t)
	userID := int64(42)

	mock.ExpectBegin()
	mock.ExpectQuery(cartLinesQuery).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "name", "price", "stock"}).
			AddRow(1, 2, "Walnut Desk Organizer", 1000.0, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(userID, 2000.0, models.OrderPending).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(7), int64(1), 2, 1000.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ?")).
		WithArgs(2, int64(1)).
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	w := doRequest(t, orderRouter(h, userID, models.RoleUser), http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "Something went wrong", body["message"])

	require.NoError(t, mock.ExpectationsWereMet())
}

// txSpy records the options the handler begins its transaction with.
// sqlmock accepts any TxOptions without checking them, so observing the
// isolation level needs a driver shim in front of the mock connection.
type txSpy struct {
	begun     bool
	isolation sql.IsolationLevel
}

type spyDriver struct {
	inner driver.Driver
	dsn   string
	spy   *txSpy
}

func (d *spyDriver) Open(string) (driver.Conn, error) {
	conn, err := d.inner.Open(d.dsn)
	if err != nil {
		return nil, err
	}
	return &spyConn{inner: conn, spy: d.spy}, nil
}

type spyConn struct {
	inner driver.Conn
	spy   *txSpy
}

func (c *spyConn) Prepare(query string) (driver.Stmt, error) { return c.inner.Prepare(query) }
func (c *spyConn) Close() error                              { return c.inner.Close() }
func (c *spyConn) Begin() (driver.Tx, error)                 { return c.inner.Begin() }

func (c *spyConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.spy.begun = true
	c.spy.isolation = sql.IsolationLevel(opts.Isolation)
	return c.inner.(driver.ConnBeginTx).BeginTx(ctx, opts)
}

func (c *spyConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return c.inner.(driver.QueryerContext).QueryContext(ctx, query, args)
}

func (c *spyConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return c.inner.(driver.ExecerContext).ExecContext(ctx, query, args)
}

var (
	txSpyOnce sync.Once
	txSpyMock sqlmock.Sqlmock
	txSpyRec  = &txSpy{}
	txSpyErr  error
)

// newTxSpyApp builds Handlers over a sqlmock connection opened through the
// spy driver. Registered once; the mock connection stays pooled under its dsn.
func newTxSpyApp(t *testing.T) (*Handlers, sqlmock.Sqlmock, *txSpy) {
	t.Helper()
	txSpyOnce.Do(func() {
		seed, mock, err := sqlmock.NewWithDSN("txspy")
		if err != nil {
			txSpyErr = err
			return
		}
		txSpyMock = mock
		sql.Register("txspy", &spyDriver{inner: seed.Driver(), dsn: "txspy", spy: txSpyRec})
	})
	require.NoError(t, txSpyErr)

	db, err := sql.Open("txspy", "txspy")
	require.NoError(t, err)
	return &Handlers{DB: db, Cache: &cache.Cache{}, Cfg: config.Config{}}, txSpyMock, txSpyRec
}

// TestPlaceOrder_SerializableIsolation: the checkout transaction opens at
// serializable isolation. Together with the FOR UPDATE pin on the cart read,
// this is what keeps two racing checkouts from overselling the last unit.
func TestPlaceOrder_SerializableIsolation(t *testing.T) {
	h, mock, spy := newTxSpyApp(t)
	userID := int64(42)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(cartLinesQuery).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "name", "price", "stock"}).
			AddRow(1, 1, "Brass Bookend", 500.0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(userID, 500.0, models.OrderPending).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(8), int64(1), 1, 500.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ? WHERE id = ?")).
		WithArgs(1, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = ?")).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	items := sqlmock.NewRows(itemRowCols).
		AddRow(1, 8, 1, 1, 500.0, now, 1, "Brass Bookend", "desc", 500.0, 0, "http://x/b.jpg", now, now)
	expectFetchOrder(mock, 8, userID, 500.0, models.OrderPending, items)

	w := doRequest(t, orderRouter(h, userID, models.RoleUser), http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, spy.begun)
	require.Equal(t, sql.LevelSerializable, spy.isolation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByID_OwnerScoped(t *testing.T) {
	h, mock := newTestApp(t)
	userID := int64(42)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? AND user_id = ?")).
		WithArgs("9", userID).
		WillReturnError(errSQLNoRows())

	w := doRequest(t, orderRouter(h, userID, models.RoleUser), http.MethodGet, "/orders/9", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Order not found", decodeBody(t, w)["message"])
}

func TestUpdateOrderStatus_Valid(t *testing.T) {
	h, mock := newTestApp(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?")).
		WithArgs(models.OrderShipped, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectFetchOrder(mock, 7, 42, 2500.0, models.OrderShipped, sqlmock.NewRows(itemRowCols))

	w := doRequest(t, orderRouter(h, 1, models.RoleAdmin), http.MethodPatch, "/orders/7/status",
		gin.H{"status": "SHIPPED"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	order := dataField(t, body, "order").(map[string]interface{})
	require.Equal(t, "SHIPPED", order["status"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	h, mock := newTestApp(t)

	w := doRequest(t, orderRouter(h, 1, models.RoleAdmin), http.MethodPatch, "/orders/7/status",
		gin.H{"status": "BOGUS"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid order status", decodeBody(t, w)["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	h, mock := newTestApp(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?")).
		WithArgs(models.OrderShipped, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnError(errSQLNoRows())

	w := doRequest(t, orderRouter(h, 1, models.RoleAdmin), http.MethodPatch, "/orders/99/status",
		gin.H{"status": "SHIPPED"})

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Order not found", decodeBody(t, w)["message"])
}

// TestGetAllOrders_Paginated covers the admin listing with a status filter.
func TestGetAllOrders_Paginated(t *testing.T) {
	h, mock := newTestApp(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders o WHERE o.status = ?")).
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`JOIN users u ON o\.user_id = u\.id`).
		WithArgs("PENDING", 5, 5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "total", "status", "created_at", "updated_at", "u_id", "u_name", "u_email",
		}).AddRow(3, 42, 2500.0, "PENDING", now, now, 42, "Ada", "ada@example.com"))
	mock.ExpectQuery(`FROM order_items`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(itemRowCols))

	w := doRequest(t, orderRouter(h, 1, models.RoleAdmin), http.MethodGet, "/orders/all?page=2&limit=5&status=PENDING", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)

	pagination := dataField(t, body, "pagination").(map[string]interface{})
	require.Equal(t, 11.0, pagination["total"])
	require.Equal(t, 3.0, pagination["totalPages"])
	require.Equal(t, true, pagination["hasNextPage"])
	require.Equal(t, true, pagination["hasPrevPage"])

	orders := dataField(t, body, "orders").([]interface{})
	require.Len(t, orders, 1)
	buyer := orders[0].(map[string]interface{})["user"].(map[string]interface{})
	require.Equal(t, "ada@example.com", buyer["email"])
}
