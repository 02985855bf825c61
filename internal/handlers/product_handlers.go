package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shoplane/storefront-api/internal/apperr"
	"github.com/shoplane/storefront-api/internal/models"
	"github.com/shoplane/storefront-api/internal/respond"
)

// parsePagination reads ?page and ?limit (1-based page, default 1/10).
func parsePagination(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 {
		limit = 10
	}
	return page, limit, (page - 1) * limit
}

// paginationMeta builds the shared pagination response block.
func paginationMeta(page, limit, total int) gin.H {
	totalPages := (total + limit - 1) / limit
	return gin.H{
		"page":        page,
		"limit":       limit,
		"total":       total,
		"totalPages":  totalPages,
		"hasNextPage": page*limit < total,
		"hasPrevPage": page > 1,
	}
}

// GetAllProducts is the handler for GET /products. Supports search over
// name/description, a price range, whitelisted sorting, and pagination.
func (h *Handlers) GetAllProducts(c *gin.Context) {
	page, limit, offset := parsePagination(c)
	search := c.Query("search")
	minPrice := c.Query("minPrice")
	maxPrice := c.Query("maxPrice")

	sortBy := c.DefaultQuery("sortBy", "createdAt")
	sortField, ok := models.ProductSortFields[sortBy]
	if !ok {
		sortBy = "createdAt"
		sortField = "created_at"
	}
	sortOrder := "DESC"
	if c.Query("order") == "asc" {
		sortOrder = "ASC"
	}

	cacheKey := "product:list:" + c.Request.URL.RawQuery
	var cached gin.H
	if h.Cache.GetJSON(c, cacheKey, &cached) {
		respond.JSON(c, http.StatusOK, "", cached)
		return
	}

	var where strings.Builder
	where.WriteString(" WHERE 1=1")
	var args []interface{}

	if search != "" {
		where.WriteString(" AND (name LIKE ? OR description LIKE ?)")
		term := "%" + search + "%"
		args = append(args, term, term)
	}
	if minPrice != "" {
		where.WriteString(" AND price >= ?")
		args = append(args, minPrice)
	}
	if maxPrice != "" {
		where.WriteString(" AND price <= ?")
		args = append(args, maxPrice)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM products" + where.String()
	if err := h.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		respond.Error(c, err)
		return
	}

	query := fmt.Sprintf(
		"SELECT id, name, description, price, stock, image_url, created_at, updated_at FROM products%s ORDER BY %s %s LIMIT ? OFFSET ?",
		where.String(), sortField, sortOrder,
	)
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			respond.Error(c, err)
			return
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		respond.Error(c, err)
		return
	}

	data := gin.H{
		"products":   products,
		"pagination": paginationMeta(page, limit, total),
		"filters": gin.H{
			"search":   search,
			"minPrice": minPrice,
			"maxPrice": maxPrice,
			"sortBy":   sortBy,
			"order":    strings.ToLower(sortOrder),
		},
	}
	h.Cache.SetJSON(c, cacheKey, data)

	respond.JSON(c, http.StatusOK, "", data)
}

// GetProductByID is the handler for GET /products/:id.
func (h *Handlers) GetProductByID(c *gin.Context) {
	id := c.Param("id")

	cacheKey := "product:id:" + id
	var cached models.Product
	if h.Cache.GetJSON(c, cacheKey, &cached) {
		respond.JSON(c, http.StatusOK, "", gin.H{"product": cached})
		return
	}

	product, err := h.fetchProduct(id)
	if err != nil {
		respond.Error(c, err)
		return
	}

	h.Cache.SetJSON(c, cacheKey, product)
	respond.JSON(c, http.StatusOK, "", gin.H{"product": product})
}

func (h *Handlers) fetchProduct(id string) (models.Product, error) {
	var p models.Product
	err := h.DB.QueryRow(
		"SELECT id, name, description, price, stock, image_url, created_at, updated_at FROM products WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, apperr.New(apperr.NotFound, "Product not found")
	}
	return p, err
}

// CreateProductInput is the JSON body for POST /products (admin).
// Price and Stock are pointers so a literal 0 passes 'required'.
type CreateProductInput struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Stock       *int     `json:"stock" binding:"required,gte=0"`
	ImageURL    string   `json:"imageUrl" binding:"required,url"`
}

// CreateProduct is the handler for POST /products (admin only).
func (h *Handlers) CreateProduct(c *gin.Context) {
	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BindingError(c, err)
		return
	}

	result, err := h.DB.Exec(
		"INSERT INTO products (name, description, price, stock, image_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?, NOW(), NOW())",
		input.Name, input.Description, *input.Price, *input.Stock, input.ImageURL,
	)
	if err != nil {
		respond.Error(c, err)
		return
	}
	productID, err := result.LastInsertId()
	if err != nil {
		respond.Error(c, err)
		return
	}

	h.Cache.InvalidateProducts(c)

	product, err := h.fetchProduct(strconv.FormatInt(productID, 10))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, "Product created successfully", gin.H{"product": product})
}

// UpdateProduct is the handler for PUT /products/:id (admin only).
// Partial update: only fields present in the body change.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	id := c.Param("id")

	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.BindingError(c, err)
		return
	}

	var sets []string
	var args []interface{}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *patch.Price)
	}
	if patch.Stock != nil {
		sets = append(sets, "stock = ?")
		args = append(args, *patch.Stock)
	}
	if patch.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, *patch.ImageURL)
	}
	if len(sets) == 0 {
		respond.Error(c, apperr.New(apperr.ValidationFailed, "No fields to update"))
		return
	}

	query := "UPDATE products SET " + strings.Join(sets, ", ") + ", updated_at = NOW() WHERE id = ?"
	result, err := h.DB.Exec(query, append(args, id)...)
	if err != nil {
		respond.Error(c, err)
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		// Distinguish a missing row from a no-op update on identical values
		if _, err := h.fetchProduct(id); err != nil {
			respond.Error(c, err)
			return
		}
	}

	h.Cache.InvalidateProducts(c)

	product, err := h.fetchProduct(id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Product updated successfully", gin.H{"product": product})
}

// DeleteProduct is the handler for DELETE /products/:id (admin only).
// Order items that reference the product keep their frozen snapshot; the
// foreign key nulls their product_id.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id := c.Param("id")

	result, err := h.DB.Exec("DELETE FROM products WHERE id = ?", id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		respond.Error(c, apperr.New(apperr.NotFound, "Product not found"))
		return
	}

	h.Cache.InvalidateProducts(c)
	respond.JSON(c, http.StatusOK, "Product deleted successfully", nil)
}
