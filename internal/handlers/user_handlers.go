package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shoplane/storefront-api/internal/apperr"
	"github.com/shoplane/storefront-api/internal/auth"
	"github.com/shoplane/storefront-api/internal/middleware"
	"github.com/shoplane/storefront-api/internal/models"
	"github.com/shoplane/storefront-api/internal/respond"
)

// RegisterInput is the JSON body for POST /auth/register.
type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register is the handler for POST /auth/register.
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BindingError(c, err)
		return
	}

	// Duplicate check first for a clean error; the unique index still
	// backs it up under concurrent registration.
	var existingID int64
	err := h.DB.QueryRow("SELECT id FROM users WHERE email = ?", input.Email).Scan(&existingID)
	if err == nil {
		respond.Error(c, apperr.New(apperr.Conflict, "User with this email already exists"))
		return
	}
	if err != sql.ErrNoRows {
		respond.Error(c, err)
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		respond.Error(c, err)
		return
	}

	now := time.Now()
	result, err := h.DB.Exec(
		"INSERT INTO users (email, password_hash, name, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		input.Email, password.Hash, input.Name, models.RoleUser, now, now,
	)
	if err != nil {
		respond.Error(c, err)
		return
	}
	userID, err := result.LastInsertId()
	if err != nil {
		respond.Error(c, err)
		return
	}

	user := models.User{
		ID:        userID,
		Email:     input.Email,
		Name:      input.Name,
		Role:      models.RoleUser,
		CreatedAt: now,
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusCreated, "User registered successfully", gin.H{
		"user":  user,
		"token": token,
	})
}

// LoginInput is the JSON body for POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /auth/login. Unknown email and wrong
// password produce the same message.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BindingError(c, err)
		return
	}

	var user models.User
	err := h.DB.QueryRow(
		"SELECT id, email, password_hash, name, role, created_at FROM users WHERE email = ?",
		input.Email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			respond.Error(c, apperr.New(apperr.Unauthorized, "Invalid email or password"))
			return
		}
		respond.Error(c, err)
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	matches, err := password.Matches(input.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if !matches {
		respond.Error(c, apperr.New(apperr.Unauthorized, "Invalid email or password"))
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.JSON(c, http.StatusOK, "Login successful", gin.H{
		"user":  user,
		"token": token,
	})
}

// GetProfile is the handler for GET /auth/me. The middleware already
// resolved the current user row.
func (h *Handlers) GetProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	respond.JSON(c, http.StatusOK, "", gin.H{"user": user})
}
