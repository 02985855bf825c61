// Package respond writes the uniform API envelope:
// { success, message?, data?, errors? }.
package respond

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"

	"github.com/shoplane/storefront-api/internal/apperr"
)

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// JSON writes a success envelope. message may be empty.
func JSON(c *gin.Context, status int, message string, data gin.H) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// Error is the boundary translator: every handler failure funnels through
// here. Known kinds map to their status; anything else becomes a 500 with a
// generic message so internal detail never reaches the client.
func Error(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(appErr.Kind.Status(), envelope{
			Success: false,
			Message: appErr.Message,
			Errors:  fieldsOrNil(appErr.Fields),
		})
		return
	}

	// MySQL 1062: a unique key violation, reached when a concurrent insert
	// slips between an existence check and the write
	var dup *mysql.MySQLError
	if errors.As(err, &dup) && dup.Number == 1062 {
		Error(c, apperr.New(apperr.Conflict, "A record with this value already exists"))
		return
	}

	log.Printf("internal error: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{
		Success: false,
		Message: "Something went wrong",
	})
}

// BindingError converts a gin ShouldBindJSON/ShouldBindQuery failure into a
// ValidationFailed envelope with per-field detail.
func BindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
			})
		}
		Error(c, apperr.Validation(fields))
		return
	}
	Error(c, apperr.New(apperr.ValidationFailed, "Invalid request body"))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or greater", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

func fieldsOrNil(fields []apperr.FieldError) interface{} {
	if len(fields) == 0 {
		return nil
	}
	return fields
}
