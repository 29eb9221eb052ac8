package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"Gin_postgres_redis_lending/db"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func statusFor(code string) int {
	switch code {
	case db.ErrCodeNotFound:
		return http.StatusNotFound
	case db.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case db.ErrCodeConflict:
		return http.StatusConflict
	case db.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError answers {"detail": ...} with the status matching the domain code.
// Internal errors are logged and hidden from the client.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	var de *db.DomainError
	if errors.As(err, &de) {
		c.JSON(statusFor(de.Code), gin.H{"detail": de.Message})
		return
	}
	if log == nil {
		log = slog.Default()
	}
	log.Error("request failed",
		"method", c.Request.Method, "path", c.FullPath(),
		"request_id", c.GetString("requestID"), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
}

func badRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": detail})
}

// bindError turns binding failures into a readable 400.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		badRequest(c, "Invalid request body.")
		return
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required.")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters.", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not a valid %s.", field, strings.ReplaceAll(fe.Tag(), "_", " ")))
		}
	}
	badRequest(c, strings.Join(msgs, " "))
}
