package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aulahub/console/client"
	"github.com/aulahub/console/repository"
	"github.com/aulahub/console/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ownerID returns the authenticated user injected by the auth middleware.
func ownerID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id format"})
		return "", false
	}
	return id, true
}

// respondError maps service errors onto API answers. Validation problems
// always carry field-level detail; everything else is a short message, the
// full error only goes to the log.
func respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "fields": vErr.Fields})
		return
	}

	switch {
	case errors.Is(err, client.ErrNotFound),
		errors.Is(err, repository.ErrNoDraft),
		errors.Is(err, service.ErrModuleNotFound),
		errors.Is(err, service.ErrNoContext):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrActionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUploadAborted):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrVideoNotAccessible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "operación fallida, intenta de nuevo"})
	}
}

// bindingFields converts binding failures from gin's validator into the same
// field-level shape the service layer uses.
func bindingFields(err error) []service.FieldError {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return nil
	}
	flds := make([]service.FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, service.FieldError{
			Field: strings.ToLower(fe.Field()),
			Error: "failed " + fe.Tag() + " validation",
		})
	}
	return flds
}

func respondBindError(c *gin.Context, err error) {
	if flds := bindingFields(err); flds != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": flds})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
}
