// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"fleetops-backend/internal/models"
	"fleetops-backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// requestScope — кто и из какой организации делает запрос.
// Снимается с контекста, куда её положил AuthMiddleware.
type requestScope struct {
	UserID   primitive.ObjectID
	OrgID    primitive.ObjectID
	Role     models.UserRole
	UserName string
}

func scopeFromContext(c *gin.Context) (requestScope, bool) {
	userID, ok1 := c.Get("user_id")
	orgID, ok2 := c.Get("org_id")
	role, ok3 := c.Get("role")
	if !ok1 || !ok2 || !ok3 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return requestScope{}, false
	}

	name, _ := c.Get("user_name")
	userName, _ := name.(string)

	return requestScope{
		UserID:   userID.(primitive.ObjectID),
		OrgID:    orgID.(primitive.ObjectID),
		Role:     models.UserRole(role.(string)),
		UserName: userName,
	}, true
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondServiceError переводит ошибки сервисного слоя в HTTP статусы
func respondServiceError(c *gin.Context, err error) {
	var validationErrs services.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"fields": validationErrs,
		})
		return
	}

	var uploadErr *services.UploadError
	if errors.As(err, &uploadErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "File upload failed",
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Record not found",
		})
	case errors.Is(err, services.ErrUnsupportedComplianceType):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Compliance type is not supported for persistence",
		})
	case errors.Is(err, services.ErrDownloadNotAllowed):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Document is not downloadable in its current status",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
