// internal/handlers/compliance.go
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fleetops-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ComplianceHandler struct {
	service *services.ComplianceService
}

func NewComplianceHandler(service *services.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{service: service}
}

// CreateEntry валидирует форму и маршрутизирует запись в коллекцию её типа
func (h *ComplianceHandler) CreateEntry(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	var input services.EntryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record, err := h.service.CreateEntry(ctx, scope.OrgID, scope.UserID, &input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func paginationParams(c *gin.Context) (limit, skip int64) {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return limit, (page - 1) * limit
}

// ListInspections возвращает инспекции организации
func (h *ComplianceHandler) ListInspections(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	limit, skip := paginationParams(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := h.service.ListInspections(ctx, scope.OrgID, c.Query("vehicle_id"), limit, skip)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inspections": records,
		"count":       len(records),
	})
}

// ListViolations возвращает нарушения организации
func (h *ComplianceHandler) ListViolations(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	limit, skip := paginationParams(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := h.service.ListViolations(ctx, scope.OrgID, c.Query("vehicle_id"), limit, skip)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"violations": records,
		"count":      len(records),
	})
}

// Stats возвращает агрегаты по инспекциям и нарушениям
func (h *ComplianceHandler) Stats(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := h.service.Stats(ctx, scope.OrgID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
