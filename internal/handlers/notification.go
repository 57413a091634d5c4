// internal/handlers/notification.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"fleetops-backend/internal/models"
	"fleetops-backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationHandler struct {
	service               *services.NotificationService
	deviceTokenCollection *mongo.Collection
}

func NewNotificationHandler(service *services.NotificationService, deviceTokenCollection *mongo.Collection) *NotificationHandler {
	return &NotificationHandler{
		service:               service,
		deviceTokenCollection: deviceTokenCollection,
	}
}

// Compose создает и отправляет сообщение. Одна строка на сообщение,
// fan-out по роли происходит при чтении.
func (h *NotificationHandler) Compose(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	var input services.ComposeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sender := services.SenderInfo{
		ID:   scope.UserID,
		Name: scope.UserName,
		Role: scope.Role,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	message, err := h.service.Send(ctx, scope.OrgID, sender, &input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// List возвращает сообщения текущего пользователя
func (h *NotificationHandler) List(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	limit, skip := paginationParams(c)
	unreadOnly := c.Query("unread") == "true"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	messages, total, err := h.service.ListForUser(ctx, scope.OrgID, scope.UserID, scope.Role, unreadOnly, limit, skip)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": messages,
		"total":         total,
	})
}

// UnreadCount — бейдж непрочитанных
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := h.service.UnreadCount(ctx, scope.OrgID, scope.UserID, scope.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unread": count,
	})
}

// MarkRead помечает одно сообщение прочитанным
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}
	messageID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.service.MarkRead(ctx, scope.OrgID, scope.UserID, scope.Role, messageID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification marked as read",
	})
}

type bulkIDsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

func parseBulkIDs(c *gin.Context) ([]primitive.ObjectID, bool) {
	var req bulkIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "ids list is required",
		})
		return nil, false
	}

	ids := make([]primitive.ObjectID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid id: " + raw,
			})
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// MarkReadBulk помечает прочитанными перечисленные сообщения; id, которые
// пометить не удалось, возвращаются в ответе, а не теряются
func (h *NotificationHandler) MarkReadBulk(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}
	ids, ok := parseBulkIDs(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := h.service.MarkReadBulk(ctx, scope.OrgID, scope.UserID, scope.Role, ids)

	c.JSON(http.StatusOK, gin.H{
		"marked": len(ids) - len(failed),
		"failed": failed,
	})
}

// MarkAllRead помечает прочитанными все сообщения пользователя
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := h.service.MarkAllRead(ctx, scope.OrgID, scope.UserID, scope.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"marked": count,
	})
}

// DeleteBulk удаляет перечисленные сообщения пользователя
func (h *NotificationHandler) DeleteBulk(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}
	ids, ok := parseBulkIDs(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := h.service.DeleteBulk(ctx, scope.OrgID, scope.UserID, scope.Role, ids)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
	})
}

// ListTemplates возвращает каталог шаблонов уведомлений
func (h *NotificationHandler) ListTemplates(c *gin.Context) {
	if _, ok := scopeFromContext(c); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	templates, err := h.service.ListTemplates(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"templates": templates,
	})
}

type deviceTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=android ios web"`
}

// RegisterDeviceToken сохраняет push-токен устройства (upsert по токену)
func (h *NotificationHandler) RegisterDeviceToken(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	var req deviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	_, err := h.deviceTokenCollection.UpdateOne(ctx,
		bson.M{"token": req.Token},
		bson.M{
			"$set": bson.M{
				"org_id":     scope.OrgID,
				"user_id":    scope.UserID,
				"platform":   req.Platform,
				"is_active":  true,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to register device token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Device token registered",
	})
}

// UnregisterDeviceToken деактивирует push-токен устройства
func (h *NotificationHandler) UnregisterDeviceToken(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Token is required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.deviceTokenCollection.UpdateOne(ctx,
		bson.M{"token": req.Token, "user_id": scope.UserID},
		bson.M{"$set": bson.M{
			"is_active":  false,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to unregister device token",
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Device token not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Device token unregistered",
	})
}

// DeliverySummary — процент доставленных среди отправленных сообщений
// пользователя, для дашборда
func (h *NotificationHandler) DeliverySummary(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	messages, _, err := h.service.ListForUser(ctx, scope.OrgID, scope.UserID, scope.Role, false, 0, 0)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"delivery_rate": models.DeliveryRate(messages),
		"unread":        models.CountUnread(messages),
		"total":         len(messages),
	})
}
