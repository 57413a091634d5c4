// internal/handlers/document.go
package handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"fleetops-backend/internal/models"
	"fleetops-backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

type DocumentHandler struct {
	service       *services.DocumentService
	uploadDir     string
	maxUploadSize int64
}

func NewDocumentHandler(service *services.DocumentService, uploadDir string, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{
		service:       service,
		uploadDir:     uploadDir,
		maxUploadSize: maxUploadSize,
	}
}

// List возвращает документы организации с их производным состоянием срока
func (h *DocumentHandler) List(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	docs, err := h.service.List(ctx, scope.OrgID, c.Query("category"), c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	now := time.Now()
	items := make([]gin.H, 0, len(docs))
	for i := range docs {
		items = append(items, gin.H{
			"document":     docs[i],
			"expiry_state": models.ClassifyExpiry(&docs[i], now),
			"status":       docs[i].EffectiveStatus(now),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": items,
		"total":     len(items),
	})
}

// Stats пересчитывает агрегаты по снапшоту на каждый запрос
func (h *DocumentHandler) Stats(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	docs, err := h.service.List(ctx, scope.OrgID, "", "")
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ComputeDocumentStats(docs, time.Now()))
}

// Get возвращает один документ
func (h *DocumentHandler) Get(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}
	docID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := h.service.Get(ctx, scope.OrgID, docID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"document":     doc,
		"expiry_state": models.ClassifyExpiry(doc, now),
		"status":       doc.EffectiveStatus(now),
	})
}

// Upload принимает multipart-форму: файл плюс метаданные
func (h *DocumentHandler) Upload(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "File is required",
		})
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "File is too large",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read uploaded file",
		})
		return
	}
	defer file.Close()

	input := &services.UploadInput{
		Name:           c.PostForm("name"),
		Category:       c.PostForm("category"),
		Priority:       c.DefaultPostForm("priority", string(models.PriorityMedium)),
		IsConfidential: c.PostForm("is_confidential") == "true",
		Version:        c.PostForm("version"),
		ContentType:    fileHeader.Header.Get("Content-Type"),
		FileSize:       fileHeader.Size,
	}
	if input.Name == "" {
		input.Name = fileHeader.Filename
	}
	if tags := c.PostForm("tags"); tags != "" {
		parts := strings.Split(tags, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		input.Tags = parts
	}
	if raw := c.PostForm("expiry_date"); raw != "" {
		expiry, err := time.Parse("2006-01-02", raw)
		if err != nil {
			expiry, err = time.Parse(time.RFC3339, raw)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid expiry_date",
			})
			return
		}
		input.ExpiryDate = &expiry
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc, err := h.service.Create(ctx, scope.OrgID, scope.UserID, input, file)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

type documentPatchRequest struct {
	Name       *string  `json:"name,omitempty"`
	Category   *string  `json:"category,omitempty"`
	Priority   *string  `json:"priority,omitempty"`
	Status     *string  `json:"status,omitempty"`
	ExpiryDate *string  `json:"expiry_date,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Version    *string  `json:"version,omitempty"`
}

// Update применяет узкий patch метаданных документа
func (h *DocumentHandler) Update(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}
	docID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req documentPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	patch := bson.M{}
	if req.Name != nil && *req.Name != "" {
		patch["name"] = *req.Name
	}
	if req.Category != nil {
		patch["category"] = models.NormalizeCategory(*req.Category)
	}
	if req.Priority != nil {
		if !models.PriorityLevel(*req.Priority).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
			return
		}
		patch["priority"] = *req.Priority
	}
	if req.Status != nil {
		status := models.DocumentStatus(*req.Status)
		// Архивный переход идет через отдельный endpoint
		if !status.IsValid() || status == models.DocumentStatusArchived {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		patch["status"] = status
	}
	if req.ExpiryDate != nil {
		if *req.ExpiryDate == "" {
			patch["expiry_date"] = nil
		} else {
			expiry, err := time.Parse("2006-01-02", *req.ExpiryDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expiry_date"})
				return
			}
			patch["expiry_date"] = expiry
		}
	}
	if req.Tags != nil {
		patch["tags"] = req.Tags
	}
	if req.Version != nil && *req.Version != "" {
		patch["version"] = *req.Version
	}

	if len(patch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Nothing to update",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.service.UpdateMeta(ctx, scope.OrgID, docID, patch); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Document updated successfully",
	})
}

type favoriteRequest struct {
	IsFavorite bool `json:"is_favorite"`
}

// SetFavorite переключает флаг избранного; статус и срок не трогаются
func (h *DocumentHandler) SetFavorite(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}
	docID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.service.SetFavorite(ctx, scope.OrgID, docID, req.IsFavorite); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Favorite flag updated",
	})
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

// SetArchived архивирует или разархивирует документ
func (h *DocumentHandler) SetArchived(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}
	docID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := h.service.SetArchived(ctx, scope.OrgID, docID, req.Archived)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Download отдает файл и инкрементирует счетчик скачиваний
func (h *DocumentHandler) Download(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}
	docID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := h.service.RegisterDownload(ctx, scope.OrgID, docID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.FileAttachment(filepath.Join(h.uploadDir, doc.StoragePath), doc.Name)
}

// Delete удаляет документ вместе с файлом
func (h *DocumentHandler) Delete(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		return
	}
	docID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, scope.OrgID, docID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Document deleted successfully",
	})
}
