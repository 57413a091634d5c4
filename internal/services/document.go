// internal/services/document.go
package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"fleetops-backend/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// documentInserter покрывает единственный метод коллекции, нужный саге
// загрузки; в тестах подменяется без живой базы
type documentInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type DocumentService struct {
	documentCollection *mongo.Collection
	inserter           documentInserter
	storage            FileStorage
}

func NewDocumentService(documentCollection *mongo.Collection, storage FileStorage) *DocumentService {
	return &DocumentService{
		documentCollection: documentCollection,
		inserter:           documentCollection,
		storage:            storage,
	}
}

// UploadInput — метаданные формы загрузки
type UploadInput struct {
	Name           string
	Category       string
	Priority       string
	ExpiryDate     *time.Time
	IsConfidential bool
	Tags           []string
	Version        string
	ContentType    string
	FileSize       int64
}

// Create выполняет двухшаговую сагу "файл, потом запись". Если файл не
// загрузился — записи нет. Если запись не вставилась — блоб удаляется
// best-effort, и неудача компенсации логируется, а не глотается.
func (s *DocumentService) Create(ctx context.Context, orgID, userID primitive.ObjectID, input *UploadInput, file io.Reader) (*models.Document, error) {
	if errs := validateUpload(input); errs != nil {
		return nil, errs
	}

	storagePath, err := s.storage.Save(ctx, "documents", input.Name, file)
	if err != nil {
		return nil, &UploadError{Err: err}
	}

	now := time.Now()
	version := input.Version
	if version == "" {
		version = "1.0"
	}

	doc := &models.Document{
		OrgID:          orgID,
		Name:           input.Name,
		Category:       models.NormalizeCategory(input.Category),
		Status:         models.DocumentStatusDraft,
		Priority:       models.PriorityLevel(input.Priority),
		ExpiryDate:     input.ExpiryDate,
		IsConfidential: input.IsConfidential,
		Tags:           orEmpty(input.Tags),
		Version:        version,
		StoragePath:    storagePath,
		FileSize:       input.FileSize,
		ContentType:    input.ContentType,
		UploadedBy:     userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	result, err := s.inserter.InsertOne(ctx, doc)
	if err != nil {
		// Компенсация: файл уже лежит в хранилище, запись не создалась
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			logrus.WithFields(logrus.Fields{
				"storage_path": storagePath,
				"error":        delErr,
			}).Error("compensation failed: orphaned blob left in storage")
		}
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	doc.ID = result.InsertedID.(primitive.ObjectID)
	return doc, nil
}

func validateUpload(input *UploadInput) ValidationErrors {
	errs := ValidationErrors{}
	if input.Name == "" {
		errs["name"] = "name is required"
	}
	if !models.PriorityLevel(input.Priority).IsValid() {
		errs["priority"] = "invalid priority"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Get возвращает документ в пределах организации
func (s *DocumentService) Get(ctx context.Context, orgID, docID primitive.ObjectID) (*models.Document, error) {
	var doc models.Document
	err := s.documentCollection.FindOne(ctx, bson.M{
		"_id":    docID,
		"org_id": orgID,
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List возвращает документы организации с фильтрами
func (s *DocumentService) List(ctx context.Context, orgID primitive.ObjectID, category, status string) ([]models.Document, error) {
	filter := bson.M{"org_id": orgID}
	if category != "" {
		filter["category"] = category
	}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.documentCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// SetFavorite переключает флаг избранного, не трогая статус и срок действия
func (s *DocumentService) SetFavorite(ctx context.Context, orgID, docID primitive.ObjectID, favorite bool) error {
	result, err := s.documentCollection.UpdateOne(ctx,
		bson.M{"_id": docID, "org_id": orgID},
		bson.M{"$set": bson.M{
			"is_favorite": favorite,
			"updated_at":  time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetArchived архивирует или разархивирует документ, сохраняя прежний
// статус для восстановления
func (s *DocumentService) SetArchived(ctx context.Context, orgID, docID primitive.ObjectID, archived bool) (*models.Document, error) {
	doc, err := s.Get(ctx, orgID, docID)
	if err != nil {
		return nil, err
	}

	patch := models.ArchivePatch(doc, archived, time.Now())
	result, err := s.documentCollection.UpdateOne(ctx,
		bson.M{"_id": docID, "org_id": orgID},
		bson.M{"$set": patch},
	)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, orgID, docID)
}

// UpdateMeta применяет узкий patch метаданных
func (s *DocumentService) UpdateMeta(ctx context.Context, orgID, docID primitive.ObjectID, patch bson.M) error {
	patch["updated_at"] = time.Now()
	result, err := s.documentCollection.UpdateOne(ctx,
		bson.M{"_id": docID, "org_id": orgID},
		bson.M{"$set": patch},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RegisterDownload инкрементирует счетчик скачиваний. Документы в draft и
// pending не скачиваются: скачивание подразумевает пройденное согласование.
func (s *DocumentService) RegisterDownload(ctx context.Context, orgID, docID primitive.ObjectID) (*models.Document, error) {
	doc, err := s.Get(ctx, orgID, docID)
	if err != nil {
		return nil, err
	}

	if !doc.CanIncrementDownload() {
		return nil, ErrDownloadNotAllowed
	}

	_, err = s.documentCollection.UpdateOne(ctx,
		bson.M{"_id": docID, "org_id": orgID},
		bson.M{"$inc": bson.M{"download_count": 1}},
	)
	if err != nil {
		return nil, err
	}

	doc.DownloadCount++
	return doc, nil
}

// Delete удаляет запись, затем best-effort блоб
func (s *DocumentService) Delete(ctx context.Context, orgID, docID primitive.ObjectID) error {
	doc, err := s.Get(ctx, orgID, docID)
	if err != nil {
		return err
	}

	result, err := s.documentCollection.DeleteOne(ctx, bson.M{
		"_id":    docID,
		"org_id": orgID,
	})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	if doc.StoragePath != "" {
		if delErr := s.storage.Delete(ctx, doc.StoragePath); delErr != nil {
			logrus.WithFields(logrus.Fields{
				"storage_path": doc.StoragePath,
				"error":        delErr,
			}).Warn("failed to remove blob for deleted document")
		}
	}

	return nil
}
