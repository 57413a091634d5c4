package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeStorage записывает вызовы Save/Delete вместо похода на диск
type fakeStorage struct {
	saveErr   error
	deleteErr error

	saved   []string
	deleted []string
}

func (f *fakeStorage) Save(ctx context.Context, folder, originalName string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	path := folder + "/" + originalName
	f.saved = append(f.saved, path)
	return path, nil
}

func (f *fakeStorage) Delete(ctx context.Context, storagePath string) error {
	f.deleted = append(f.deleted, storagePath)
	return f.deleteErr
}

// fakeInserter подменяет InsertOne без живой базы
type fakeInserter struct {
	err      error
	inserted []interface{}
}

func (f *fakeInserter) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserted = append(f.inserted, document)
	return &mongo.InsertOneResult{InsertedID: primitive.NewObjectID()}, nil
}

func newTestDocumentService(storage *fakeStorage, inserter *fakeInserter) *DocumentService {
	return &DocumentService{
		inserter: inserter,
		storage:  storage,
	}
}

func uploadInput() *UploadInput {
	return &UploadInput{
		Name:        "insurance.pdf",
		Category:    "insurance",
		Priority:    "medium",
		ContentType: "application/pdf",
		FileSize:    1024,
	}
}

func TestCreateSaga(t *testing.T) {
	orgID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	t.Run("happy path: blob saved then record inserted", func(t *testing.T) {
		storage := &fakeStorage{}
		inserter := &fakeInserter{}
		svc := newTestDocumentService(storage, inserter)

		doc, err := svc.Create(context.Background(), orgID, userID, uploadInput(), strings.NewReader("pdf"))
		require.NoError(t, err)

		assert.Len(t, storage.saved, 1)
		assert.Len(t, inserter.inserted, 1)
		assert.Empty(t, storage.deleted)
		assert.Equal(t, orgID, doc.OrgID)
		assert.Equal(t, storage.saved[0], doc.StoragePath)
		assert.False(t, doc.ID.IsZero())
	})

	t.Run("upload failure: no record is created", func(t *testing.T) {
		storage := &fakeStorage{saveErr: errors.New("disk full")}
		inserter := &fakeInserter{}
		svc := newTestDocumentService(storage, inserter)

		_, err := svc.Create(context.Background(), orgID, userID, uploadInput(), strings.NewReader("pdf"))
		require.Error(t, err)

		var uploadErr *UploadError
		assert.ErrorAs(t, err, &uploadErr)
		assert.Empty(t, inserter.inserted)
	})

	t.Run("insert failure: uploaded blob is compensated", func(t *testing.T) {
		storage := &fakeStorage{}
		inserter := &fakeInserter{err: errors.New("write conflict")}
		svc := newTestDocumentService(storage, inserter)

		_, err := svc.Create(context.Background(), orgID, userID, uploadInput(), strings.NewReader("pdf"))
		require.Error(t, err)

		require.Len(t, storage.saved, 1)
		require.Len(t, storage.deleted, 1)
		assert.Equal(t, storage.saved[0], storage.deleted[0])
	})

	t.Run("compensation failure does not mask the original error", func(t *testing.T) {
		storage := &fakeStorage{deleteErr: errors.New("blob is locked")}
		insertErr := errors.New("write conflict")
		inserter := &fakeInserter{err: insertErr}
		svc := newTestDocumentService(storage, inserter)

		_, err := svc.Create(context.Background(), orgID, userID, uploadInput(), strings.NewReader("pdf"))
		require.Error(t, err)
		assert.ErrorIs(t, err, insertErr)
	})

	t.Run("validation failure: nothing touches storage", func(t *testing.T) {
		storage := &fakeStorage{}
		inserter := &fakeInserter{}
		svc := newTestDocumentService(storage, inserter)

		input := uploadInput()
		input.Name = ""
		input.Priority = "whatever"

		_, err := svc.Create(context.Background(), orgID, userID, input, strings.NewReader("pdf"))
		require.Error(t, err)

		var validationErrs ValidationErrors
		require.ErrorAs(t, err, &validationErrs)
		assert.Contains(t, validationErrs, "name")
		assert.Contains(t, validationErrs, "priority")
		assert.Empty(t, storage.saved)
		assert.Empty(t, inserter.inserted)
	})
}

func TestCreateDefaults(t *testing.T) {
	storage := &fakeStorage{}
	inserter := &fakeInserter{}
	svc := newTestDocumentService(storage, inserter)

	input := uploadInput()
	input.Category = "unknown-category"
	input.Version = ""
	input.Tags = nil

	doc, err := svc.Create(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), input, strings.NewReader("pdf"))
	require.NoError(t, err)

	assert.Equal(t, "1.0", doc.Version)
	assert.Equal(t, "other", string(doc.Category))
	assert.Equal(t, "draft", string(doc.Status))
	assert.NotNil(t, doc.Tags)
	assert.Empty(t, doc.Tags)
}
