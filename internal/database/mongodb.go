// internal/database/mongodb.go
package database

import (
	"context"
	"fmt"
	"time"

	"fleetops-backend/internal/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Config) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeout)*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.DatabaseName)

	logrus.WithField("database", cfg.DatabaseName).Info("connected to MongoDB")

	return &MongoDB{
		Client:   client,
		Database: database,
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	logrus.Info("disconnected from MongoDB")
	return nil
}

// CreateIndexes создает индексы для всех коллекций
// ВАЖНО: используем bson.D вместо map для сохранения порядка ключей
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	userCollection := m.Database.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "role", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	if _, err := userCollection.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	documentCollection := m.Database.Collection("documents")
	documentIndexes := []mongo.IndexModel{
		{
			// Составной индекс для фильтрации по категории и статусу
			Keys: bson.D{
				{Key: "org_id", Value: 1},
				{Key: "category", Value: 1},
				{Key: "status", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			// Индекс для выборок по сроку действия
			Keys: bson.D{{Key: "expiry_date", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "uploaded_by", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "tags", Value: 1}},
		},
	}

	if _, err := documentCollection.Indexes().CreateMany(ctx, documentIndexes); err != nil {
		return fmt.Errorf("failed to create document indexes: %w", err)
	}

	inspectionCollection := m.Database.Collection("compliance_inspections")
	inspectionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "org_id", Value: 1},
				{Key: "vehicle_id", Value: 1},
				{Key: "compliance_date", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "inspector_id", Value: 1}},
		},
	}

	if _, err := inspectionCollection.Indexes().CreateMany(ctx, inspectionIndexes); err != nil {
		return fmt.Errorf("failed to create inspection indexes: %w", err)
	}

	violationCollection := m.Database.Collection("compliance_violations")
	violationIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "org_id", Value: 1},
				{Key: "vehicle_id", Value: 1},
				{Key: "compliance_date", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "case_number", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "follow_up_required", Value: 1}},
		},
	}

	if _, err := violationCollection.Indexes().CreateMany(ctx, violationIndexes); err != nil {
		return fmt.Errorf("failed to create violation indexes: %w", err)
	}

	notificationCollection := m.Database.Collection("notifications")
	notificationIndexes := []mongo.IndexModel{
		{
			// Read-time fan-out: выборка по конкретному получателю
			Keys: bson.D{
				{Key: "org_id", Value: 1},
				{Key: "recipient_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			// Read-time fan-out: выборка по роли
			Keys: bson.D{
				{Key: "org_id", Value: 1},
				{Key: "recipient_role", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "read_at", Value: 1}},
		},
		{
			// Для фоновой отправки отложенных сообщений
			Keys: bson.D{{Key: "scheduled_for", Value: 1}, {Key: "sent_at", Value: 1}},
		},
	}

	if _, err := notificationCollection.Indexes().CreateMany(ctx, notificationIndexes); err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}

	templateCollection := m.Database.Collection("notification_templates")
	templateIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := templateCollection.Indexes().CreateMany(ctx, templateIndexes); err != nil {
		return fmt.Errorf("failed to create template indexes: %w", err)
	}

	deviceTokenCollection := m.Database.Collection("device_tokens")
	deviceTokenIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := deviceTokenCollection.Indexes().CreateMany(ctx, deviceTokenIndexes); err != nil {
		return fmt.Errorf("failed to create device token indexes: %w", err)
	}

	logrus.Info("indexes created for all collections")
	return nil
}
