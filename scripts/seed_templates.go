package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"fleetops-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Засев каталога шаблонов уведомлений. Запускать один раз:
//
//	go run scripts/seed_templates.go
func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("DATABASE_NAME")
	if dbName == "" {
		dbName = "fleetops"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(ctx)

	collection := client.Database(dbName).Collection("notification_templates")

	now := time.Now()
	templates := []models.Template{
		{
			Name:     "document_expiring",
			Title:    "Document expiring soon",
			Body:     "One of your documents expires within 30 days. Please review and renew it.",
			Type:     models.NotificationWarning,
			Priority: models.NotificationPriorityHigh,
			Category: models.CategoryGeneral,
			Tags:     []string{"documents", "expiry"},
		},
		{
			Name:     "document_expired",
			Title:    "Document expired",
			Body:     "A document has passed its expiry date and is no longer valid.",
			Type:     models.NotificationError,
			Priority: models.NotificationPriorityHigh,
			Category: models.CategoryGeneral,
			Tags:     []string{"documents", "expiry"},
		},
		{
			Name:     "inspection_due",
			Title:    "Vehicle inspection due",
			Body:     "A vehicle in your fleet is due for its scheduled inspection.",
			Type:     models.NotificationInfo,
			Priority: models.NotificationPriorityNormal,
			Category: models.CategoryMaintenance,
			Tags:     []string{"compliance", "inspection"},
		},
		{
			Name:     "violation_follow_up",
			Title:    "Violation follow-up required",
			Body:     "A recorded violation requires a follow-up action before its due date.",
			Type:     models.NotificationWarning,
			Priority: models.NotificationPriorityHigh,
			Category: models.CategorySafety,
			Tags:     []string{"compliance", "violation"},
		},
		{
			Name:     "schedule_change",
			Title:    "Schedule updated",
			Body:     "Your schedule has changed. Check the dispatch board for details.",
			Type:     models.NotificationInfo,
			Priority: models.NotificationPriorityNormal,
			Category: models.CategorySchedule,
			Tags:     []string{"schedule"},
		},
		{
			Name:     "emergency_alert",
			Title:    "Emergency alert",
			Body:     "An emergency has been reported. Follow your safety procedures immediately.",
			Type:     models.NotificationError,
			Priority: models.NotificationPriorityEmergency,
			Category: models.CategoryEmergency,
			Tags:     []string{"emergency"},
		},
	}

	seeded := 0
	for _, t := range templates {
		t.CreatedAt = now
		t.UpdatedAt = now

		// Имя уникально: существующие шаблоны не перезаписываем,
		// usage_count при повторном запуске не сбрасывается
		result, err := collection.UpdateOne(
			ctx,
			bson.M{"name": t.Name},
			bson.M{"$setOnInsert": t},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			log.Fatal(err)
		}
		if result.UpsertedCount > 0 {
			seeded++
		}
	}

	fmt.Printf("Seeded %d of %d templates\n", seeded, len(templates))
}
