package services

import (
	"context"
	"testing"
	"time"

	"fleetops-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecipientFilter(t *testing.T) {
	orgID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	filter := recipientFilter(orgID, userID, models.RoleDriver)

	assert.Equal(t, orgID, filter["org_id"])

	or, ok := filter["$or"].([]bson.M)
	require.True(t, ok)
	require.Len(t, or, 3)

	// Сообщение моё, если адресовано мне, моей роли или всем
	assert.Equal(t, userID, or[0]["recipient_id"])
	assert.Equal(t, "driver", or[1]["recipient_role"])
	assert.Equal(t, models.RoleAll, or[2]["recipient_role"])
}

func TestValidateCompose(t *testing.T) {
	svc := &NotificationService{}

	valid := &ComposeInput{
		Title:    "Shift change",
		Body:     "Evening shift starts at 18:00",
		Type:     "info",
		Priority: "normal",
		Category: "schedule",
		Channels: []string{"in_app", "email"},
	}
	assert.Nil(t, svc.validateCompose(valid))

	t.Run("missing everything", func(t *testing.T) {
		errs := svc.validateCompose(&ComposeInput{})
		require.NotNil(t, errs)
		assert.Contains(t, errs, "title")
		assert.Contains(t, errs, "body")
		assert.Contains(t, errs, "type")
		assert.Contains(t, errs, "priority")
		assert.Contains(t, errs, "category")
		assert.Contains(t, errs, "channels")
	})

	t.Run("unknown channel", func(t *testing.T) {
		input := *valid
		input.Channels = []string{"in_app", "pigeon"}
		errs := svc.validateCompose(&input)
		require.NotNil(t, errs)
		assert.Contains(t, errs, "channels")
	})
}

func composeInput() *ComposeInput {
	return &ComposeInput{
		Title:    "Depot closure",
		Body:     "The north depot is closed tomorrow",
		Type:     "warning",
		Priority: "high",
		Category: "general",
		Channels: []string{"in_app", "email"},
	}
}

func TestSendPersistedShape(t *testing.T) {
	orgID := primitive.NewObjectID()
	sender := SenderInfo{
		ID:   primitive.NewObjectID(),
		Name: "Dana Holt",
		Role: models.RoleDispatcher,
	}

	// Отложенная отправка: строка пишется сразу, каналы не трогаются,
	// так что проверяется ровно то, что ушло в базу
	scheduled := time.Now().Add(time.Hour)

	t.Run("all recipient keeps channels verbatim and the all sentinel", func(t *testing.T) {
		inserter := &fakeInserter{}
		svc := &NotificationService{inserter: inserter}

		input := composeInput()
		input.RecipientKind = "all"
		input.ScheduledFor = &scheduled

		_, err := svc.Send(context.Background(), orgID, sender, input)
		require.NoError(t, err)
		require.Len(t, inserter.inserted, 1)

		message, ok := inserter.inserted[0].(*models.Message)
		require.True(t, ok)

		assert.Equal(t, []models.NotificationChannel{models.ChannelInApp, models.ChannelEmail}, message.Channels)
		assert.Nil(t, message.RecipientID)
		require.NotNil(t, message.RecipientRole)
		assert.Equal(t, models.RoleAll, *message.RecipientRole)
		assert.Equal(t, orgID, message.OrgID)
		assert.Equal(t, sender.ID, message.SenderID)
		assert.Nil(t, message.SentAt)
	})

	t.Run("specific recipient fills exactly recipient_id", func(t *testing.T) {
		inserter := &fakeInserter{}
		svc := &NotificationService{inserter: inserter}

		recipient := primitive.NewObjectID()
		input := composeInput()
		input.RecipientKind = "specific"
		input.RecipientID = recipient.Hex()
		input.ScheduledFor = &scheduled

		_, err := svc.Send(context.Background(), orgID, sender, input)
		require.NoError(t, err)
		require.Len(t, inserter.inserted, 1)

		message := inserter.inserted[0].(*models.Message)
		require.NotNil(t, message.RecipientID)
		assert.Equal(t, recipient, *message.RecipientID)
		assert.Nil(t, message.RecipientRole)
	})

	t.Run("role recipient fills exactly recipient_role", func(t *testing.T) {
		inserter := &fakeInserter{}
		svc := &NotificationService{inserter: inserter}

		input := composeInput()
		input.RecipientKind = "role"
		input.RecipientRole = "driver"
		input.ScheduledFor = &scheduled

		_, err := svc.Send(context.Background(), orgID, sender, input)
		require.NoError(t, err)

		message := inserter.inserted[0].(*models.Message)
		assert.Nil(t, message.RecipientID)
		require.NotNil(t, message.RecipientRole)
		assert.Equal(t, "driver", *message.RecipientRole)
	})

	t.Run("invalid recipient selection is rejected before insert", func(t *testing.T) {
		inserter := &fakeInserter{}
		svc := &NotificationService{inserter: inserter}

		input := composeInput()
		input.RecipientKind = "role"
		input.RecipientRole = "astronaut"
		input.ScheduledFor = &scheduled

		_, err := svc.Send(context.Background(), orgID, sender, input)
		require.Error(t, err)
		assert.Empty(t, inserter.inserted)
	})
}
