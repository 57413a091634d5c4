package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolveRecipient(t *testing.T) {
	userID := primitive.NewObjectID()

	t.Run("specific", func(t *testing.T) {
		target, err := ResolveRecipient("specific", userID.Hex(), "")
		require.NoError(t, err)
		assert.Equal(t, RecipientSpecific, target.Kind)
		assert.Equal(t, userID, target.UserID)

		id, role := target.Persist()
		require.NotNil(t, id)
		assert.Equal(t, userID, *id)
		assert.Nil(t, role)
	})

	t.Run("role", func(t *testing.T) {
		target, err := ResolveRecipient("role", "", "driver")
		require.NoError(t, err)
		assert.Equal(t, RecipientRole, target.Kind)

		id, role := target.Persist()
		assert.Nil(t, id)
		require.NotNil(t, role)
		assert.Equal(t, "driver", *role)
	})

	t.Run("everyone persists the all sentinel", func(t *testing.T) {
		target, err := ResolveRecipient("all", "", "")
		require.NoError(t, err)

		id, role := target.Persist()
		assert.Nil(t, id)
		require.NotNil(t, role)
		assert.Equal(t, RoleAll, *role)
	})

	t.Run("invalid selections", func(t *testing.T) {
		_, err := ResolveRecipient("specific", "not-an-id", "")
		assert.ErrorIs(t, err, ErrInvalidRecipient)

		_, err = ResolveRecipient("role", "", "astronaut")
		assert.ErrorIs(t, err, ErrInvalidRecipient)

		// Сентинель "all" — не роль реального пользователя
		_, err = ResolveRecipient("role", "", RoleAll)
		assert.ErrorIs(t, err, ErrInvalidRecipient)

		_, err = ResolveRecipient("", "", "")
		assert.ErrorIs(t, err, ErrInvalidRecipient)
	})
}

func TestApplyTemplate(t *testing.T) {
	template := &Template{
		Title:    "Inspection due",
		Body:     "Vehicle inspection is due",
		Type:     NotificationWarning,
		Priority: NotificationPriorityHigh,
		Category: CategoryMaintenance,
		Tags:     []string{"compliance", "inspection"},
	}

	var draft MessageDraft
	ApplyTemplate(template, &draft)

	assert.Equal(t, template.Title, draft.Title)
	assert.Equal(t, template.Body, draft.Body)
	assert.Equal(t, template.Type, draft.Type)
	assert.Equal(t, template.Priority, draft.Priority)
	assert.Equal(t, template.Category, draft.Category)
	assert.Equal(t, template.Tags, draft.Tags)

	// Черновик держит копию тегов, шаблон не мутируется
	draft.Tags[0] = "changed"
	assert.Equal(t, "compliance", template.Tags[0])

	// Повторное применение дает тот же результат
	var second MessageDraft
	ApplyTemplate(template, &second)
	assert.Equal(t, "compliance", second.Tags[0])
	assert.Equal(t, template.Title, second.Title)
}

func TestMatchesRecipient(t *testing.T) {
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()
	driverRole := "driver"
	allRole := RoleAll

	tests := []struct {
		name    string
		message Message
		want    bool
	}{
		{"addressed to me", Message{RecipientID: &me}, true},
		{"addressed to someone else", Message{RecipientID: &other}, false},
		{"addressed to my role", Message{RecipientRole: &driverRole}, true},
		{"addressed to everyone", Message{RecipientRole: &allRole}, true},
		{"no recipient at all", Message{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.message.MatchesRecipient(me, RoleDriver))
		})
	}
}

func TestDeliveryRate(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 0, DeliveryRate(nil))
	assert.Equal(t, 0, DeliveryRate([]Message{{}}))

	messages := []Message{
		{SentAt: &now, DeliveredAt: &now},
		{SentAt: &now, DeliveredAt: &now},
		{SentAt: &now},
		{}, // не отправлено, в знаменатель не входит
	}
	assert.Equal(t, 67, DeliveryRate(messages))

	all := []Message{{SentAt: &now, DeliveredAt: &now}}
	assert.Equal(t, 100, DeliveryRate(all))
}

func TestCountUnread(t *testing.T) {
	now := time.Now()
	messages := []Message{
		{ReadAt: &now},
		{},
		{},
	}
	assert.Equal(t, 2, CountUnread(messages))
}
