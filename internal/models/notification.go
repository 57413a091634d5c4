// internal/models/notification.go
package models

import (
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelPush  NotificationChannel = "push"
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
)

func (c NotificationChannel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelPush, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationInfo, NotificationWarning, NotificationSuccess, NotificationError:
		return true
	}
	return false
}

type NotificationPriority string

const (
	NotificationPriorityLow       NotificationPriority = "low"
	NotificationPriorityNormal    NotificationPriority = "normal"
	NotificationPriorityHigh      NotificationPriority = "high"
	NotificationPriorityEmergency NotificationPriority = "emergency"
)

func (p NotificationPriority) IsValid() bool {
	switch p {
	case NotificationPriorityLow, NotificationPriorityNormal,
		NotificationPriorityHigh, NotificationPriorityEmergency:
		return true
	}
	return false
}

type NotificationCategory string

const (
	CategoryGeneral     NotificationCategory = "general"
	CategorySafety      NotificationCategory = "safety"
	CategorySchedule    NotificationCategory = "schedule"
	CategoryMaintenance NotificationCategory = "maintenance"
	CategoryEmergency   NotificationCategory = "emergency"
)

func (c NotificationCategory) IsValid() bool {
	switch c {
	case CategoryGeneral, CategorySafety, CategorySchedule,
		CategoryMaintenance, CategoryEmergency:
		return true
	}
	return false
}

// RecipientKind перечисляет способы адресации сообщения
type RecipientKind string

const (
	RecipientSpecific RecipientKind = "specific"
	RecipientRole     RecipientKind = "role"
	RecipientEveryone RecipientKind = "all"
)

// RecipientTarget — tagged union: сообщение адресовано либо конкретному
// пользователю, либо роли, либо всем. Ровно один вариант.
type RecipientTarget struct {
	Kind   RecipientKind
	UserID primitive.ObjectID // только для RecipientSpecific
	Role   UserRole           // только для RecipientRole
}

func SpecificRecipient(userID primitive.ObjectID) RecipientTarget {
	return RecipientTarget{Kind: RecipientSpecific, UserID: userID}
}

func RoleRecipient(role UserRole) RecipientTarget {
	return RecipientTarget{Kind: RecipientRole, Role: role}
}

func EveryoneRecipient() RecipientTarget {
	return RecipientTarget{Kind: RecipientEveryone}
}

var (
	ErrInvalidRecipient = errors.New("invalid recipient selection")
)

// ResolveRecipient переводит выбор из формы в RecipientTarget.
// Fan-out по роли — read-time: одна строка на сообщение, совпадение
// определяется при чтении, строки на каждого получателя не создаются.
func ResolveRecipient(kind, userID, role string) (RecipientTarget, error) {
	switch RecipientKind(kind) {
	case RecipientSpecific:
		id, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return RecipientTarget{}, ErrInvalidRecipient
		}
		return SpecificRecipient(id), nil
	case RecipientRole:
		r, ok := RoleFromString(role)
		if !ok {
			return RecipientTarget{}, ErrInvalidRecipient
		}
		return RoleRecipient(r), nil
	case RecipientEveryone:
		return EveryoneRecipient(), nil
	}
	return RecipientTarget{}, ErrInvalidRecipient
}

// Persist возвращает пару (recipient_id, recipient_role) для записи в базу.
// Сентинель "all" появляется только здесь, на границе хранилища.
func (t RecipientTarget) Persist() (*primitive.ObjectID, *string) {
	switch t.Kind {
	case RecipientSpecific:
		id := t.UserID
		return &id, nil
	case RecipientRole:
		role := string(t.Role)
		return nil, &role
	default:
		all := RoleAll
		return nil, &all
	}
}

type Message struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrgID primitive.ObjectID `bson:"org_id" json:"org_id"`

	SenderID   primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	SenderName string             `bson:"sender_name" json:"sender_name"`
	SenderRole UserRole           `bson:"sender_role" json:"sender_role"`

	// Ровно одно из двух полей заполнено
	RecipientID   *primitive.ObjectID `bson:"recipient_id,omitempty" json:"recipient_id,omitempty"`
	RecipientRole *string             `bson:"recipient_role,omitempty" json:"recipient_role,omitempty"`

	Title    string               `bson:"title" json:"title"`
	Body     string               `bson:"body" json:"body"`
	Type     NotificationType     `bson:"type" json:"type"`
	Priority NotificationPriority `bson:"priority" json:"priority"`
	Category NotificationCategory `bson:"category" json:"category"`

	Channels []NotificationChannel `bson:"channels" json:"channels"`

	ScheduledFor *time.Time `bson:"scheduled_for,omitempty" json:"scheduled_for,omitempty"`
	SentAt       *time.Time `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	DeliveredAt  *time.Time `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	ReadAt       *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`

	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
}

type Template struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrgID primitive.ObjectID `bson:"org_id,omitempty" json:"org_id,omitempty"`

	Name     string               `bson:"name" json:"name"`
	Title    string               `bson:"title" json:"title"`
	Body     string               `bson:"body" json:"body"`
	Type     NotificationType     `bson:"type" json:"type"`
	Priority NotificationPriority `bson:"priority" json:"priority"`
	Category NotificationCategory `bson:"category" json:"category"`
	Tags     []string             `bson:"tags" json:"tags"`

	UsageCount int64     `bson:"usage_count" json:"usage_count"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// MessageDraft — содержимое сообщения до отправки
type MessageDraft struct {
	Title    string
	Body     string
	Type     NotificationType
	Priority NotificationPriority
	Category NotificationCategory
	Tags     []string
}

// ApplyTemplate копирует контентные поля шаблона в черновик. Шаблон не
// изменяется; повторное применение даёт тот же результат.
func ApplyTemplate(t *Template, draft *MessageDraft) {
	draft.Title = t.Title
	draft.Body = t.Body
	draft.Type = t.Type
	draft.Priority = t.Priority
	draft.Category = t.Category
	draft.Tags = append([]string(nil), t.Tags...)
}

// DeliveryRate — доля доставленных среди отправленных, в процентах,
// округлённая до целого. Нет отправленных — 0.
func DeliveryRate(messages []Message) int {
	sent := 0
	delivered := 0
	for i := range messages {
		if messages[i].SentAt == nil {
			continue
		}
		sent++
		if messages[i].DeliveredAt != nil {
			delivered++
		}
	}
	if sent == 0 {
		return 0
	}
	return int(math.Round(float64(delivered) / float64(sent) * 100))
}

// CountUnread считает полученные сообщения без read_at
func CountUnread(messages []Message) int {
	unread := 0
	for i := range messages {
		if messages[i].ReadAt == nil {
			unread++
		}
	}
	return unread
}

// MatchesRecipient отвечает "это сообщение для меня?" — read-time fan-out
func (m *Message) MatchesRecipient(userID primitive.ObjectID, role UserRole) bool {
	if m.RecipientID != nil {
		return *m.RecipientID == userID
	}
	if m.RecipientRole != nil {
		return *m.RecipientRole == RoleAll || *m.RecipientRole == string(role)
	}
	return false
}
