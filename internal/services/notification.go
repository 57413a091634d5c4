// internal/services/notification.go
package services

import (
	"context"
	"fmt"
	"time"

	"fleetops-backend/internal/config"
	"fleetops-backend/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/gomail.v2"
)

// InAppPusher доставляет сообщение подключенным websocket-клиентам.
// Возвращаемое число — сколько клиентов реально получили payload.
type InAppPusher interface {
	PushToUser(orgID, userID primitive.ObjectID, payload interface{}) int
	PushToRole(orgID primitive.ObjectID, role string, payload interface{}) int
	PushToOrg(orgID primitive.ObjectID, payload interface{}) int
}

// messageInserter покрывает единственный метод коллекции, нужный Send;
// в тестах подменяется без живой базы
type messageInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type NotificationService struct {
	config                 *config.Config
	notificationCollection *mongo.Collection
	inserter               messageInserter
	templateCollection     *mongo.Collection
	userCollection         *mongo.Collection
	deviceTokenCollection  *mongo.Collection
	httpClient             *resty.Client
	pusher                 InAppPusher
}

func NewNotificationService(
	cfg *config.Config,
	notificationCollection, templateCollection, userCollection, deviceTokenCollection *mongo.Collection,
	pusher InAppPusher,
) *NotificationService {
	return &NotificationService{
		config:                 cfg,
		notificationCollection: notificationCollection,
		inserter:               notificationCollection,
		templateCollection:     templateCollection,
		userCollection:         userCollection,
		deviceTokenCollection:  deviceTokenCollection,
		httpClient:             resty.New().SetTimeout(30 * time.Second),
		pusher:                 pusher,
	}
}

// SenderInfo — кто отправляет
type SenderInfo struct {
	ID   primitive.ObjectID
	Name string
	Role models.UserRole
}

// ComposeInput — форма создания сообщения
type ComposeInput struct {
	RecipientKind string `json:"recipient_kind"` // specific, role, all
	RecipientID   string `json:"recipient_id"`
	RecipientRole string `json:"recipient_role"`

	TemplateID string `json:"template_id"`

	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Type     string   `json:"type"`
	Priority string   `json:"priority"`
	Category string   `json:"category"`
	Channels []string `json:"channels"`

	ScheduledFor *time.Time             `json:"scheduled_for"`
	Metadata     map[string]interface{} `json:"metadata"`
}

func (s *NotificationService) validateCompose(input *ComposeInput) ValidationErrors {
	errs := ValidationErrors{}

	if input.Title == "" {
		errs["title"] = "title is required"
	}
	if input.Body == "" {
		errs["body"] = "body is required"
	}
	if !models.NotificationType(input.Type).IsValid() {
		errs["type"] = "invalid type"
	}
	if !models.NotificationPriority(input.Priority).IsValid() {
		errs["priority"] = "invalid priority"
	}
	if !models.NotificationCategory(input.Category).IsValid() {
		errs["category"] = "invalid category"
	}
	if len(input.Channels) == 0 {
		errs["channels"] = "at least one channel is required"
	}
	for _, ch := range input.Channels {
		if !models.NotificationChannel(ch).IsValid() {
			errs["channels"] = "invalid channel: " + ch
			break
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Send создает одну строку сообщения (fan-out по роли — read-time, строк на
// каждого получателя нет) и раскидывает её по каналам. Отложенные сообщения
// сохраняются сразу, каналы срабатывают по расписанию.
func (s *NotificationService) Send(ctx context.Context, orgID primitive.ObjectID, sender SenderInfo, input *ComposeInput) (*models.Message, error) {
	draft := models.MessageDraft{
		Title:    input.Title,
		Body:     input.Body,
		Type:     models.NotificationType(input.Type),
		Priority: models.NotificationPriority(input.Priority),
		Category: models.NotificationCategory(input.Category),
	}

	// Шаблон заполняет контентные поля; счётчик использований
	// инкрементируется best-effort
	if input.TemplateID != "" {
		template, err := s.getTemplate(ctx, input.TemplateID)
		if err != nil {
			return nil, err
		}
		models.ApplyTemplate(template, &draft)
		input.Title = draft.Title
		input.Body = draft.Body
		input.Type = string(draft.Type)
		input.Priority = string(draft.Priority)
		input.Category = string(draft.Category)

		if _, err := s.templateCollection.UpdateOne(ctx,
			bson.M{"_id": template.ID},
			bson.M{"$inc": bson.M{"usage_count": 1}},
		); err != nil {
			logrus.WithField("template_id", input.TemplateID).Warn("failed to increment template usage")
		}
	}

	if errs := s.validateCompose(input); errs != nil {
		return nil, errs
	}

	target, err := models.ResolveRecipient(input.RecipientKind, input.RecipientID, input.RecipientRole)
	if err != nil {
		return nil, ValidationErrors{"recipient": "exactly one of user, role or all must be selected"}
	}

	recipientID, recipientRole := target.Persist()

	channels := make([]models.NotificationChannel, 0, len(input.Channels))
	for _, ch := range input.Channels {
		channels = append(channels, models.NotificationChannel(ch))
	}

	message := &models.Message{
		OrgID:         orgID,
		SenderID:      sender.ID,
		SenderName:    sender.Name,
		SenderRole:    sender.Role,
		RecipientID:   recipientID,
		RecipientRole: recipientRole,
		Title:         draft.Title,
		Body:          draft.Body,
		Type:          draft.Type,
		Priority:      draft.Priority,
		Category:      draft.Category,
		Channels:      channels,
		ScheduledFor:  input.ScheduledFor,
		Metadata:      input.Metadata,
		CreatedAt:     time.Now(),
	}

	result, err := s.inserter.InsertOne(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}
	message.ID = result.InsertedID.(primitive.ObjectID)

	if message.ScheduledFor != nil && message.ScheduledFor.After(time.Now()) {
		// Диспетчеризацию сделает фоновый тикер, когда придёт время
		return message, nil
	}

	s.dispatch(ctx, message)
	return message, nil
}

// dispatch прогоняет сообщение по его каналам и проставляет sent_at
// (и delivered_at при живой in_app доставке). Ошибки каналов логируются,
// вставку они не откатывают.
func (s *NotificationService) dispatch(ctx context.Context, message *models.Message) {
	now := time.Now()
	update := bson.M{"sent_at": now}

	for _, channel := range message.Channels {
		switch channel {
		case models.ChannelInApp:
			if s.deliverInApp(message) > 0 {
				update["delivered_at"] = now
			}
		case models.ChannelPush:
			if err := s.deliverPush(ctx, message); err != nil {
				logrus.WithError(err).WithField("message_id", message.ID.Hex()).Warn("push delivery failed")
			}
		case models.ChannelEmail:
			if err := s.deliverEmail(ctx, message); err != nil {
				logrus.WithError(err).WithField("message_id", message.ID.Hex()).Warn("email delivery failed")
			}
		case models.ChannelSMS:
			if err := s.deliverSMS(ctx, message); err != nil {
				logrus.WithError(err).WithField("message_id", message.ID.Hex()).Warn("sms delivery failed")
			}
		}
	}

	if _, err := s.notificationCollection.UpdateOne(ctx,
		bson.M{"_id": message.ID},
		bson.M{"$set": update},
	); err != nil {
		logrus.WithError(err).WithField("message_id", message.ID.Hex()).Error("failed to stamp sent_at")
		return
	}

	message.SentAt = &now
	if _, ok := update["delivered_at"]; ok {
		message.DeliveredAt = &now
	}
}

func (s *NotificationService) deliverInApp(message *models.Message) int {
	if s.pusher == nil {
		return 0
	}

	payload := map[string]interface{}{
		"type": "notification",
		"data": message,
	}

	if message.RecipientID != nil {
		return s.pusher.PushToUser(message.OrgID, *message.RecipientID, payload)
	}
	if message.RecipientRole != nil && *message.RecipientRole != models.RoleAll {
		return s.pusher.PushToRole(message.OrgID, *message.RecipientRole, payload)
	}
	return s.pusher.PushToOrg(message.OrgID, payload)
}

// audience раскрывает адресата в конкретных пользователей для каналов,
// которым нужны адреса (push/email/sms). Сама строка сообщения при этом
// остаётся одна.
func (s *NotificationService) audience(ctx context.Context, message *models.Message) ([]models.User, error) {
	filter := bson.M{
		"org_id":     message.OrgID,
		"is_blocked": false,
	}

	if message.RecipientID != nil {
		filter["_id"] = *message.RecipientID
	} else if message.RecipientRole != nil && *message.RecipientRole != models.RoleAll {
		filter["role"] = *message.RecipientRole
	}

	cursor, err := s.userCollection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

type pushPayload struct {
	Tokens   []string               `json:"registration_ids"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Priority string                 `json:"priority"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

func (s *NotificationService) deliverPush(ctx context.Context, message *models.Message) error {
	if s.config.PushGatewayURL == "" {
		return fmt.Errorf("push gateway is not configured")
	}

	users, err := s.audience(ctx, message)
	if err != nil {
		return err
	}

	userIDs := make([]primitive.ObjectID, 0, len(users))
	for i := range users {
		userIDs = append(userIDs, users[i].ID)
	}
	if len(userIDs) == 0 {
		return nil
	}

	cursor, err := s.deviceTokenCollection.Find(ctx, bson.M{
		"user_id":   bson.M{"$in": userIDs},
		"is_active": true,
	})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var tokens []string
	for cursor.Next(ctx) {
		var deviceToken models.DeviceToken
		if err := cursor.Decode(&deviceToken); err != nil {
			continue
		}
		tokens = append(tokens, deviceToken.Token)
	}
	if len(tokens) == 0 {
		return nil
	}

	// Батчи по 1000 токенов — лимит шлюза
	const batchSize = 1000
	for i := 0; i < len(tokens); i += batchSize {
		end := i + batchSize
		if end > len(tokens) {
			end = len(tokens)
		}

		resp, err := s.httpClient.R().
			SetContext(ctx).
			SetHeader("Authorization", "key="+s.config.PushGatewayKey).
			SetBody(pushPayload{
				Tokens:   tokens[i:end],
				Title:    message.Title,
				Body:     message.Body,
				Priority: string(message.Priority),
				Data:     message.Metadata,
			}).
			Post(s.config.PushGatewayURL)
		if err != nil {
			return fmt.Errorf("push gateway request failed: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("push gateway returned status %d", resp.StatusCode())
		}
	}

	return nil
}

func (s *NotificationService) deliverEmail(ctx context.Context, message *models.Message) error {
	if s.config.SMTPHost == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	users, err := s.audience(ctx, message)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	dialer := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	sendCloser, err := dialer.Dial()
	if err != nil {
		return fmt.Errorf("failed to dial SMTP: %w", err)
	}
	defer sendCloser.Close()

	for i := range users {
		m := gomail.NewMessage()
		m.SetHeader("From", s.config.SMTPFrom)
		m.SetHeader("To", users[i].Email)
		m.SetHeader("Subject", message.Title)
		m.SetBody("text/plain", message.Body)

		if err := gomail.Send(sendCloser, m); err != nil {
			logrus.WithError(err).WithField("email", users[i].Email).Warn("failed to send email")
		}
	}

	return nil
}

func (s *NotificationService) deliverSMS(ctx context.Context, message *models.Message) error {
	if s.config.SMSProviderURL == "" {
		return fmt.Errorf("SMS provider is not configured")
	}

	users, err := s.audience(ctx, message)
	if err != nil {
		return err
	}

	for i := range users {
		if users[i].Phone == "" {
			continue
		}

		resp, err := s.httpClient.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+s.config.SMSKey).
			SetBody(map[string]string{
				"from": s.config.SMSSender,
				"to":   users[i].Phone,
				"text": message.Title + ": " + message.Body,
			}).
			Post(s.config.SMSProviderURL)
		if err != nil {
			return fmt.Errorf("sms provider request failed: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("sms provider returned status %d", resp.StatusCode())
		}
	}

	return nil
}

// recipientFilter — read-time fan-out: сообщение моё, если оно адресовано
// мне, моей роли или всем
func recipientFilter(orgID, userID primitive.ObjectID, role models.UserRole) bson.M {
	return bson.M{
		"org_id": orgID,
		"$or": []bson.M{
			{"recipient_id": userID},
			{"recipient_role": string(role)},
			{"recipient_role": models.RoleAll},
		},
	}
}

// ListForUser возвращает сообщения пользователя, новые сначала
func (s *NotificationService) ListForUser(ctx context.Context, orgID, userID primitive.ObjectID, role models.UserRole, unreadOnly bool, limit, skip int64) ([]models.Message, int64, error) {
	filter := recipientFilter(orgID, userID, role)
	if unreadOnly {
		filter["read_at"] = nil
	}

	total, err := s.notificationCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip(skip).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.notificationCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// UnreadCount считает непрочитанные сообщения пользователя
func (s *NotificationService) UnreadCount(ctx context.Context, orgID, userID primitive.ObjectID, role models.UserRole) (int64, error) {
	filter := recipientFilter(orgID, userID, role)
	filter["read_at"] = nil
	return s.notificationCollection.CountDocuments(ctx, filter)
}

// MarkRead проставляет read_at, только если сообщение адресовано пользователю
func (s *NotificationService) MarkRead(ctx context.Context, orgID, userID primitive.ObjectID, role models.UserRole, messageID primitive.ObjectID) error {
	filter := recipientFilter(orgID, userID, role)
	filter["_id"] = messageID

	result, err := s.notificationCollection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"read_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReadBulk помечает прочитанными все перечисленные сообщения и
// возвращает id, которые пометить не удалось — частичный успех не молчит
func (s *NotificationService) MarkReadBulk(ctx context.Context, orgID, userID primitive.ObjectID, role models.UserRole, ids []primitive.ObjectID) (failed []string) {
	for _, id := range ids {
		if err := s.MarkRead(ctx, orgID, userID, role, id); err != nil {
			failed = append(failed, id.Hex())
		}
	}
	return failed
}

// MarkAllRead помечает прочитанными все непрочитанные сообщения пользователя
func (s *NotificationService) MarkAllRead(ctx context.Context, orgID, userID primitive.ObjectID, role models.UserRole) (int64, error) {
	filter := recipientFilter(orgID, userID, role)
	filter["read_at"] = nil

	result, err := s.notificationCollection.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"read_at": time.Now()},
	})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// DeleteBulk жестко удаляет перечисленные сообщения пользователя
func (s *NotificationService) DeleteBulk(ctx context.Context, orgID, userID primitive.ObjectID, role models.UserRole, ids []primitive.ObjectID) (int64, error) {
	filter := recipientFilter(orgID, userID, role)
	filter["_id"] = bson.M{"$in": ids}

	result, err := s.notificationCollection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *NotificationService) getTemplate(ctx context.Context, templateID string) (*models.Template, error) {
	id, err := primitive.ObjectIDFromHex(templateID)
	if err != nil {
		return nil, ValidationErrors{"template_id": "invalid template id"}
	}

	var template models.Template
	err = s.templateCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&template)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// ListTemplates возвращает каталог шаблонов
func (s *NotificationService) ListTemplates(ctx context.Context) ([]models.Template, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := s.templateCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []models.Template
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// RunScheduler отправляет отложенные сообщения, когда приходит их время.
// Останавливается по отмене контекста.
func (s *NotificationService) RunScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

func (s *NotificationService) dispatchDue(ctx context.Context) {
	cursor, err := s.notificationCollection.Find(ctx, bson.M{
		"sent_at":       nil,
		"scheduled_for": bson.M{"$ne": nil, "$lte": time.Now()},
	})
	if err != nil {
		logrus.WithError(err).Error("failed to query scheduled notifications")
		return
	}
	defer cursor.Close(ctx)

	var due []models.Message
	if err := cursor.All(ctx, &due); err != nil {
		logrus.WithError(err).Error("failed to decode scheduled notifications")
		return
	}

	for i := range due {
		s.dispatch(ctx, &due[i])
	}

	if len(due) > 0 {
		logrus.WithField("count", len(due)).Info("dispatched scheduled notifications")
	}
}
