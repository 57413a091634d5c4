// internal/services/compliance.go
package services

import (
	"context"
	"strconv"
	"time"

	"fleetops-backend/internal/models"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NoDriverSentinel — значение из формы "водитель не выбран". В базу оно
// никогда не попадает: normalizeDriver переводит его в настоящий nil.
const NoDriverSentinel = "no_driver"

type ComplianceService struct {
	inspectionCollection *mongo.Collection
	violationCollection  *mongo.Collection
}

func NewComplianceService(inspectionCollection, violationCollection *mongo.Collection) *ComplianceService {
	return &ComplianceService{
		inspectionCollection: inspectionCollection,
		violationCollection:  violationCollection,
	}
}

// EntryInput — плоская форма создания compliance-записи. Числовые поля
// приходят строками и проходят принудительную коэрцию: NaN в базу не
// просачивается.
type EntryInput struct {
	ComplianceType string `json:"compliance_type"`
	VehicleID      string `json:"vehicle_id"`
	DriverID       string `json:"driver_id"`
	ComplianceDate string `json:"compliance_date"` // RFC 3339 или YYYY-MM-DD
	NextReviewDate string `json:"next_review_date"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Severity    string `json:"severity"`

	RegulatoryBody      string `json:"regulatory_body"`
	RegulatoryReference string `json:"regulatory_reference"`

	// Поля инспекции
	InspectionType     string   `json:"inspection_type"`
	ComplianceScore    string   `json:"compliance_score"`
	DefectsFound       []string `json:"defects_found"`
	Location           string   `json:"location"`
	Weather            string   `json:"weather"`
	VehicleMileage     string   `json:"vehicle_mileage"`
	FuelLevel          string   `json:"fuel_level"`
	OilCondition       string   `json:"oil_condition"`
	TireCondition      string   `json:"tire_condition"`
	BrakeCondition     string   `json:"brake_condition"`
	LightsCondition    string   `json:"lights_condition"`
	EmergencyEquipment []string `json:"emergency_equipment"`

	// Поля нарушения
	ViolationType       string   `json:"violation_type"`
	PenaltyAmount       string   `json:"penalty_amount"`
	PenaltyCurrency     string   `json:"penalty_currency"`
	CaseNumber          string   `json:"case_number"`
	Witnesses           []string `json:"witnesses"`
	EvidenceFiles       []string `json:"evidence_files"`
	CorrectiveActions   []string `json:"corrective_actions"`
	FollowUpRequired    bool     `json:"follow_up_required"`
	FollowUpDate        string   `json:"follow_up_date"`
	RiskAssessmentScore string   `json:"risk_assessment_score"`
	OperationalImpact   string   `json:"operational_impact"`
	LessonsLearned      string   `json:"lessons_learned"`
}

// Validate проверяет обязательные поля до любого обращения к базе
func (s *ComplianceService) Validate(input *EntryInput) ValidationErrors {
	errs := ValidationErrors{}

	if !models.ComplianceType(input.ComplianceType).IsValid() {
		errs["compliance_type"] = "must be one of the supported compliance types"
	}
	if input.VehicleID == "" {
		errs["vehicle_id"] = "vehicle is required"
	} else if _, err := primitive.ObjectIDFromHex(input.VehicleID); err != nil {
		errs["vehicle_id"] = "invalid vehicle id"
	}
	if input.ComplianceDate == "" {
		errs["compliance_date"] = "compliance date is required"
	} else if _, err := parseDate(input.ComplianceDate); err != nil {
		errs["compliance_date"] = "invalid date format"
	}
	if input.Title == "" {
		errs["title"] = "title is required"
	}
	if input.Description == "" {
		errs["description"] = "description is required"
	}
	if !models.ComplianceStatus(input.Status).IsValid() {
		errs["status"] = "invalid status"
	}
	if !models.PriorityLevel(input.Priority).IsValid() {
		errs["priority"] = "invalid priority"
	}
	if input.Severity != "" && !models.PriorityLevel(input.Severity).IsValid() {
		errs["severity"] = "invalid severity"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// CreateEntry валидирует и маршрутизирует запись в коллекцию её типа.
// Типы без пути сохранения дают ErrUnsupportedComplianceType — видимый
// отказ вместо молчаливого no-op.
func (s *ComplianceService) CreateEntry(ctx context.Context, orgID, userID primitive.ObjectID, input *EntryInput) (interface{}, error) {
	if errs := s.Validate(input); errs != nil {
		return nil, errs
	}

	switch models.ComplianceType(input.ComplianceType) {
	case models.ComplianceTypeVehicleInspection:
		record, err := BuildInspection(orgID, userID, input, time.Now())
		if err != nil {
			return nil, err
		}
		result, err := s.inspectionCollection.InsertOne(ctx, record)
		if err != nil {
			return nil, err
		}
		record.ID = result.InsertedID.(primitive.ObjectID)
		return record, nil

	case models.ComplianceTypeViolation:
		record, err := BuildViolation(orgID, userID, input, time.Now())
		if err != nil {
			return nil, err
		}
		result, err := s.violationCollection.InsertOne(ctx, record)
		if err != nil {
			return nil, err
		}
		record.ID = result.InsertedID.(primitive.ObjectID)
		return record, nil

	case models.ComplianceTypeRegulatoryCheck,
		models.ComplianceTypeDocumentCompliance,
		models.ComplianceTypeSafetyAudit:
		logrus.WithField("compliance_type", input.ComplianceType).
			Warn("compliance type submitted without a persistence path")
		return nil, ErrUnsupportedComplianceType
	}

	return nil, ErrUnsupportedComplianceType
}

// buildCore собирает общую часть записи
func buildCore(orgID, userID primitive.ObjectID, input *EntryInput, now time.Time) (models.ComplianceCore, error) {
	vehicleID, err := primitive.ObjectIDFromHex(input.VehicleID)
	if err != nil {
		return models.ComplianceCore{}, ValidationErrors{"vehicle_id": "invalid vehicle id"}
	}

	complianceDate, err := parseDate(input.ComplianceDate)
	if err != nil {
		return models.ComplianceCore{}, ValidationErrors{"compliance_date": "invalid date format"}
	}

	core := models.ComplianceCore{
		OrgID:               orgID,
		VehicleID:           vehicleID,
		DriverID:            normalizeDriver(input.DriverID),
		Title:               input.Title,
		Description:         input.Description,
		Status:              models.ComplianceStatus(input.Status),
		Priority:            models.PriorityLevel(input.Priority),
		ComplianceDate:      complianceDate,
		RegulatoryBody:      input.RegulatoryBody,
		RegulatoryReference: input.RegulatoryReference,
		CreatedBy:           userID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if input.Severity != "" {
		severity := models.PriorityLevel(input.Severity)
		core.Severity = &severity
	}
	if input.NextReviewDate != "" {
		if next, err := parseDate(input.NextReviewDate); err == nil {
			core.NextReviewDate = &next
		}
	}

	return core, nil
}

// BuildInspection строит запись инспекции из формы. Оценка по умолчанию 100,
// инспектор — текущий пользователь, списки — пустые, не nil.
func BuildInspection(orgID, userID primitive.ObjectID, input *EntryInput, now time.Time) (*models.InspectionRecord, error) {
	core, err := buildCore(orgID, userID, input, now)
	if err != nil {
		return nil, err
	}

	inspectionType := models.InspectionType(input.InspectionType)
	if !inspectionType.IsValid() {
		inspectionType = models.InspectionCompliance
	}

	return &models.InspectionRecord{
		ComplianceCore:     core,
		InspectorID:        userID,
		InspectionType:     inspectionType,
		ComplianceScore:    coerceScore(input.ComplianceScore),
		DefectsFound:       orEmpty(input.DefectsFound),
		Location:           input.Location,
		Weather:            input.Weather,
		VehicleMileage:     coerceNonNegative(input.VehicleMileage),
		FuelLevel:          input.FuelLevel,
		OilCondition:       input.OilCondition,
		TireCondition:      input.TireCondition,
		BrakeCondition:     input.BrakeCondition,
		LightsCondition:    input.LightsCondition,
		EmergencyEquipment: orEmpty(input.EmergencyEquipment),
	}, nil
}

// BuildViolation строит запись нарушения. Валюта по умолчанию GBP,
// списки — пустые, не nil.
func BuildViolation(orgID, userID primitive.ObjectID, input *EntryInput, now time.Time) (*models.ViolationRecord, error) {
	core, err := buildCore(orgID, userID, input, now)
	if err != nil {
		return nil, err
	}

	currency := input.PenaltyCurrency
	if currency == "" {
		currency = models.DefaultPenaltyCurrency
	}

	violationType := models.ViolationType(input.ViolationType)
	if !violationType.IsValid() {
		violationType = models.ViolationOther
	}

	record := &models.ViolationRecord{
		ComplianceCore:      core,
		ViolationType:       violationType,
		PenaltyAmount:       coerceNonNegative(input.PenaltyAmount),
		PenaltyCurrency:     currency,
		CaseNumber:          input.CaseNumber,
		Location:            input.Location,
		Witnesses:           orEmpty(input.Witnesses),
		EvidenceFiles:       orEmpty(input.EvidenceFiles),
		CorrectiveActions:   orEmpty(input.CorrectiveActions),
		FollowUpRequired:    input.FollowUpRequired,
		RiskAssessmentScore: coerceRiskScore(input.RiskAssessmentScore),
		OperationalImpact:   input.OperationalImpact,
		LessonsLearned:      input.LessonsLearned,
	}

	if input.FollowUpDate != "" {
		if followUp, err := parseDate(input.FollowUpDate); err == nil {
			record.FollowUpDate = &followUp
		}
	}

	return record, nil
}

// normalizeDriver — единственная точка перевода сентинеля "no_driver"
// (и пустой строки) в настоящий nil
func normalizeDriver(raw string) *primitive.ObjectID {
	if raw == "" || raw == NoDriverSentinel {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil
	}
	return &id
}

// coerceScore парсит оценку 0..100; пусто или мусор — дефолт 100
func coerceScore(raw string) float64 {
	if raw == "" {
		return models.DefaultComplianceScore
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.DefaultComplianceScore
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// coerceNonNegative парсит неотрицательное число; пусто или мусор — 0
func coerceNonNegative(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// coerceRiskScore парсит оценку риска 1..10; пусто или мусор — 1
func coerceRiskScore(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// ListInspections возвращает инспекции организации, новые сначала
func (s *ComplianceService) ListInspections(ctx context.Context, orgID primitive.ObjectID, vehicleID string, limit, skip int64) ([]models.InspectionRecord, error) {
	filter := bson.M{"org_id": orgID}
	if vehicleID != "" {
		if id, err := primitive.ObjectIDFromHex(vehicleID); err == nil {
			filter["vehicle_id"] = id
		}
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip(skip).
		SetSort(bson.D{{Key: "compliance_date", Value: -1}})

	cursor, err := s.inspectionCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.InspectionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListViolations возвращает нарушения организации, новые сначала
func (s *ComplianceService) ListViolations(ctx context.Context, orgID primitive.ObjectID, vehicleID string, limit, skip int64) ([]models.ViolationRecord, error) {
	filter := bson.M{"org_id": orgID}
	if vehicleID != "" {
		if id, err := primitive.ObjectIDFromHex(vehicleID); err == nil {
			filter["vehicle_id"] = id
		}
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip(skip).
		SetSort(bson.D{{Key: "compliance_date", Value: -1}})

	cursor, err := s.violationCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.ViolationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

type ComplianceStats struct {
	InspectionCount int     `json:"inspection_count"`
	ViolationCount  int     `json:"violation_count"`
	MeanScore       float64 `json:"mean_score"`
	MedianScore     float64 `json:"median_score"`
	MeanRiskScore   float64 `json:"mean_risk_score"`
	OpenFollowUps   int     `json:"open_follow_ups"`
}

// Stats агрегирует показатели организации по обеим коллекциям
func (s *ComplianceService) Stats(ctx context.Context, orgID primitive.ObjectID) (*ComplianceStats, error) {
	inspections, err := s.ListInspections(ctx, orgID, "", 0, 0)
	if err != nil {
		return nil, err
	}
	violations, err := s.ListViolations(ctx, orgID, "", 0, 0)
	if err != nil {
		return nil, err
	}

	result := &ComplianceStats{
		InspectionCount: len(inspections),
		ViolationCount:  len(violations),
	}

	if len(inspections) > 0 {
		scores := make([]float64, 0, len(inspections))
		for i := range inspections {
			scores = append(scores, inspections[i].ComplianceScore)
		}
		result.MeanScore, _ = stats.Mean(scores)
		result.MedianScore, _ = stats.Median(scores)
	}

	if len(violations) > 0 {
		risks := make([]float64, 0, len(violations))
		for i := range violations {
			risks = append(risks, violations[i].RiskAssessmentScore)
			if violations[i].FollowUpRequired && violations[i].Status != models.ComplianceStatusResolved {
				result.OpenFollowUps++
			}
		}
		result.MeanRiskScore, _ = stats.Mean(risks)
	}

	return result, nil
}
