// internal/models/compliance.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ComplianceType string

const (
	ComplianceTypeVehicleInspection  ComplianceType = "vehicle_inspection"
	ComplianceTypeViolation          ComplianceType = "compliance_violation"
	ComplianceTypeRegulatoryCheck    ComplianceType = "regulatory_check"
	ComplianceTypeDocumentCompliance ComplianceType = "document_compliance"
	ComplianceTypeSafetyAudit        ComplianceType = "safety_audit"
)

func (t ComplianceType) IsValid() bool {
	switch t {
	case ComplianceTypeVehicleInspection, ComplianceTypeViolation,
		ComplianceTypeRegulatoryCheck, ComplianceTypeDocumentCompliance,
		ComplianceTypeSafetyAudit:
		return true
	}
	return false
}

type ComplianceStatus string

const (
	ComplianceStatusPending      ComplianceStatus = "pending"
	ComplianceStatusInProgress   ComplianceStatus = "in_progress"
	ComplianceStatusCompliant    ComplianceStatus = "compliant"
	ComplianceStatusNonCompliant ComplianceStatus = "non_compliant"
	ComplianceStatusConditional  ComplianceStatus = "conditional"
	ComplianceStatusResolved     ComplianceStatus = "resolved"
)

func (s ComplianceStatus) IsValid() bool {
	switch s {
	case ComplianceStatusPending, ComplianceStatusInProgress,
		ComplianceStatusCompliant, ComplianceStatusNonCompliant,
		ComplianceStatusConditional, ComplianceStatusResolved:
		return true
	}
	return false
}

type InspectionType string

const (
	InspectionDaily      InspectionType = "daily"
	InspectionWeekly     InspectionType = "weekly"
	InspectionMonthly    InspectionType = "monthly"
	InspectionQuarterly  InspectionType = "quarterly"
	InspectionAnnual     InspectionType = "annual"
	InspectionCompliance InspectionType = "compliance"
)

func (t InspectionType) IsValid() bool {
	switch t {
	case InspectionDaily, InspectionWeekly, InspectionMonthly,
		InspectionQuarterly, InspectionAnnual, InspectionCompliance:
		return true
	}
	return false
}

type ViolationType string

const (
	ViolationSpeeding       ViolationType = "speeding"
	ViolationHoursOfService ViolationType = "hours_of_service"
	ViolationOverweight     ViolationType = "overweight"
	ViolationDocumentation  ViolationType = "documentation"
	ViolationMaintenance    ViolationType = "maintenance"
	ViolationOther          ViolationType = "other"
)

func (t ViolationType) IsValid() bool {
	switch t {
	case ViolationSpeeding, ViolationHoursOfService, ViolationOverweight,
		ViolationDocumentation, ViolationMaintenance, ViolationOther:
		return true
	}
	return false
}

// ComplianceCore — поля, общие для всех типов записей
type ComplianceCore struct {
	OrgID     primitive.ObjectID  `bson:"org_id" json:"org_id"`
	VehicleID primitive.ObjectID  `bson:"vehicle_id" json:"vehicle_id"`
	DriverID  *primitive.ObjectID `bson:"driver_id,omitempty" json:"driver_id,omitempty"`

	Title       string           `bson:"title" json:"title"`
	Description string           `bson:"description" json:"description"`
	Status      ComplianceStatus `bson:"status" json:"status"`
	Priority    PriorityLevel    `bson:"priority" json:"priority"`
	Severity    *PriorityLevel   `bson:"severity,omitempty" json:"severity,omitempty"`

	ComplianceDate time.Time  `bson:"compliance_date" json:"compliance_date"`
	NextReviewDate *time.Time `bson:"next_review_date,omitempty" json:"next_review_date,omitempty"`

	RegulatoryBody      string `bson:"regulatory_body,omitempty" json:"regulatory_body,omitempty"`
	RegulatoryReference string `bson:"regulatory_reference,omitempty" json:"regulatory_reference,omitempty"`

	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// InspectionRecord — запись проверки ТС (collection: compliance_inspections).
// Вариантные поля живут на вариантном типе, а не в одном плоском документе.
type InspectionRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	ComplianceCore `bson:",inline"`

	InspectorID     primitive.ObjectID `bson:"inspector_id" json:"inspector_id"`
	InspectionType  InspectionType     `bson:"inspection_type" json:"inspection_type"`
	ComplianceScore float64            `bson:"compliance_score" json:"compliance_score"` // 0..100
	DefectsFound    []string           `bson:"defects_found" json:"defects_found"`
	Location        string             `bson:"location,omitempty" json:"location,omitempty"`
	Weather         string             `bson:"weather,omitempty" json:"weather,omitempty"`
	VehicleMileage  float64            `bson:"vehicle_mileage" json:"vehicle_mileage"`

	FuelLevel       string `bson:"fuel_level,omitempty" json:"fuel_level,omitempty"`
	OilCondition    string `bson:"oil_condition,omitempty" json:"oil_condition,omitempty"`
	TireCondition   string `bson:"tire_condition,omitempty" json:"tire_condition,omitempty"`
	BrakeCondition  string `bson:"brake_condition,omitempty" json:"brake_condition,omitempty"`
	LightsCondition string `bson:"lights_condition,omitempty" json:"lights_condition,omitempty"`

	EmergencyEquipment []string `bson:"emergency_equipment" json:"emergency_equipment"`
}

// ViolationRecord — запись нарушения (collection: compliance_violations)
type ViolationRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	ComplianceCore `bson:",inline"`

	ViolationType   ViolationType `bson:"violation_type" json:"violation_type"`
	PenaltyAmount   float64       `bson:"penalty_amount" json:"penalty_amount"`
	PenaltyCurrency string        `bson:"penalty_currency" json:"penalty_currency"`
	CaseNumber      string        `bson:"case_number,omitempty" json:"case_number,omitempty"`
	Location        string        `bson:"location,omitempty" json:"location,omitempty"`

	Witnesses         []string `bson:"witnesses" json:"witnesses"`
	EvidenceFiles     []string `bson:"evidence_files" json:"evidence_files"`
	CorrectiveActions []string `bson:"corrective_actions" json:"corrective_actions"`

	FollowUpRequired    bool       `bson:"follow_up_required" json:"follow_up_required"`
	FollowUpDate        *time.Time `bson:"follow_up_date,omitempty" json:"follow_up_date,omitempty"`
	RiskAssessmentScore float64    `bson:"risk_assessment_score" json:"risk_assessment_score"` // 1..10
	OperationalImpact   string     `bson:"operational_impact,omitempty" json:"operational_impact,omitempty"`
	LessonsLearned      string     `bson:"lessons_learned,omitempty" json:"lessons_learned,omitempty"`
}

// DefaultPenaltyCurrency применяется, когда валюта штрафа не указана
const DefaultPenaltyCurrency = "GBP"

// DefaultComplianceScore применяется, когда оценка не указана
const DefaultComplianceScore = 100.0
