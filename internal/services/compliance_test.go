package services

import (
	"context"
	"testing"
	"time"

	"fleetops-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validInspectionInput() *EntryInput {
	return &EntryInput{
		ComplianceType: "vehicle_inspection",
		VehicleID:      primitive.NewObjectID().Hex(),
		ComplianceDate: "2026-03-01",
		Title:          "Quarterly check",
		Description:    "Routine quarterly inspection",
		Status:         "compliant",
		Priority:       "medium",
		InspectionType: "quarterly",
	}
}

func validViolationInput() *EntryInput {
	return &EntryInput{
		ComplianceType: "compliance_violation",
		VehicleID:      primitive.NewObjectID().Hex(),
		ComplianceDate: "2026-02-15",
		Title:          "Speeding ticket",
		Description:    "Exceeded limit on the motorway",
		Status:         "pending",
		Priority:       "high",
		ViolationType:  "speeding",
	}
}

func TestValidate(t *testing.T) {
	svc := NewComplianceService(nil, nil)

	t.Run("valid input passes", func(t *testing.T) {
		assert.Nil(t, svc.Validate(validInspectionInput()))
	})

	t.Run("missing required fields", func(t *testing.T) {
		errs := svc.Validate(&EntryInput{})
		require.NotNil(t, errs)
		assert.Contains(t, errs, "compliance_type")
		assert.Contains(t, errs, "vehicle_id")
		assert.Contains(t, errs, "compliance_date")
		assert.Contains(t, errs, "title")
		assert.Contains(t, errs, "description")
		assert.Contains(t, errs, "status")
		assert.Contains(t, errs, "priority")
	})

	t.Run("bad enum values", func(t *testing.T) {
		input := validInspectionInput()
		input.Status = "sideways"
		input.Priority = "urgent-ish"
		errs := svc.Validate(input)
		require.NotNil(t, errs)
		assert.Contains(t, errs, "status")
		assert.Contains(t, errs, "priority")
	})

	t.Run("bad date format", func(t *testing.T) {
		input := validInspectionInput()
		input.ComplianceDate = "next tuesday"
		errs := svc.Validate(input)
		require.NotNil(t, errs)
		assert.Contains(t, errs, "compliance_date")
	})
}

func TestBuildInspection(t *testing.T) {
	orgID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	now := time.Now()

	t.Run("inspector is the current user", func(t *testing.T) {
		record, err := BuildInspection(orgID, userID, validInspectionInput(), now)
		require.NoError(t, err)
		assert.Equal(t, userID, record.InspectorID)
		assert.Equal(t, userID, record.CreatedBy)
		assert.Equal(t, orgID, record.OrgID)
	})

	t.Run("score defaults to 100 when omitted", func(t *testing.T) {
		input := validInspectionInput()
		input.ComplianceScore = ""
		record, err := BuildInspection(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, 100.0, record.ComplianceScore)
	})

	t.Run("non-numeric score falls back to default", func(t *testing.T) {
		input := validInspectionInput()
		input.ComplianceScore = "ninety"
		record, err := BuildInspection(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, 100.0, record.ComplianceScore)
	})

	t.Run("score is clamped to 0..100", func(t *testing.T) {
		input := validInspectionInput()
		input.ComplianceScore = "250"
		record, err := BuildInspection(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, 100.0, record.ComplianceScore)

		input.ComplianceScore = "-5"
		record, err = BuildInspection(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, 0.0, record.ComplianceScore)
	})

	t.Run("list fields are empty, never nil", func(t *testing.T) {
		record, err := BuildInspection(orgID, userID, validInspectionInput(), now)
		require.NoError(t, err)
		assert.NotNil(t, record.DefectsFound)
		assert.NotNil(t, record.EmergencyEquipment)
		assert.Empty(t, record.DefectsFound)
	})

	t.Run("unknown inspection type falls back to compliance", func(t *testing.T) {
		input := validInspectionInput()
		input.InspectionType = "whenever"
		record, err := BuildInspection(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, models.InspectionCompliance, record.InspectionType)
	})
}

func TestBuildViolation(t *testing.T) {
	orgID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	now := time.Now()

	t.Run("currency defaults to GBP", func(t *testing.T) {
		record, err := BuildViolation(orgID, userID, validViolationInput(), now)
		require.NoError(t, err)
		assert.Equal(t, "GBP", record.PenaltyCurrency)
	})

	t.Run("explicit currency is kept", func(t *testing.T) {
		input := validViolationInput()
		input.PenaltyCurrency = "EUR"
		record, err := BuildViolation(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, "EUR", record.PenaltyCurrency)
	})

	t.Run("penalty amount coercion", func(t *testing.T) {
		input := validViolationInput()
		input.PenaltyAmount = "150.50"
		record, err := BuildViolation(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, 150.50, record.PenaltyAmount)

		input.PenaltyAmount = "lots"
		record, err = BuildViolation(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, 0.0, record.PenaltyAmount)
	})

	t.Run("risk score clamped to 1..10 with fallback 1", func(t *testing.T) {
		input := validViolationInput()
		input.RiskAssessmentScore = ""
		record, err := BuildViolation(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, 1.0, record.RiskAssessmentScore)

		input.RiskAssessmentScore = "15"
		record, err = BuildViolation(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, 10.0, record.RiskAssessmentScore)
	})

	t.Run("list fields are empty, never nil", func(t *testing.T) {
		record, err := BuildViolation(orgID, userID, validViolationInput(), now)
		require.NoError(t, err)
		assert.NotNil(t, record.Witnesses)
		assert.NotNil(t, record.EvidenceFiles)
		assert.NotNil(t, record.CorrectiveActions)
	})

	t.Run("unknown violation type falls back to other", func(t *testing.T) {
		input := validViolationInput()
		input.ViolationType = "jaywalking"
		record, err := BuildViolation(orgID, userID, input, now)
		require.NoError(t, err)
		assert.Equal(t, models.ViolationOther, record.ViolationType)
	})
}

func TestNormalizeDriver(t *testing.T) {
	id := primitive.NewObjectID()

	// Сентинель и пустая строка превращаются в настоящий nil
	assert.Nil(t, normalizeDriver(NoDriverSentinel))
	assert.Nil(t, normalizeDriver(""))
	assert.Nil(t, normalizeDriver("not-hex"))

	got := normalizeDriver(id.Hex())
	require.NotNil(t, got)
	assert.Equal(t, id, *got)
}

func TestDriverSentinelNeverPersisted(t *testing.T) {
	orgID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	input := validInspectionInput()
	input.DriverID = NoDriverSentinel

	record, err := BuildInspection(orgID, userID, input, time.Now())
	require.NoError(t, err)
	assert.Nil(t, record.DriverID)
}

func TestCreateEntryUnsupportedTypes(t *testing.T) {
	svc := NewComplianceService(nil, nil)

	for _, ct := range []string{"regulatory_check", "document_compliance", "safety_audit"} {
		input := validInspectionInput()
		input.ComplianceType = ct

		_, err := svc.CreateEntry(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), input)
		assert.ErrorIs(t, err, ErrUnsupportedComplianceType, ct)
	}
}

func TestParseDate(t *testing.T) {
	_, err := parseDate("2026-03-01")
	assert.NoError(t, err)

	_, err = parseDate("2026-03-01T12:00:00Z")
	assert.NoError(t, err)

	_, err = parseDate("01/03/2026")
	assert.Error(t, err)
}
