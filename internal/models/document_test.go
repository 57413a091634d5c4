package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func docWithExpiry(expiry time.Time) *Document {
	return &Document{ExpiryDate: &expiry, Status: DocumentStatusActive}
}

func TestClassifyExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		doc  *Document
		want ExpiryState
	}{
		{
			name: "no expiry date is never expired",
			doc:  &Document{},
			want: ExpiryNotApplicable,
		},
		{
			name: "past expiry",
			doc:  docWithExpiry(now.Add(-24 * time.Hour)),
			want: ExpiryExpired,
		},
		{
			name: "expiry exactly now is neither expired nor expiring soon",
			doc:  docWithExpiry(now),
			want: ExpiryCurrent,
		},
		{
			name: "one second before now",
			doc:  docWithExpiry(now.Add(-time.Second)),
			want: ExpiryExpired,
		},
		{
			name: "20 days ahead",
			doc:  docWithExpiry(now.Add(20 * 24 * time.Hour)),
			want: ExpiryExpiringSoon,
		},
		{
			name: "exactly 30 days ahead is outside the window",
			doc:  docWithExpiry(now.Add(ExpiringSoonWindow)),
			want: ExpiryCurrent,
		},
		{
			name: "just inside the 30 day window",
			doc:  docWithExpiry(now.Add(ExpiringSoonWindow - time.Second)),
			want: ExpiryExpiringSoon,
		},
		{
			name: "far future",
			doc:  docWithExpiry(now.Add(90 * 24 * time.Hour)),
			want: ExpiryCurrent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyExpiry(tt.doc, now))
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	expired := &Document{Status: DocumentStatusApproved, ExpiryDate: &past}
	assert.Equal(t, DocumentStatusExpired, expired.EffectiveStatus(now))

	// Архив перекрывает истекший срок
	archived := &Document{Status: DocumentStatusArchived, ExpiryDate: &past}
	assert.Equal(t, DocumentStatusArchived, archived.EffectiveStatus(now))

	plain := &Document{Status: DocumentStatusPending}
	assert.Equal(t, DocumentStatusPending, plain.EffectiveStatus(now))
}

func TestComputeDocumentStats(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in20Days := now.Add(20 * 24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	docs := []Document{
		{
			Category:   CategoryCompliance,
			Status:     DocumentStatusActive,
			ExpiryDate: &in20Days,
			IsFavorite: true,
			FileSize:   100,
			CreatedAt:  now.Add(-2 * 24 * time.Hour),
		},
		{
			Category:   CategoryInsurance,
			Status:     DocumentStatusApproved,
			ExpiryDate: &yesterday,
			FileSize:   200,
			CreatedAt:  now.Add(-10 * 24 * time.Hour),
		},
		{
			Category:  CategoryOther,
			Status:    DocumentStatusDraft,
			CreatedAt: now.Add(-1 * time.Hour),
		},
	}

	stats := ComputeDocumentStats(docs, now)

	assert.Equal(t, 3, stats.Total)
	// Документ со сроком через 20 дней попадает в expiring_soon, не в expired
	assert.Equal(t, 1, stats.ExpiringSoon)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 1, stats.Favorites)
	assert.Equal(t, 2, stats.RecentlyAdded)
	assert.Equal(t, int64(300), stats.TotalSizeBytes)

	assert.Equal(t, 1, stats.ByCategory[CategoryCompliance])
	// Статусные агрегаты считаются по производному статусу
	assert.Equal(t, 1, stats.ByStatus[DocumentStatusExpired])
	assert.Equal(t, 0, stats.ByStatus[DocumentStatusApproved])
	assert.Equal(t, 1, stats.ByStatus[DocumentStatusActive])
	assert.Equal(t, 1, stats.ByStatus[DocumentStatusDraft])
}

func TestCanIncrementDownload(t *testing.T) {
	assert.False(t, (&Document{Status: DocumentStatusDraft}).CanIncrementDownload())
	assert.False(t, (&Document{Status: DocumentStatusPending}).CanIncrementDownload())
	assert.True(t, (&Document{Status: DocumentStatusApproved}).CanIncrementDownload())
	assert.True(t, (&Document{Status: DocumentStatusActive}).CanIncrementDownload())
}

func TestArchivePatch(t *testing.T) {
	now := time.Now()

	t.Run("archiving preserves previous status", func(t *testing.T) {
		doc := &Document{Status: DocumentStatusPending}
		patch := ArchivePatch(doc, true, now)

		assert.Equal(t, DocumentStatusArchived, patch["status"])
		assert.Equal(t, DocumentStatusPending, patch["previous_status"])
	})

	t.Run("unarchiving restores previous status", func(t *testing.T) {
		prev := DocumentStatusPending
		doc := &Document{Status: DocumentStatusArchived, PreviousStatus: &prev}
		patch := ArchivePatch(doc, false, now)

		assert.Equal(t, DocumentStatusPending, patch["status"])
		assert.Nil(t, patch["previous_status"])
	})

	t.Run("unarchiving without previous status falls back to active", func(t *testing.T) {
		doc := &Document{Status: DocumentStatusArchived}
		patch := ArchivePatch(doc, false, now)

		assert.Equal(t, DocumentStatusActive, patch["status"])
	})
}

func TestNormalizeCategory(t *testing.T) {
	// Все известные категории проходят без изменений
	known := []DocumentCategory{
		CategoryCompliance,
		CategoryInsurance,
		CategoryVehicle,
		CategoryDriver,
		CategoryOperational,
		CategoryFinancial,
		CategoryOther,
	}
	for _, c := range known {
		assert.Equal(t, c, NormalizeCategory(string(c)), string(c))
	}

	// В other сводится только то, чего в словаре нет
	assert.Equal(t, CategoryOther, NormalizeCategory("garbage"))
	assert.Equal(t, CategoryOther, NormalizeCategory(""))
}
