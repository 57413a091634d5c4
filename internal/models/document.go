// internal/models/document.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DocumentStatus string

const (
	DocumentStatusDraft    DocumentStatus = "draft"
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusRejected DocumentStatus = "rejected"
	DocumentStatusActive   DocumentStatus = "active"
	DocumentStatusExpired  DocumentStatus = "expired"
	DocumentStatusArchived DocumentStatus = "archived"
)

func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusPending, DocumentStatusApproved,
		DocumentStatusRejected, DocumentStatusActive, DocumentStatusExpired,
		DocumentStatusArchived:
		return true
	}
	return false
}

type DocumentCategory string

const (
	CategoryCompliance  DocumentCategory = "compliance"
	CategoryInsurance   DocumentCategory = "insurance"
	CategoryVehicle     DocumentCategory = "vehicle"
	CategoryDriver      DocumentCategory = "driver"
	CategoryOperational DocumentCategory = "operational"
	CategoryFinancial   DocumentCategory = "financial"
	CategoryOther       DocumentCategory = "other"
)

// NormalizeCategory сводит неизвестные категории к other
func NormalizeCategory(category string) DocumentCategory {
	c := DocumentCategory(category)
	switch c {
	case CategoryCompliance, CategoryInsurance, CategoryVehicle,
		CategoryDriver, CategoryOperational, CategoryFinancial, CategoryOther:
		return c
	}
	return CategoryOther
}

type PriorityLevel string

const (
	PriorityLow      PriorityLevel = "low"
	PriorityMedium   PriorityLevel = "medium"
	PriorityHigh     PriorityLevel = "high"
	PriorityCritical PriorityLevel = "critical"
)

func (p PriorityLevel) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Document struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrgID primitive.ObjectID `bson:"org_id" json:"org_id"`

	Name     string           `bson:"name" json:"name"`
	Category DocumentCategory `bson:"category" json:"category"`
	Status   DocumentStatus   `bson:"status" json:"status"`
	Priority PriorityLevel    `bson:"priority" json:"priority"`

	// PreviousStatus хранит статус на момент архивирования, чтобы
	// разархивирование не затирало pending/rejected в active
	PreviousStatus *DocumentStatus `bson:"previous_status,omitempty" json:"previous_status,omitempty"`

	ExpiryDate     *time.Time `bson:"expiry_date,omitempty" json:"expiry_date,omitempty"`
	IsConfidential bool       `bson:"is_confidential" json:"is_confidential"`
	IsFavorite     bool       `bson:"is_favorite" json:"is_favorite"`
	Tags           []string   `bson:"tags" json:"tags"`
	Version        string     `bson:"version" json:"version"`

	StoragePath   string `bson:"storage_path" json:"storage_path"`
	FileSize      int64  `bson:"file_size" json:"file_size"`
	ContentType   string `bson:"content_type" json:"content_type"`
	DownloadCount int64  `bson:"download_count" json:"download_count"`

	UploadedBy primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// ExpiryState — производное состояние срока действия, вычисляется при
// каждом чтении и нигде не хранится
type ExpiryState string

const (
	ExpiryNotApplicable ExpiryState = "not_applicable"
	ExpiryCurrent       ExpiryState = "current"
	ExpiryExpiringSoon  ExpiryState = "expiring_soon"
	ExpiryExpired       ExpiryState = "expired"
)

// ExpiringSoonWindow — окно предупреждения об истечении срока
const ExpiringSoonWindow = 30 * 24 * time.Hour

// RecentUploadWindow — окно "недавно загруженных" в статистике
const RecentUploadWindow = 7 * 24 * time.Hour

// ClassifyExpiry — чистая функция expiry_date против now. Документ без
// срока действия — not_applicable, никогда не expired. Срок ровно в now
// не попадает ни в expired, ни в expiring_soon: обе границы строгие.
func ClassifyExpiry(doc *Document, now time.Time) ExpiryState {
	if doc.ExpiryDate == nil {
		return ExpiryNotApplicable
	}
	expiry := *doc.ExpiryDate
	if expiry.Before(now) {
		return ExpiryExpired
	}
	if expiry.After(now) && expiry.Before(now.Add(ExpiringSoonWindow)) {
		return ExpiryExpiringSoon
	}
	return ExpiryCurrent
}

// EffectiveStatus накладывает производное истечение срока на хранимый
// статус: архив важнее, истекший срок важнее остального
func (d *Document) EffectiveStatus(now time.Time) DocumentStatus {
	if d.Status == DocumentStatusArchived {
		return DocumentStatusArchived
	}
	if ClassifyExpiry(d, now) == ExpiryExpired {
		return DocumentStatusExpired
	}
	return d.Status
}

// CanIncrementDownload — скачивание подразумевает пройденное согласование
func (d *Document) CanIncrementDownload() bool {
	switch d.Status {
	case DocumentStatusDraft, DocumentStatusPending:
		return false
	}
	return true
}

// ArchivePatch строит $set для архивирования/разархивирования.
// При архивировании прежний статус сохраняется в previous_status;
// при разархивировании восстанавливается (active, если его нет).
func ArchivePatch(doc *Document, archived bool, now time.Time) bson.M {
	if archived {
		prev := doc.Status
		return bson.M{
			"status":          DocumentStatusArchived,
			"previous_status": prev,
			"updated_at":      now,
		}
	}

	restored := DocumentStatusActive
	if doc.PreviousStatus != nil {
		restored = *doc.PreviousStatus
	}
	return bson.M{
		"status":          restored,
		"previous_status": nil,
		"updated_at":      now,
	}
}

// DocumentStats — агрегаты для дашборда, пересчитываются на каждый запрос
type DocumentStats struct {
	Total          int                      `json:"total"`
	ByStatus       map[DocumentStatus]int   `json:"by_status"`
	ByCategory     map[DocumentCategory]int `json:"by_category"`
	ExpiringSoon   int                      `json:"expiring_soon"`
	Expired        int                      `json:"expired"`
	Favorites      int                      `json:"favorites"`
	RecentlyAdded  int                      `json:"recently_added"`
	TotalSizeBytes int64                    `json:"total_size_bytes"`
	TotalDownloads int64                    `json:"total_downloads"`
}

// ComputeDocumentStats — один O(n) проход по снапшоту документов.
// Истекшие документы в expiring_soon не попадают.
func ComputeDocumentStats(docs []Document, now time.Time) DocumentStats {
	stats := DocumentStats{
		ByStatus:   make(map[DocumentStatus]int),
		ByCategory: make(map[DocumentCategory]int),
	}

	recentCutoff := now.Add(-RecentUploadWindow)

	for i := range docs {
		doc := &docs[i]
		stats.Total++
		stats.ByStatus[doc.EffectiveStatus(now)]++
		stats.ByCategory[doc.Category]++
		stats.TotalSizeBytes += doc.FileSize
		stats.TotalDownloads += doc.DownloadCount

		switch ClassifyExpiry(doc, now) {
		case ExpiryExpiringSoon:
			stats.ExpiringSoon++
		case ExpiryExpired:
			stats.Expired++
		}

		if doc.IsFavorite {
			stats.Favorites++
		}
		if doc.CreatedAt.After(recentCutoff) {
			stats.RecentlyAdded++
		}
	}

	return stats
}
