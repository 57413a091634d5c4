package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound — целевая запись не существует (или принадлежит другой
	// организации, что снаружи неотличимо)
	ErrNotFound = errors.New("record not found")

	// ErrUnsupportedComplianceType — у типа записи нет пути сохранения.
	// Возвращается явно, а не молча игнорируется.
	ErrUnsupportedComplianceType = errors.New("compliance type has no persistence path")

	// ErrDownloadNotAllowed — документ ещё не прошёл согласование
	ErrDownloadNotAllowed = errors.New("document is not downloadable in its current status")
)

// ValidationErrors — пофилдовые ошибки валидации формы
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// UploadError — загрузка файла в хранилище не удалась; запись документа
// после такой ошибки не создаётся
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("file upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
