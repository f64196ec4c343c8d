package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewID генерирует идентификатор новой сущности.
func NewID() string {
	return uuid.NewString()
}

// NormalizeID проверяет формат идентификатора и приводит его к каноническому виду.
// Принимается только форма xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func NormalizeID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 36 {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// IsValidID сообщает, является ли строка корректным идентификатором.
func IsValidID(raw string) bool {
	_, ok := NormalizeID(raw)
	return ok
}
