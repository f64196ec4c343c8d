package domain

import (
	"errors"
	"fmt"
)

// Виды ошибок. Сервисы оборачивают их в ValidationError или %w, HTTP-слой классифицирует через errors.Is.
var (
	// Обязательное поле отсутствует или пустое.
	ErrMissingField = errors.New("missing field")
	// Поле присутствует, но имеет неверную структуру (например, items не массив).
	ErrInvalidShape = errors.New("invalid shape")
	// Строка не является корректным идентификатором.
	ErrInvalidIdentifier = errors.New("invalid identifier format")
	// Позиция заказа не прошла проверку структуры или количества.
	ErrInvalidItem = errors.New("invalid order item")
	// Значение поля вне допустимого диапазона (отрицательная цена товара).
	ErrInvalidValue = errors.New("invalid value")
	// Сущность не найдена.
	ErrNotFound = errors.New("not found")
	// Товар не принадлежит магазину из запроса.
	ErrForbidden = errors.New("forbidden")
	// Магазин с такой парой name+location уже существует.
	ErrDuplicateEntity = errors.New("duplicate entity")
	// В запросе на обновление нет ни одного поля.
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	// Сбой хранилища.
	ErrPersistence = errors.New("persistence failure")
	// Ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

var (
	ErrStoreNotFound   = fmt.Errorf("store %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
)

// ValidationError несёт вид ошибки и сообщение для клиента.
// Field и Detail опциональны и попадают в поле errors ответа.
type ValidationError struct {
	Kind    error
	Message string
	Field   string
	Detail  any
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// NewValidationError создаёт ошибку без деталей по полю.
func NewValidationError(kind error, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg}
}

// NewFieldError создаёт ошибку с привязкой к полю запроса.
func NewFieldError(kind error, field, msg string, detail any) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg, Field: field, Detail: detail}
}

// AsValidationError извлекает ValidationError из цепочки ошибок.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// KindLabel возвращает короткое имя вида ошибки для метрик и логов.
func KindLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrInvalidShape):
		return "invalid_shape"
	case errors.Is(err, ErrInvalidIdentifier):
		return "invalid_identifier"
	case errors.Is(err, ErrInvalidItem):
		return "invalid_item"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrDuplicateEntity):
		return "duplicate_entity"
	case errors.Is(err, ErrNoFieldsToUpdate):
		return "no_fields_to_update"
	default:
		return "persistence"
	}
}

// IsClientError сообщает, что ошибка вызвана входными данными, а не инфраструктурой.
func IsClientError(err error) bool {
	switch KindLabel(err) {
	case "none", "persistence":
		return false
	default:
		return true
	}
}
