package httpapi

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	msgServerError = "Server Error"
	msgInvalidBody = "Invalid JSON body"
)

var errInvalidBody = errors.New("invalid request body")

// statusFor сопоставляет доменную ошибку HTTP-статусу.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidBody):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case domain.IsClientError(err):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// responseFor строит тело ответа. Детали внутренних ошибок клиенту не отдаются.
func responseFor(err error) messageResponse {
	if errors.Is(err, errInvalidBody) {
		return messageResponse{Msg: msgInvalidBody}
	}
	if ve, ok := domain.AsValidationError(err); ok {
		resp := messageResponse{Msg: ve.Message}
		if ve.Field != "" {
			resp.Errors = map[string]any{ve.Field: ve.Detail}
		}
		return resp
	}
	switch {
	case errors.Is(err, domain.ErrStoreNotFound):
		return messageResponse{Msg: "Store not found"}
	case errors.Is(err, domain.ErrProductNotFound):
		return messageResponse{Msg: "Product not found"}
	case errors.Is(err, domain.ErrOrderNotFound):
		return messageResponse{Msg: "Order not found"}
	}
	return messageResponse{Msg: msgServerError}
}

// writeError отправляет ошибку клиенту; 5xx дополнительно логируется с причиной.
func (h *Handlers) writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
	}
	return c.Status(status).JSON(responseFor(err))
}

// decodeBody разбирает JSON-тело. Пустое тело трактуется как пустой объект.
func decodeBody(c *fiber.Ctx, dst any) error {
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// errorHandler обрабатывает ошибки, не перехваченные обработчиками: неизвестные маршруты и паники.
func errorHandler(logger *log.Entry) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(messageResponse{Msg: fe.Message})
		}
		logger.WithError(err).WithField("path", c.Path()).Error("unhandled error")
		return c.Status(fiber.StatusInternalServerError).JSON(messageResponse{Msg: msgServerError})
	}
}
