package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// accessLog пишет строку лога и метрики на каждый запрос.
// Ошибки из цепочки отдаются ErrorHandler здесь, чтобы статус в логе совпадал с ответом.
func accessLog(logger *log.Entry, m *metrics.ShopMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.HTTPRequestStarted()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		latency := time.Since(start)
		status := c.Response().StatusCode()
		route := c.Route().Path

		m.HTTPRequestFinished(c.Method(), route, status, latency)

		entry := logger.WithFields(log.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": latency.Milliseconds(),
		})
		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("http request")
		case status >= fiber.StatusBadRequest:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
		return nil
	}
}
