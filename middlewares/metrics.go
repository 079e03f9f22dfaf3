package middlewares

import (
	"strconv"
	"time"

	"fencing-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request count and latency per route template. Chain errors
// are rendered here so the recorded status matches the response.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		labels := []string{c.Method(), c.Route().Path, strconv.Itoa(c.Response().StatusCode())}
		utils.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		utils.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return nil
	}
}
