package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"fencing-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Idempotency processes Idempotency-Key for mutating HTTP methods. The first
// completed response for a key is stored and replayed for identical retries;
// reuse of a key with a different request is a 409.
// Run it after Authenticated so the key is bound to the caller.
func Idempotency(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		sess, ok := CurrentSession(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		path := c.OriginalURL()

		// method|path|body|user
		h := sha256.New()
		h.Write([]byte(method))
		h.Write([]byte{'\n'})
		h.Write([]byte(path))
		h.Write([]byte{'\n'})
		h.Write(c.Body())
		h.Write([]byte{'\n'})
		h.Write([]byte(sess.UserID))
		reqHash := hex.EncodeToString(h.Sum(nil))

		var existing models.IdempotencyKey
		err := db.Transaction(func(tx *gorm.DB) error {
			err := tx.Where("user_id = ? AND key = ?", sess.UserID, key).First(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			rec := models.IdempotencyKey{
				Key:         key,
				RequestHash: reqHash,
				Method:      method,
				Path:        path,
				UserID:      sess.UserID,
			}
			if err := tx.Create(&rec).Error; err != nil {
				// lost a race on (user_id, key)
				return tx.Where("user_id = ? AND key = ?", sess.UserID, key).First(&existing).Error
			}
			existing = rec
			return nil
		})
		if err != nil {
			return err
		}

		if existing.RequestHash != reqHash {
			return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
		}
		if existing.ResponseStatus != 0 && existing.ResponseBody != nil {
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			return nil
		}
		blob := make([]byte, len(c.Response().Body()))
		copy(blob, c.Response().Body())
		now := time.Now().UTC()
		// best effort: the response already succeeded
		_ = db.Model(&models.IdempotencyKey{}).
			Where("user_id = ? AND key = ?", sess.UserID, key).
			Updates(map[string]any{
				"response_status": status,
				"response_body":   blob,
				"completed_at":    &now,
			}).Error
		return nil
	}
}
