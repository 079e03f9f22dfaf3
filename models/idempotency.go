package models

import "time"

// IdempotencyKey stores the first response a user received for an Idempotency-Key header.
// Keys are scoped per user; two callers may pick the same value.
type IdempotencyKey struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	UserID         string     `json:"userId" gorm:"size:36;not null;uniqueIndex:idx_idempotency_user_key,priority:1"`
	Key            string     `json:"key" gorm:"size:128;not null;uniqueIndex:idx_idempotency_user_key,priority:2"`
	RequestHash    string     `json:"requestHash" gorm:"size:64"` // sha256 of method|path|body|user
	Method         string     `json:"method" gorm:"size:10"`
	Path           string     `json:"path" gorm:"size:255"`
	ResponseStatus int        `json:"responseStatus"` // 0 => not completed yet
	ResponseBody   []byte     `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt"`
}
