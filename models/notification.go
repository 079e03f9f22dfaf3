package models

import "time"

// Notification targets one user, or everyone when UserID is nil.
type Notification struct {
	Base
	UserID *string    `json:"userId" gorm:"size:36;index"`
	Title  string     `json:"title" gorm:"not null"`
	Body   string     `json:"body"`
	ReadAt *time.Time `json:"readAt"`
}
