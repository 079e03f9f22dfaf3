package models

import "time"

type TeamMember struct {
	Base
	Name   string `json:"name" gorm:"not null"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Trade  string `json:"trade"`
	Active bool   `json:"active"`
}

type JobStatus string

const (
	JobScheduled  JobStatus = "SCHEDULED"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
)

// Job is installation work for a quote, carried out by a team member.
type Job struct {
	Base
	QuoteID      string      `json:"quoteId" gorm:"size:36;not null;index"`
	Quote        *FenceQuote `json:"quote,omitempty" gorm:"foreignKey:QuoteID"`
	TeamMemberID *string     `json:"teamMemberId" gorm:"size:36;index"`
	TeamMember   *TeamMember `json:"teamMember,omitempty" gorm:"foreignKey:TeamMemberID"`
	Address      string      `json:"address"`
	ScheduledFor *time.Time  `json:"scheduledFor"`
	Status       JobStatus   `json:"status" gorm:"size:16;not null;index"`
	Notes        string      `json:"notes"`
	CompletedAt  *time.Time  `json:"completedAt"`
	Photos       []JobPhoto  `json:"photos,omitempty" gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
}

type JobPhoto struct {
	Base
	JobID      string `json:"jobId" gorm:"size:36;not null;index"`
	URL        string `json:"url" gorm:"not null"`
	Caption    string `json:"caption"`
	UploadedBy string `json:"uploadedBy" gorm:"size:36"`
}
