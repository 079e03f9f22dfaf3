package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"fencing-backend/models"
	"fencing-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PhotoStore persists an uploaded file and returns its public URL.
type PhotoStore interface {
	Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type CreateJobInput struct {
	QuoteID      string     `json:"quoteId" validate:"required,uuid"`
	TeamMemberID *string    `json:"teamMemberId" validate:"omitempty,uuid"`
	Address      string     `json:"address" validate:"max=500"`
	ScheduledFor *time.Time `json:"scheduledFor"`
	Notes        string     `json:"notes" validate:"max=2000"`
}

type JobService struct {
	db     *gorm.DB
	audit  *AuditLogger
	photos PhotoStore
	logger *zap.Logger
	now    func() time.Time
}

func NewJobService(db *gorm.DB, audit *AuditLogger, photos PhotoStore, logger *zap.Logger) *JobService {
	return &JobService{db: db, audit: audit, photos: photos, logger: logger, now: time.Now}
}

// Create schedules installation work for a converted quote.
func (s *JobService) Create(ctx context.Context, in CreateJobInput) (*models.Job, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var quote models.FenceQuote
	if err := db.Preload("Customer").First(&quote, "id = ?", in.QuoteID).Error; err != nil {
		return nil, notFound("quote", err)
	}
	if quote.Status != models.QuoteConverted {
		return nil, NewDomainError("jobs can only be scheduled for converted quotes")
	}
	if in.TeamMemberID != nil {
		var member models.TeamMember
		if err := db.First(&member, "id = ?", *in.TeamMemberID).Error; err != nil {
			return nil, notFound("team member", err)
		}
	}

	address := strings.TrimSpace(in.Address)
	if address == "" && quote.Customer != nil {
		address = quote.Customer.Address
	}

	job := models.Job{
		QuoteID:      quote.ID,
		TeamMemberID: in.TeamMemberID,
		Address:      address,
		ScheduledFor: in.ScheduledFor,
		Status:       models.JobScheduled,
		Notes:        in.Notes,
	}
	if err := db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &job, nil
}

type JobFilter struct {
	Status       string
	TeamMemberID string
}

func (s *JobService) List(ctx context.Context, f JobFilter) ([]models.Job, error) {
	q := s.db.WithContext(ctx).Preload("TeamMember")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TeamMemberID != "" {
		q = q.Where("team_member_id = ?", f.TeamMemberID)
	}
	var jobs []models.Job
	err := q.Order("scheduled_for ASC").Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

func (s *JobService) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).
		Preload("Quote.Customer").
		Preload("TeamMember").
		Preload("Photos").
		First(&job, "id = ?", id).Error
	if err != nil {
		return nil, notFound("job", err)
	}
	return &job, nil
}

// UpdateStatus advances a job; COMPLETED goes through Complete.
func (s *JobService) UpdateStatus(ctx context.Context, id string, next models.JobStatus, actor Actor) (*models.Job, error) {
	if next == models.JobCompleted {
		return s.Complete(ctx, id, actor)
	}
	if next != models.JobInProgress {
		return nil, invalid("status", "must be IN_PROGRESS or COMPLETED")
	}

	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, notFound("job", err)
	}
	switch job.Status {
	case models.JobCompleted:
		return nil, ErrJobCompleted
	case models.JobInProgress:
		return &job, nil
	}
	job.Status = models.JobInProgress
	if err := s.db.WithContext(ctx).Model(&job).Update("status", job.Status).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Complete marks the job finished and consumes the service's bill of materials
// for the quoted length, in one transaction. Completion is terminal.
func (s *JobService) Complete(ctx context.Context, id string, actor Actor) (*models.Job, error) {
	now := s.now()
	var job models.Job
	consumed := map[string]int{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Quote.FencingService.Materials").First(&job, "id = ?", id).Error; err != nil {
			return notFound("job", err)
		}
		if job.Status == models.JobCompleted {
			return ErrJobCompleted
		}

		res := tx.Model(&models.Job{}).
			Where("id = ? AND status <> ?", job.ID, models.JobCompleted).
			Updates(map[string]any{"status": models.JobCompleted, "completed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrJobCompleted
		}

		if job.Quote == nil || job.Quote.FencingService == nil {
			return nil
		}
		for _, m := range job.Quote.FencingService.Materials {
			needed := int(m.QuantityPerMeter.Mul(job.Quote.LengthMeters).Ceil().IntPart())
			if needed <= 0 {
				continue
			}
			var item models.CatalogItem
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", m.CatalogItemID).Error; err != nil {
				return notFound("catalog item", err)
			}
			remaining := item.StockQuantity - needed
			if remaining < 0 {
				s.logger.Warn("stock shortfall on job completion",
					zap.String("job_id", job.ID),
					zap.String("catalog_item_id", item.ID),
					zap.Int("needed", needed),
					zap.Int("in_stock", item.StockQuantity))
				remaining = 0
			}
			taken := item.StockQuantity - remaining
			if err := tx.Model(&models.CatalogItem{}).Where("id = ?", item.ID).Update("stock_quantity", remaining).Error; err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			consumed[item.ID] += taken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	job.Status = models.JobCompleted
	job.CompletedAt = &now
	utils.JobsCompletedTotal.Inc()
	s.audit.Record(ctx, AuditEntry{
		Action:      ActionJobCompleted,
		EntityType:  "Job",
		EntityID:    job.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"consumed": consumed},
	})
	return &job, nil
}

type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Caption     string
}

// AddPhoto stores an image as evidence for a job and records its URL.
func (s *JobService) AddPhoto(ctx context.Context, jobID string, up PhotoUpload, actor Actor) (*models.JobPhoto, error) {
	if !strings.HasPrefix(up.ContentType, "image/") {
		return nil, invalid("photo", "must be an image")
	}
	var job models.Job
	if err := s.db.WithContext(ctx).Select("id").First(&job, "id = ?", jobID).Error; err != nil {
		return nil, notFound("job", err)
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	key := fmt.Sprintf("jobs/%s/%s%s", job.ID, uuid.NewString(), ext)
	url, err := s.photos.Save(ctx, key, up.Body, up.Size, up.ContentType)
	if err != nil {
		s.logger.Error("photo upload failed", zap.String("job_id", job.ID), zap.Error(err))
		return nil, &CollaboratorError{Service: "storage", Err: err}
	}

	photo := models.JobPhoto{
		JobID:      job.ID,
		URL:        url,
		Caption:    strings.TrimSpace(up.Caption),
		UploadedBy: actor.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&photo).Error; err != nil {
		return nil, fmt.Errorf("record photo: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:      ActionJobPhotoAdded,
		EntityType:  "Job",
		EntityID:    job.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"photoId": photo.ID, "url": url},
	})
	return &photo, nil
}
