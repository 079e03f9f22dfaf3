package controllers

import (
	"fencing-backend/middlewares"
	"fencing-backend/models"
	"fencing-backend/services"
	"fencing-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type teamMemberInput struct {
	Name   string `json:"name" validate:"required,max=200"`
	Phone  string `json:"phone" validate:"max=50"`
	Email  string `json:"email" validate:"omitempty,email"`
	Trade  string `json:"trade" validate:"max=100"`
	Active *bool  `json:"active"`
}

type teamMemberPatch struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone  *string `json:"phone" validate:"omitempty,max=50"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Trade  *string `json:"trade" validate:"omitempty,max=100"`
	Active *bool   `json:"active"`
}

type jobStatusInput struct {
	Status models.JobStatus `json:"status" validate:"required,oneof=IN_PROGRESS COMPLETED"`
}

func (h *Handler) GetTeamMembers(c *fiber.Ctx) error {
	q := h.DB.WithContext(c.UserContext())
	if c.Query("active") == "true" {
		q = q.Where("active = ?", true)
	}
	var members []models.TeamMember
	if err := q.Order("name").Find(&members).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"teamMembers": members})
}

func (h *Handler) GetTeamMember(c *fiber.Ctx) error {
	var m models.TeamMember
	if err := h.findByID(c, &m, "team member"); err != nil {
		return err
	}
	return c.JSON(m)
}

func (h *Handler) CreateTeamMember(c *fiber.Ctx) error {
	var in teamMemberInput
	if err := middlewares.BindInput(c, &in); err != nil {
		return err
	}
	m := models.TeamMember{
		Name:   in.Name,
		Phone:  in.Phone,
		Email:  in.Email,
		Trade:  in.Trade,
		Active: in.Active == nil || *in.Active,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&m).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (h *Handler) UpdateTeamMember(c *fiber.Ctx) error {
	var m models.TeamMember
	if err := h.findByID(c, &m, "team member"); err != nil {
		return err
	}
	var in teamMemberPatch
	if err := middlewares.BindPatch(c, &in); err != nil {
		return err
	}
	if updates := utils.UpdatesFromPtrDTO(&in); len(updates) > 0 {
		if err := h.DB.WithContext(c.UserContext()).Model(&m).Updates(updates).Error; err != nil {
			return err
		}
	}
	return c.JSON(m)
}

func (h *Handler) DeleteTeamMember(c *fiber.Ctx) error {
	var m models.TeamMember
	if err := h.findByID(c, &m, "team member"); err != nil {
		return err
	}
	db := h.DB.WithContext(c.UserContext())
	var open int64
	if err := db.Model(&models.Job{}).
		Where("team_member_id = ? AND status <> ?", m.ID, models.JobCompleted).
		Count(&open).Error; err != nil {
		return err
	}
	if open > 0 {
		return services.NewDomainError("team member has open jobs")
	}
	if err := db.Delete(&m).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Jobs

func (h *Handler) GetJobs(c *fiber.Ctx) error {
	jobs, err := h.Jobs.List(c.UserContext(), services.JobFilter{
		Status:       c.Query("status"),
		TeamMemberID: c.Query("teamMemberId"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

func (h *Handler) GetJob(c *fiber.Ctx) error {
	job, err := h.Jobs.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(job)
}

func (h *Handler) CreateJob(c *fiber.Ctx) error {
	var in services.CreateJobInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	job, err := h.Jobs.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

func (h *Handler) UpdateJobStatus(c *fiber.Ctx) error {
	var in jobStatusInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	job, err := h.Jobs.UpdateStatus(c.UserContext(), c.Params("id"), in.Status, middlewares.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(job)
}

// AddJobPhoto accepts multipart field "photo" and an optional "caption".
func (h *Handler) AddJobPhoto(c *fiber.Ctx) error {
	fh, err := c.FormFile("photo")
	if err != nil {
		return &services.ValidationError{Field: "photo", Message: "file is required"}
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	photo, err := h.Jobs.AddPhoto(c.UserContext(), c.Params("id"), services.PhotoUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
		Caption:     c.FormValue("caption"),
	}, middlewares.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(photo)
}
