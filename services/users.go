package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fencing-backend/auth"
	"fencing-backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrEmailTaken         = NewDomainError("email already exists")
)

type CreateUserInput struct {
	Name     string      `json:"name" validate:"required,max=200"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     models.Role `json:"role" validate:"required,oneof=admin manager finance staff"`
}

type UpdateUserInput struct {
	Name     *string      `json:"name" validate:"omitempty,max=200"`
	Role     *models.Role `json:"role" validate:"omitempty,oneof=admin manager finance staff"`
	IsActive *bool        `json:"isActive"`
	Password *string      `json:"password" validate:"omitempty,min=8,max=72"`
}

type UserService struct {
	db       *gorm.DB
	sessions *auth.SessionManager
	audit    *AuditLogger
	logger   *zap.Logger
}

func NewUserService(db *gorm.DB, sessions *auth.SessionManager, audit *AuditLogger, logger *zap.Logger) *UserService {
	return &UserService{db: db, sessions: sessions, audit: audit, logger: logger}
}

// Login checks the password and the active flag, then issues a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, err
	}
	if err != nil || user.ComparePassword(password) != nil {
		s.audit.Record(ctx, AuditEntry{
			Action:      ActionLoginFailed,
			EntityType:  "User",
			PerformedBy: email,
		})
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, ErrAccountDisabled
	}

	token, err := s.sessions.Issue(user.ID, user.Role, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("issue session: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:      ActionLogin,
		EntityType:  "User",
		EntityID:    user.ID,
		PerformedBy: user.Email,
		UserID:      user.ID,
	})
	return token, &user, nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput, actor Actor) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Role:     in.Role,
		IsActive: true,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:      ActionUserCreated,
		EntityType:  "User",
		EntityID:    user.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"role": user.Role},
	})
	return &user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput, actor Actor) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound("user", err)
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		updates["role"] = *in.Role
	}
	if in.IsActive != nil {
		if !*in.IsActive && user.ID == actor.UserID {
			return nil, NewDomainError("you cannot disable your own account")
		}
		updates["is_active"] = *in.IsActive
	}
	if in.Password != nil {
		if err := user.SetPassword(*in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password"] = user.Password
	}
	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(&user, "id = ?", user.ID).Error; err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(updates))
	for k := range updates {
		changed = append(changed, k)
	}
	s.audit.Record(ctx, AuditEntry{
		Action:      ActionUserUpdated,
		EntityType:  "User",
		EntityID:    user.ID,
		PerformedBy: actor.Email,
		UserID:      actor.UserID,
		Metadata:    map[string]any{"fields": changed},
	})
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("name").Find(&users).Error
	return users, err
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound("user", err)
	}
	return &user, nil
}
