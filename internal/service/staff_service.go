package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

const (
	generatedPasswordLength = 12
	passwordAlphabet        = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%&*"
)

// CreateStaffRequest adds a back-office login.
type CreateStaffRequest struct {
	Email    string           `json:"email" validate:"required,email"`
	Name     string           `json:"name" validate:"required"`
	Role     models.StaffRole `json:"role" validate:"oneof=admin executive"`
	Password string           `json:"password" validate:"required,min=8"`
}

// UpdateStaffRequest edits a login's profile. Passwords change through
// ResetPassword only.
type UpdateStaffRequest struct {
	Email string           `json:"email" validate:"required,email"`
	Name  string           `json:"name" validate:"required"`
	Role  models.StaffRole `json:"role" validate:"oneof=admin executive"`
}

// PasswordReset carries a freshly generated password. It is shown once.
type PasswordReset struct {
	User     *models.StaffUser `json:"user"`
	Password string            `json:"password"`
}

func (s *StaffAuthService) ListStaff(ctx context.Context) ([]models.StaffUser, error) {
	return s.staff.List(ctx)
}

func (s *StaffAuthService) GetStaff(ctx context.Context, id int) (*models.StaffUser, error) {
	u, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, utils.ErrStaffNotFound)
	}
	return u, nil
}

func (s *StaffAuthService) CreateStaff(ctx context.Context, req *CreateStaffRequest) (*models.StaffUser, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Role == "" {
		req.Role = models.RoleExecutive
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.StaffUser{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.staff.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Wrap(utils.ErrStaffExists, "%s is already registered", req.Email)
		}
		return nil, err
	}
	log.Info().Int("user_id", user.ID).Str("role", string(user.Role)).Msg("Staff user created")
	return user, nil
}

func (s *StaffAuthService) UpdateStaff(ctx context.Context, id int, req *UpdateStaffRequest) (*models.StaffUser, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.GetStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Email, user.Name, user.Role = req.Email, req.Name, req.Role
	if err := s.staff.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Wrap(utils.ErrStaffExists, "%s is already registered", req.Email)
		}
		return nil, notFound(err, utils.ErrStaffNotFound)
	}
	return user, nil
}

// ResetPassword replaces the password with a random one and returns it.
func (s *StaffAuthService) ResetPassword(ctx context.Context, id int) (*PasswordReset, error) {
	user, err := s.GetStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	password, err := randomPassword(generatedPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.staff.SetPassword(ctx, id, string(hash)); err != nil {
		return nil, notFound(err, utils.ErrStaffNotFound)
	}
	log.Info().Int("user_id", id).Msg("Staff password reset")
	return &PasswordReset{User: user, Password: password}, nil
}

// ToggleActive flips is_active. actorID is the admin making the change, who
// may not lock themselves out.
func (s *StaffAuthService) ToggleActive(ctx context.Context, actorID, id int) (*models.StaffUser, error) {
	user, err := s.GetStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == actorID && user.IsActive {
		return nil, utils.ErrSelfDisable
	}
	user.IsActive = !user.IsActive
	if err := s.staff.Update(ctx, user); err != nil {
		return nil, notFound(err, utils.ErrStaffNotFound)
	}
	log.Info().Int("user_id", id).Bool("active", user.IsActive).Msg("Staff user toggled")
	return user, nil
}

func randomPassword(n int) (string, error) {
	size := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[idx.Int64()]
	}
	return string(b), nil
}
