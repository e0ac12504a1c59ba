package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

type StaffAuthService struct {
	staff StaffStore
}

func NewStaffAuthService(staff StaffStore) *StaffAuthService {
	return &StaffAuthService{staff: staff}
}

// LoginResult is returned to the browser after a successful login.
type LoginResult struct {
	Token string            `json:"token"`
	User  *models.StaffUser `json:"user"`
}

func (s *StaffAuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	log.Debug().Str("email", email).Msg("Login attempt")

	user, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Str("email", email).Msg("Login for unknown email")
			return nil, utils.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		log.Warn().Str("email", email).Msg("Account is inactive")
		return nil, utils.ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("email", email).Msg("Password verification failed")
		return nil, utils.ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	if err := s.staff.TouchLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Int("user_id", user.ID).Msg("Failed to record last login")
	}

	log.Info().Str("email", email).Str("role", string(user.Role)).Msg("Login successful")
	return &LoginResult{Token: token, User: user}, nil
}

// EnsureStaff creates a staff login unless the email is already taken. It
// reports whether a user was created.
func (s *StaffAuthService) EnsureStaff(ctx context.Context, email, password, name string, role models.StaffRole) (bool, error) {
	if _, err := s.staff.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	user := &models.StaffUser{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		Role:         role,
		IsActive:     true,
	}
	if err := s.staff.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
