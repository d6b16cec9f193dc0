package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/assemblymk1/localgov/internal/auth"
	"github.com/assemblymk1/localgov/internal/repo"
	"github.com/assemblymk1/localgov/internal/util"
)

// Roles carried in access tokens.
const (
	RoleResident = "RESIDENT"
	RoleAdmin    = "ADMIN"
)

type authRepository interface {
	CreateResident(ctx context.Context, arg repo.CreateResidentParams) (repo.Resident, error)
	GetResidentByEmail(ctx context.Context, email string) (repo.Resident, error)
	GetResidentByID(ctx context.Context, id int64) (repo.Resident, error)
}

// AuthService registers residents and issues access tokens.
type AuthService struct {
	repo authRepository
	jwt  *auth.JWTManager
	now  func() time.Time
}

// NewAuthService wires the service.
func NewAuthService(r authRepository, jwtMgr *auth.JWTManager) *AuthService {
	return &AuthService{repo: r, jwt: jwtMgr, now: util.Now}
}

// JWT exposes the token manager (used by the auth middleware).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// TokenResult is what register and login hand back to the caller.
type TokenResult struct {
	Token      string
	ExpiresAt  time.Time
	ResidentID int64
	Roles      []string
}

// Profile is the public view of a resident.
type Profile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Register creates a resident and signs a token for them.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*TokenResult, error) {
	name = strings.TrimSpace(name)
	email = util.NormalizeEmail(email)

	if err := util.RequireString(name, "name"); err != nil {
		return nil, invalid(err.Error())
	}
	if err := util.RequireString(email, "email"); err != nil {
		return nil, invalid(err.Error())
	}
	if password == "" {
		return nil, invalid("password is required")
	}
	if err := util.ValidateEmail(email); err != nil {
		return nil, invalid(err.Error())
	}

	if _, err := s.repo.GetResidentByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup resident: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	resident, err := s.repo.CreateResident(ctx, repo.CreateResidentParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create resident: %w", err)
	}

	log.Info().Int64("resident_id", resident.ID).Msg("resident registered")
	return s.issue(resident)
}

// Login checks credentials and signs a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	email = util.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	resident, err := s.repo.GetResidentByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup resident: %w", err)
	}

	ok, err := auth.VerifyPassword(password, resident.PasswordHash)
	if err != nil {
		log.Warn().Err(err).Int64("resident_id", resident.ID).Msg("login: verify password failed")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Int64("resident_id", resident.ID).Msg("login: wrong password")
		return nil, ErrInvalidCredentials
	}

	return s.issue(resident)
}

// Profile loads the resident behind a token.
func (s *AuthService) Profile(ctx context.Context, residentID int64) (Profile, error) {
	resident, err := s.repo.GetResidentByID(ctx, residentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Profile{}, ErrResidentNotFound
		}
		return Profile{}, err
	}
	return Profile{ID: resident.ID, Name: resident.Name, Email: resident.Email}, nil
}

// IsAdmin reports the resident's current admin flag. A missing resident is not an admin.
func (s *AuthService) IsAdmin(ctx context.Context, residentID int64) (bool, error) {
	resident, err := s.repo.GetResidentByID(ctx, residentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load resident: %w", err)
	}
	return resident.IsAdmin, nil
}

func (s *AuthService) issue(resident repo.Resident) (*TokenResult, error) {
	roles := rolesFor(resident)
	token, exp, err := s.jwt.GenerateAccessToken(auth.Identity{ResidentID: resident.ID, Name: resident.Name}, roles)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResult{Token: token, ExpiresAt: exp, ResidentID: resident.ID, Roles: roles}, nil
}

func rolesFor(resident repo.Resident) []string {
	roles := []string{RoleResident}
	if resident.IsAdmin {
		roles = append(roles, RoleAdmin)
	}
	return roles
}
