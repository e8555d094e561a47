package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/auth"
	"github.com/cargoflow/backend/pkg/config"
	dbpkg "github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/security"
)

// driverLookup resolves the driver profile linked to a login. Implemented by
// the drivers repository.
type driverLookup interface {
	FindByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.Driver, error)
}

// CreateInput registers a new login account.
type CreateInput struct {
	TenantID uuid.UUID
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8"`
	FullName string         `json:"full_name" validate:"required"`
	Role     enums.UserRole `json:"role" validate:"required"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the issued token with its subject.
type LoginResult struct {
	AccessToken string
	User        *models.User
	DriverID    *uuid.UUID
}

// Service manages accounts and authentication.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.User, error)
	CreateInTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo     Repository
	drivers  driverLookup
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
}

// NewService builds the user service.
func NewService(repo Repository, drivers driverLookup, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if drivers == nil {
		return nil, fmt.Errorf("driver lookup required")
	}
	return &service{repo: repo, drivers: drivers, jwtCfg: jwtCfg, pwCfg: pwCfg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.User, error) {
	return s.CreateInTx(ctx, nil, input)
}

func (s *service) CreateInTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" || input.FullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email, password and full name are required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown role %q", input.Role))
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	tenantID := input.TenantID
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     &tenantID,
		Email:        email,
		FullName:     input.FullName,
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.repo.WithTx(tx).Create(ctx, user); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive || user.TenantID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	var driverID *uuid.UUID
	if user.Role == enums.RoleDriver {
		if driver, err := s.drivers.FindByUserID(ctx, *user.TenantID, user.ID); err == nil {
			driverID = &driver.ID
		}
	}

	token, err := auth.MintAccessToken(s.jwtCfg, time.Now(), auth.AccessTokenPayload{
		UserID:   user.ID,
		TenantID: *user.TenantID,
		Role:     user.Role,
		DriverID: driverID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	return &LoginResult{AccessToken: token, User: user, DriverID: driverID}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
